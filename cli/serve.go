package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aqua777/docquery/chatengine"
	"github.com/aqua777/docquery/config"
	"github.com/aqua777/docquery/ingestion"
	"github.com/aqua777/docquery/ocr/fitz"
	"github.com/aqua777/docquery/ocr/tesseract"
	"github.com/aqua777/docquery/rag/reader"
	"github.com/aqua777/docquery/rag/retriever"
	"github.com/aqua777/docquery/rag/store/chromem"
	"github.com/aqua777/docquery/server"
	"github.com/aqua777/docquery/storage/manifest"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend",
	Long: `Run the HTTP backend.

Routes:
  GET    /health
  POST   /ingest/:collection        multipart "files"
  POST   /chat/:collection          {"query": "..."}
  DELETE /chat/:collection/history
  GET    /collections[/:collection]`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (overrides LISTEN_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger := loadConfig(backendLoader)
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.server.Run(ctx, cfg.ListenAddr)
}

// backend holds the wired server and the resources it owns.
type backend struct {
	server   *server.Server
	manifest *manifest.Manifest
	closers  []func() error
}

func newBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	chatModel, err := cfg.NewLLM(logger)
	if err != nil {
		return nil, err
	}
	embedder, err := cfg.NewEmbedder(logger)
	if err != nil {
		return nil, err
	}
	splitter, err := cfg.NewSplitter(logger)
	if err != nil {
		return nil, err
	}
	tokenizer, err := cfg.NewMemoryTokenizer()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DBName, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", cfg.DBName, err)
	}
	store, err := chromem.NewStore(cfg.VectorsPath(),
		chromem.WithConcurrency(cfg.EmbedConcurrency),
		chromem.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	man, err := manifest.Open(cfg.ManifestPath())
	if err != nil {
		return nil, err
	}
	b := &backend{manifest: man}

	chats, err := cfg.NewChatStore(ctx)
	if err != nil {
		b.Close()
		return nil, err
	}
	if c, ok := chats.(interface{ Close() error }); ok {
		b.closers = append(b.closers, c.Close)
	}

	registry := reader.NewDefaultRegistry(
		tesseract.New(tesseract.WithLanguages(cfg.OCRLanguages...), tesseract.WithLogger(logger)),
		fitz.New(cfg.OCRDPI),
		reader.WithRegistryLogger(logger),
	)

	pipeline := ingestion.NewPipeline(registry, splitter, embedder, store,
		ingestion.WithManifest(man),
		ingestion.WithBatchSize(cfg.EmbedBatchSize),
		ingestion.WithConcurrency(cfg.EmbedConcurrency),
		ingestion.WithLogger(logger),
	)

	retrievers := func(collection string) (retriever.Retriever, error) {
		col, err := store.Collection(collection)
		if err != nil {
			return nil, err
		}
		return retriever.NewVectorRetriever(col, embedder, retriever.WithTopK(cfg.TopK)), nil
	}
	chat := chatengine.NewService(chatModel, retrievers,
		chatengine.WithServiceChatStore(chats),
		chatengine.WithServiceTokenLimit(cfg.MemoryTokenLimit),
		chatengine.WithServiceTokenizer(tokenizer),
		chatengine.WithServiceLogger(logger),
	)

	b.server = server.NewServer(pipeline, chat,
		server.WithCatalog(&server.StoreCatalog{Store: store, Manifest: man}),
		server.WithMaxUploadBytes(cfg.MaxUploadBytes()),
		server.WithRequestTimeout(cfg.RequestTimeout),
		server.WithDebug(cfg.Debug),
		server.WithLogger(logger),
	)
	return b, nil
}

// Close releases the manifest and the chat store.
func (b *backend) Close() error {
	var first error
	for _, c := range append(b.closers, b.manifest.Close) {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
