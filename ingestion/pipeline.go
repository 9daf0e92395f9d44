// Package ingestion turns uploaded files into embedded chunks stored in a
// named vector collection.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aqua777/docquery/embedding"
	"github.com/aqua777/docquery/rag/reader"
	"github.com/aqua777/docquery/rag/store/chromem"
	"github.com/aqua777/docquery/schema"
	"github.com/aqua777/docquery/storage/manifest"
	"github.com/aqua777/docquery/textsplitter"
	"github.com/aqua777/docquery/validation"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the number of texts per embedding request.
	DefaultBatchSize = 16
	// DefaultConcurrency is the number of embedding requests in flight.
	DefaultConcurrency = 4
)

// ErrNoFiles is returned when Ingest is called without files.
var ErrNoFiles = errors.New("no files to ingest")

// FileParser parses one uploaded file into document nodes.
type FileParser interface {
	ParseFile(ctx context.Context, filename string, data []byte) ([]schema.Node, error)
}

// Result summarises one ingestion request.
type Result struct {
	Collection string   `json:"collection"`
	Files      int      `json:"files"`
	Chunks     int      `json:"chunks"`
	Skipped    []string `json:"skipped,omitempty"`
}

// Message is the human readable outcome returned by the ingest endpoint.
func (r Result) Message() string {
	return fmt.Sprintf("Collection %s successfully created for %d files.", r.Collection, r.Files)
}

// Pipeline replaces a collection with the chunks of a set of files.
type Pipeline struct {
	parser      FileParser
	splitter    textsplitter.NodeSplitter
	embedder    embedding.EmbeddingModel
	store       *chromem.Store
	manifest    *manifest.Manifest
	batchSize   int
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithManifest records every ingested file in m.
func WithManifest(m *manifest.Manifest) PipelineOption {
	return func(p *Pipeline) {
		p.manifest = m
	}
}

// WithBatchSize sets the number of texts per embedding request.
func WithBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithConcurrency sets how many embedding requests run at once.
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	parser FileParser,
	splitter textsplitter.NodeSplitter,
	embedder embedding.EmbeddingModel,
	store *chromem.Store,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		parser:      parser,
		splitter:    splitter,
		embedder:    embedder,
		store:       store,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		now:         time.Now,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.logger = p.logger.With(slog.String("module", "ingestion"))
	return p
}

// parsedFile is the outcome of parsing one upload.
type parsedFile struct {
	file      reader.File
	hash      string
	nodes     []schema.Node
	duplicate bool
}

// Ingest deletes collection and rebuilds it from files. The first error
// aborts the request.
func (p *Pipeline) Ingest(ctx context.Context, collection string, files []reader.File) (Result, error) {
	p.logger.Info("Ingest called", "collection", collection, "files", len(files))

	if err := validation.ValidateCollectionName(collection); err != nil {
		return Result{}, err
	}
	if len(files) == 0 {
		return Result{}, ErrNoFiles
	}

	if err := p.store.DeleteCollection(collection); err != nil {
		return Result{}, err
	}
	if p.manifest != nil {
		if err := p.manifest.Reset(collection); err != nil {
			return Result{}, err
		}
	}

	parsed, err := p.parseAll(ctx, files)
	if err != nil {
		return Result{}, err
	}

	result := Result{Collection: collection, Files: len(files)}
	var chunks []schema.Node
	chunkCounts := make([]int, len(parsed))
	for i, pf := range parsed {
		if pf.duplicate {
			p.logger.Warn("Skipping duplicate file", "file", pf.file.Name, "hash", pf.hash)
			result.Skipped = append(result.Skipped, pf.file.Name)
			continue
		}
		fileChunks := p.splitter.SplitNodes(pf.nodes)
		for j := range fileChunks {
			fileChunks[j].ID = uuid.NewString()
		}
		chunkCounts[i] = len(fileChunks)
		chunks = append(chunks, fileChunks...)
	}

	if err := p.embedAll(ctx, chunks); err != nil {
		return Result{}, err
	}

	col, err := p.store.Collection(collection)
	if err != nil {
		return Result{}, err
	}
	if _, err := col.Add(ctx, chunks); err != nil {
		return Result{}, err
	}
	result.Chunks = len(chunks)

	if p.manifest != nil {
		if err := p.record(collection, parsed, chunkCounts); err != nil {
			return Result{}, err
		}
	}

	p.logger.Info("Ingest finished", "collection", collection, "chunks", result.Chunks, "skipped", len(result.Skipped))
	return result, nil
}

// parseAll parses files concurrently and returns them in upload order.
// Files repeating the content of an earlier upload are marked as duplicates
// and not parsed.
func (p *Pipeline) parseAll(ctx context.Context, files []reader.File) ([]parsedFile, error) {
	parsed := make([]parsedFile, len(files))
	seen := make(map[string]bool, len(files))
	for i, f := range files {
		hash := manifest.HashContent(f.Data)
		parsed[i] = parsedFile{file: f, hash: hash, duplicate: seen[hash]}
		seen[hash] = true
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range parsed {
		if parsed[i].duplicate {
			continue
		}
		g.Go(func() error {
			nodes, err := p.parser.ParseFile(gctx, parsed[i].file.Name, parsed[i].file.Data)
			if err != nil {
				return err
			}
			parsed[i].nodes = nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parsed, nil
}

// embedAll fills the Embedding of every chunk, batchSize texts per request.
func (p *Pipeline) embedAll(ctx context.Context, chunks []schema.Node) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Text
			}
			embeddings, err := p.embedder.GetTextEmbeddings(gctx, texts)
			if err != nil {
				return fmt.Errorf("failed to embed chunks: %w", err)
			}
			if len(embeddings) != len(batch) {
				return fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = embeddings[i]
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) record(collection string, parsed []parsedFile, chunkCounts []int) error {
	now := p.now().UTC()
	entries := make([]manifest.Entry, 0, len(parsed))
	for i, pf := range parsed {
		if pf.duplicate {
			continue
		}
		entries = append(entries, manifest.Entry{
			Name:       pf.file.Name,
			MimeType:   reader.ResolveMIMEType(pf.file.Name, pf.file.Data),
			Size:       len(pf.file.Data),
			Hash:       pf.hash,
			Chunks:     chunkCounts[i],
			IngestedAt: now,
		})
	}
	return p.manifest.Put(collection, entries...)
}
