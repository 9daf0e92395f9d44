package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

const (
	// OllamaDefaultURL is the default Ollama API endpoint.
	OllamaDefaultURL = "http://localhost:11434"
)

// Common Ollama embedding model names.
const (
	OllamaMxbaiEmbedLarge = "mxbai-embed-large"
	OllamaAllMiniLM       = "all-minilm"
	OllamaNomicEmbedText  = "nomic-embed-text"
)

// OllamaEmbedding implements the EmbeddingModel interface for Ollama.
type OllamaEmbedding struct {
	baseURL    string
	model      string
	httpClient *http.Client
	client     *api.Client
	logger     *slog.Logger
}

// OllamaEmbeddingOption configures an OllamaEmbedding.
type OllamaEmbeddingOption func(*OllamaEmbedding)

// WithOllamaEmbeddingBaseURL sets the base URL.
func WithOllamaEmbeddingBaseURL(baseURL string) OllamaEmbeddingOption {
	return func(o *OllamaEmbedding) {
		o.baseURL = baseURL
	}
}

// WithOllamaEmbeddingModel sets the model.
func WithOllamaEmbeddingModel(model string) OllamaEmbeddingOption {
	return func(o *OllamaEmbedding) {
		o.model = model
	}
}

// WithOllamaEmbeddingHTTPClient sets a custom HTTP client.
func WithOllamaEmbeddingHTTPClient(client *http.Client) OllamaEmbeddingOption {
	return func(o *OllamaEmbedding) {
		o.httpClient = client
	}
}

// WithOllamaEmbeddingLogger sets the logger.
func WithOllamaEmbeddingLogger(logger *slog.Logger) OllamaEmbeddingOption {
	return func(o *OllamaEmbedding) {
		o.logger = logger
	}
}

// NewOllamaEmbedding creates a new Ollama embedding client.
func NewOllamaEmbedding(opts ...OllamaEmbeddingOption) (*OllamaEmbedding, error) {
	o := &OllamaEmbedding{
		baseURL:    OllamaDefaultURL,
		model:      OllamaNomicEmbedText,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	u, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", o.baseURL, err)
	}
	o.client = api.NewClient(u, o.httpClient)
	o.logger = o.logger.With(slog.String("module", "ollama_embedding"))

	return o, nil
}

// GetTextEmbeddings embeds all texts in a single request.
func (o *OllamaEmbedding) GetTextEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	o.logger.Debug("GetTextEmbeddings called", "model", o.model, "count", len(texts))
	return o.embed(ctx, texts)
}

// GetQueryEmbedding embeds a single query.
func (o *OllamaEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	out, err := o.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (o *OllamaEmbedding) embed(ctx context.Context, input []string) ([][]float32, error) {
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model: o.model,
		Input: input,
	})
	if err != nil {
		o.logger.Error("Embed failed", "error", err)
		return nil, fmt.Errorf("ollama embedding failed: %w", err)
	}
	if len(resp.Embeddings) != len(input) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(input))
	}
	return resp.Embeddings, nil
}

// Info returns information about the model.
func (o *OllamaEmbedding) Info() EmbeddingInfo {
	return EmbeddingInfo{ModelName: o.model, Provider: "ollama"}
}

// Ensure OllamaEmbedding implements the interfaces.
var _ EmbeddingModel = (*OllamaEmbedding)(nil)
var _ EmbeddingModelWithInfo = (*OllamaEmbedding)(nil)
