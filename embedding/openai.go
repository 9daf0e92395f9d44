package embedding

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIEmbedding struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *slog.Logger
}

// NewOpenAIEmbedding creates a client for baseUrl. An empty baseUrl keeps the
// public API endpoint.
func NewOpenAIEmbedding(baseUrl, apiKey, modelName string) *OpenAIEmbedding {
	config := openai.DefaultConfig(apiKey)
	if baseUrl != "" {
		config.BaseURL = baseUrl
	}
	return NewOpenAIEmbeddingWithClient(openai.NewClientWithConfig(config), modelName)
}

func NewOpenAIEmbeddingWithClient(client *openai.Client, modelName string) *OpenAIEmbedding {
	var model openai.EmbeddingModel
	if modelName == "" {
		model = openai.SmallEmbedding3
	} else {
		model = openai.EmbeddingModel(modelName)
	}

	return &OpenAIEmbedding{
		client: client,
		model:  model,
		logger: slog.Default().With(slog.String("module", "openai_embedding")),
	}
}

func (o *OpenAIEmbedding) GetTextEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return o.getEmbeddings(ctx, texts, "text")
}

func (o *OpenAIEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	out, err := o.getEmbeddings(ctx, []string{query}, "query")
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (o *OpenAIEmbedding) getEmbeddings(ctx context.Context, input []string, typeLabel string) ([][]float32, error) {
	resp, err := o.client.CreateEmbeddings(
		ctx,
		openai.EmbeddingRequest{
			Input: input,
			Model: o.model,
		},
	)
	if err != nil {
		o.logger.Error("GetEmbedding failed", "type", typeLabel, "error", err)
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}

	if len(resp.Data) != len(input) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(input))
	}

	out := make([][]float32, len(input))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai returned out of range embedding index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Info returns information about the model.
func (o *OpenAIEmbedding) Info() EmbeddingInfo {
	return EmbeddingInfo{ModelName: string(o.model), Provider: "openai"}
}

var _ EmbeddingModel = (*OpenAIEmbedding)(nil)
var _ EmbeddingModelWithInfo = (*OpenAIEmbedding)(nil)
