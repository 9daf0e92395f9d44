package embedding

import "context"

// EmbeddingModel is the interface for generating text embeddings.
type EmbeddingModel interface {
	// GetTextEmbeddings embeds a batch of document texts. The result has one
	// vector per input, in input order.
	GetTextEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	// GetQueryEmbedding embeds a single search query.
	GetQueryEmbedding(ctx context.Context, query string) ([]float32, error)
}

// EmbeddingModelWithInfo extends EmbeddingModel with metadata capabilities.
type EmbeddingModelWithInfo interface {
	EmbeddingModel
	// Info returns information about the model.
	Info() EmbeddingInfo
}

// EmbeddingInfo describes an embedding model.
type EmbeddingInfo struct {
	ModelName string `json:"model_name"`
	Provider  string `json:"provider"`
}
