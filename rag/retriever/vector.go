package retriever

import (
	"context"
	"fmt"

	"github.com/aqua777/docquery/embedding"
	"github.com/aqua777/docquery/rag/store"
	"github.com/aqua777/docquery/schema"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// VectorRetriever retrieves relevant nodes using a vector store and embedding model.
type VectorRetriever struct {
	// VectorStore is the vector store to query.
	VectorStore store.VectorStore
	// EmbeddingModel is the model used to embed queries.
	EmbeddingModel embedding.EmbeddingModel
	// TopK is the number of results to return.
	TopK int
	// Filters restrict results to exact metadata matches.
	Filters map[string]string
}

// VectorRetrieverOption is a functional option for VectorRetriever.
type VectorRetrieverOption func(*VectorRetriever)

// WithTopK sets the number of results to return.
func WithTopK(topK int) VectorRetrieverOption {
	return func(vr *VectorRetriever) {
		vr.TopK = topK
	}
}

// WithFilters sets exact-match metadata filters.
func WithFilters(filters map[string]string) VectorRetrieverOption {
	return func(vr *VectorRetriever) {
		vr.Filters = filters
	}
}

// NewVectorRetriever creates a new VectorRetriever.
func NewVectorRetriever(
	vectorStore store.VectorStore,
	embeddingModel embedding.EmbeddingModel,
	opts ...VectorRetrieverOption,
) *VectorRetriever {
	vr := &VectorRetriever{
		VectorStore:    vectorStore,
		EmbeddingModel: embeddingModel,
		TopK:           DefaultTopK,
	}

	for _, opt := range opts {
		opt(vr)
	}

	return vr
}

// Retrieve retrieves nodes from the vector store.
func (vr *VectorRetriever) Retrieve(ctx context.Context, query schema.QueryBundle) ([]schema.NodeWithScore, error) {
	// Get query embedding
	queryEmbedding, err := vr.EmbeddingModel.GetQueryEmbedding(ctx, query.QueryString)
	if err != nil {
		return nil, fmt.Errorf("failed to get query embedding: %w", err)
	}

	storeQuery := schema.NewVectorStoreQuery(queryEmbedding, vr.TopK)
	storeQuery.Filters = vr.Filters

	nodes, err := vr.VectorStore.Query(ctx, storeQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	return nodes, nil
}

// Ensure VectorRetriever implements Retriever.
var _ Retriever = (*VectorRetriever)(nil)
