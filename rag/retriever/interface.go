// Package retriever provides retrieval implementations for RAG systems.
package retriever

import (
	"context"

	"github.com/aqua777/docquery/schema"
)

// Retriever is the interface for all retrievers.
type Retriever interface {
	// Retrieve retrieves nodes given a query.
	Retrieve(ctx context.Context, query schema.QueryBundle) ([]schema.NodeWithScore, error)
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, query schema.QueryBundle) ([]schema.NodeWithScore, error)

// Retrieve calls f.
func (f RetrieverFunc) Retrieve(ctx context.Context, query schema.QueryBundle) ([]schema.NodeWithScore, error) {
	return f(ctx, query)
}
