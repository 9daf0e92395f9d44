// Package store defines the vector store seam used by ingestion and retrieval.
package store

import (
	"context"

	"github.com/aqua777/docquery/schema"
)

// VectorStore is the interface for storing and querying vectors in one
// collection.
type VectorStore interface {
	// Add adds nodes to the store. Every node must carry an embedding.
	Add(ctx context.Context, nodes []schema.Node) ([]string, error)
	// Query finds the top-k most similar nodes to the query embedding.
	Query(ctx context.Context, query schema.VectorStoreQuery) ([]schema.NodeWithScore, error)
	// Count returns the number of stored nodes.
	Count() int
}
