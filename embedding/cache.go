package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultQueryCacheSize is the number of query vectors kept by CachedEmbedding.
const DefaultQueryCacheSize = 256

// CachedEmbedding memoises query embeddings of an underlying model.
// Document embeddings always go to the underlying model.
type CachedEmbedding struct {
	model EmbeddingModel
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedding wraps model with an LRU of the given size.
func NewCachedEmbedding(model EmbeddingModel, size int) (*CachedEmbedding, error) {
	if size <= 0 {
		size = DefaultQueryCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	return &CachedEmbedding{model: model, cache: cache}, nil
}

func (c *CachedEmbedding) GetTextEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return c.model.GetTextEmbeddings(ctx, texts)
}

func (c *CachedEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if v, ok := c.cache.Get(query); ok {
		return v, nil
	}
	v, err := c.model.GetQueryEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	c.cache.Add(query, v)
	return v, nil
}

// Len returns the number of cached queries.
func (c *CachedEmbedding) Len() int {
	return c.cache.Len()
}

var _ EmbeddingModel = (*CachedEmbedding)(nil)
