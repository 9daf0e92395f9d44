package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/aqua777/docquery/embedding"
	"github.com/aqua777/docquery/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockVectorStore records the last query and returns canned nodes.
type MockVectorStore struct {
	Nodes     []schema.NodeWithScore
	Err       error
	LastQuery schema.VectorStoreQuery
}

func (m *MockVectorStore) Add(ctx context.Context, nodes []schema.Node) ([]string, error) {
	return nil, nil
}

func (m *MockVectorStore) Query(ctx context.Context, query schema.VectorStoreQuery) ([]schema.NodeWithScore, error) {
	m.LastQuery = query
	return m.Nodes, m.Err
}

func (m *MockVectorStore) Count() int { return len(m.Nodes) }

func createTestNode(id, text string, score float64) schema.NodeWithScore {
	node := schema.NewTextNode(text)
	node.ID = id
	return schema.NodeWithScore{
		Node:  *node,
		Score: score,
	}
}

func TestVectorRetriever(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		vr := NewVectorRetriever(&MockVectorStore{}, &embedding.MockEmbeddingModel{})
		assert.Equal(t, DefaultTopK, vr.TopK)
		assert.Nil(t, vr.Filters)
	})

	t.Run("embeds the question and queries the store", func(t *testing.T) {
		vs := &MockVectorStore{Nodes: []schema.NodeWithScore{
			createTestNode("1", "first", 0.9),
			createTestNode("2", "second", 0.7),
		}}
		emb := &embedding.MockEmbeddingModel{Embedding: []float32{0.1, 0.2}}
		vr := NewVectorRetriever(vs, emb, WithTopK(2), WithFilters(map[string]string{"source": "a.pdf"}))

		nodes, err := vr.Retrieve(ctx, schema.QueryBundle{QueryString: "what?"})
		require.NoError(t, err)
		require.Len(t, nodes, 2)
		assert.Equal(t, "1", nodes[0].Node.ID)

		assert.Equal(t, []float32{0.1, 0.2}, vs.LastQuery.QueryEmbedding)
		assert.Equal(t, 2, vs.LastQuery.SimilarityTopK)
		assert.Equal(t, "a.pdf", vs.LastQuery.Filters["source"])
		assert.Equal(t, 1, emb.QueryCalls())
	})

	t.Run("embedding error", func(t *testing.T) {
		vr := NewVectorRetriever(&MockVectorStore{}, &embedding.MockEmbeddingModel{Err: errors.New("ollama down")})
		_, err := vr.Retrieve(ctx, schema.QueryBundle{QueryString: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get query embedding")
		assert.Contains(t, err.Error(), "ollama down")
	})

	t.Run("store error", func(t *testing.T) {
		vr := NewVectorRetriever(&MockVectorStore{Err: errors.New("corrupt")}, &embedding.MockEmbeddingModel{Embedding: []float32{1}})
		_, err := vr.Retrieve(ctx, schema.QueryBundle{QueryString: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query vector store")
	})
}

func TestRetrieverFunc(t *testing.T) {
	r := RetrieverFunc(func(ctx context.Context, q schema.QueryBundle) ([]schema.NodeWithScore, error) {
		return []schema.NodeWithScore{createTestNode("x", q.QueryString, 1)}, nil
	})
	nodes, err := r.Retrieve(context.Background(), schema.QueryBundle{QueryString: "echo"})
	require.NoError(t, err)
	assert.Equal(t, "echo", nodes[0].Node.Text)
}
