package embedding

import (
	"context"
	"sync/atomic"
)

// MockEmbeddingModel is a mock implementation of the EmbeddingModel interface.
// When EmbedFunc is nil every text maps to Embedding.
type MockEmbeddingModel struct {
	Embedding []float32
	EmbedFunc func(text string) []float32
	Err       error

	textCalls  atomic.Int64
	queryCalls atomic.Int64
}

func (m *MockEmbeddingModel) GetTextEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	m.textCalls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *MockEmbeddingModel) GetQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	m.queryCalls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.vector(query), nil
}

func (m *MockEmbeddingModel) vector(text string) []float32 {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(text)
	}
	return m.Embedding
}

// TextCalls returns how many batch calls were made.
func (m *MockEmbeddingModel) TextCalls() int { return int(m.textCalls.Load()) }

// QueryCalls returns how many query calls were made.
func (m *MockEmbeddingModel) QueryCalls() int { return int(m.queryCalls.Load()) }

var _ EmbeddingModel = (*MockEmbeddingModel)(nil)
