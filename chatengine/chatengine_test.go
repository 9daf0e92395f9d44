package chatengine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aqua777/docquery/llm"
	"github.com/aqua777/docquery/memory"
	"github.com/aqua777/docquery/rag/retriever"
	"github.com/aqua777/docquery/schema"
	"github.com/aqua777/docquery/storage/chatstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRetriever is a mock retriever for testing.
type MockRetriever struct {
	nodes []schema.NodeWithScore
	err   error

	mu      sync.Mutex
	queries []string
}

func NewMockRetriever(nodes []schema.NodeWithScore) *MockRetriever {
	return &MockRetriever{nodes: nodes}
}

func (m *MockRetriever) Retrieve(ctx context.Context, query schema.QueryBundle) ([]schema.NodeWithScore, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query.QueryString)
	m.mu.Unlock()
	return m.nodes, m.err
}

func (m *MockRetriever) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

func testNodes() []schema.NodeWithScore {
	return []schema.NodeWithScore{
		{Node: schema.Node{ID: "1", Text: "Go was designed at Google."}, Score: 0.9},
		{Node: schema.Node{ID: "2", Text: "Go 1.0 was released in 2012."}, Score: 0.8},
	}
}

func TestChatResponse(t *testing.T) {
	resp := NewChatResponse("Hello, World!")
	assert.Equal(t, "Hello, World!", resp.Response)
	assert.Equal(t, "Hello, World!", resp.String())
	assert.Empty(t, resp.SourceNodes)
	assert.Empty(t, resp.StandaloneQuestion)
}

func TestConversationalRetrievalEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("first question skips condensing", func(t *testing.T) {
		mockLLM := llm.NewMockLLM("It was designed at Google.")
		ret := NewMockRetriever(testNodes())
		engine := NewConversationalRetrievalEngine(WithLLM(mockLLM), WithRetriever(ret))

		resp, err := engine.Chat(ctx, "Who designed Go?")
		require.NoError(t, err)
		assert.Equal(t, "It was designed at Google.", resp.Response)
		assert.Equal(t, "Who designed Go?", resp.StandaloneQuestion)
		assert.Len(t, resp.SourceNodes, 2)

		assert.Empty(t, mockLLM.Prompts())
		assert.Equal(t, []string{"Who designed Go?"}, ret.Queries())

		calls := mockLLM.ChatCalls()
		require.Len(t, calls, 1)
		require.Len(t, calls[0], 2)
		assert.Equal(t, llm.MessageRoleSystem, calls[0][0].Role)
		assert.Contains(t, calls[0][0].Content, "Go was designed at Google.\n\nGo 1.0 was released in 2012.")
		assert.Equal(t, llm.NewUserMessage("Who designed Go?"), calls[0][1])

		history, err := engine.ChatHistory(ctx)
		require.NoError(t, err)
		assert.Equal(t, []llm.ChatMessage{
			llm.NewUserMessage("Who designed Go?"),
			llm.NewAssistantMessage("It was designed at Google."),
		}, history)
	})

	t.Run("follow-up is condensed with history", func(t *testing.T) {
		mockLLM := llm.NewMockLLM("2012.")
		mockLLM.CompleteResponse = "  When was Go 1.0 released?  "
		ret := NewMockRetriever(testNodes())
		mem := memory.NewChatMemoryBuffer()
		require.NoError(t, mem.Set(ctx, []llm.ChatMessage{
			llm.NewUserMessage("Tell me about Go"),
			llm.NewAssistantMessage("Go is a language."),
		}))

		engine := NewConversationalRetrievalEngine(WithLLM(mockLLM), WithRetriever(ret), WithMemory(mem))
		resp, err := engine.Chat(ctx, "When was it released?")
		require.NoError(t, err)
		assert.Equal(t, "When was Go 1.0 released?", resp.StandaloneQuestion)
		assert.Equal(t, []string{"When was Go 1.0 released?"}, ret.Queries())

		prompts := mockLLM.Prompts()
		require.Len(t, prompts, 1)
		assert.Contains(t, prompts[0], "Human: Tell me about Go\nAssistant: Go is a language.")
		assert.Contains(t, prompts[0], "Follow Up Input: When was it released?")

		calls := mockLLM.ChatCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, "When was Go 1.0 released?", calls[0][1].Content)

		all, err := mem.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "When was it released?", all[2].Content)
	})

	t.Run("empty condensed question falls back", func(t *testing.T) {
		mockLLM := llm.NewMockLLM("answer")
		mockLLM.CompleteResponse = "   "
		mem := memory.NewChatMemoryBuffer()
		require.NoError(t, mem.Put(ctx, llm.NewUserMessage("hi"), llm.NewAssistantMessage("hello")))

		engine := NewConversationalRetrievalEngine(WithLLM(mockLLM), WithRetriever(NewMockRetriever(nil)), WithMemory(mem))
		resp, err := engine.Chat(ctx, "what now?")
		require.NoError(t, err)
		assert.Equal(t, "what now?", resp.StandaloneQuestion)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := NewConversationalRetrievalEngine(WithRetriever(NewMockRetriever(nil))).Chat(ctx, "q")
		assert.ErrorIs(t, err, ErrNoLLM)

		_, err = NewConversationalRetrievalEngine(WithLLM(llm.NewMockLLM("a"))).Chat(ctx, "q")
		assert.ErrorIs(t, err, ErrNoRetriever)
	})

	t.Run("errors leave history untouched", func(t *testing.T) {
		ret := NewMockRetriever(nil)
		ret.err = errors.New("store down")
		engine := NewConversationalRetrievalEngine(WithLLM(llm.NewMockLLM("a")), WithRetriever(ret))

		_, err := engine.Chat(ctx, "q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store down")

		history, err := engine.ChatHistory(ctx)
		require.NoError(t, err)
		assert.Empty(t, history)

		failing := NewConversationalRetrievalEngine(
			WithLLM(llm.NewMockLLMWithError(errors.New("model not found"))),
			WithRetriever(NewMockRetriever(nil)),
		)
		_, err = failing.Chat(ctx, "q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not found")
	})

	t.Run("Reset", func(t *testing.T) {
		engine := NewConversationalRetrievalEngine(WithLLM(llm.NewMockLLM("a")), WithRetriever(NewMockRetriever(nil)))
		_, err := engine.Chat(ctx, "q")
		require.NoError(t, err)

		require.NoError(t, engine.Reset(ctx))
		history, err := engine.ChatHistory(ctx)
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestFormatChatHistory(t *testing.T) {
	out := formatChatHistory([]llm.ChatMessage{
		llm.NewSystemMessage("rules"),
		llm.NewUserMessage("hi"),
		llm.NewAssistantMessage("hello"),
	})
	assert.Equal(t, "system: rules\nHuman: hi\nAssistant: hello", out)
}

func TestService(t *testing.T) {
	ctx := context.Background()
	store := chatstore.NewSimpleChatStore()
	retrievers := map[string]*MockRetriever{
		"alpha": NewMockRetriever(testNodes()),
		"beta":  NewMockRetriever(nil),
	}
	factory := func(collection string) (retriever.Retriever, error) {
		r, ok := retrievers[collection]
		if !ok {
			return nil, errors.New("unknown collection " + collection)
		}
		return r, nil
	}

	mockLLM := llm.NewMockLLM("answer")
	svc := NewService(mockLLM, factory, WithServiceChatStore(store), WithServiceTokenLimit(100))

	t.Run("engines are cached per collection", func(t *testing.T) {
		assert.Same(t, svc.Engine("alpha"), svc.Engine("alpha"))
		assert.NotSame(t, svc.Engine("alpha"), svc.Engine("beta"))
	})

	t.Run("buffers are keyed by collection", func(t *testing.T) {
		_, err := svc.Chat(ctx, "alpha", "first")
		require.NoError(t, err)
		_, err = svc.Chat(ctx, "beta", "other")
		require.NoError(t, err)

		keys, err := store.GetKeys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "beta"}, keys)

		history, err := svc.History(ctx, "alpha")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "first", history[0].Content)

		assert.Equal(t, []string{"first"}, retrievers["alpha"].Queries())
		assert.Equal(t, []string{"other"}, retrievers["beta"].Queries())
	})

	t.Run("second question is condensed", func(t *testing.T) {
		mockLLM.CompleteResponse = "standalone"
		_, err := svc.Chat(ctx, "alpha", "second")
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "standalone"}, retrievers["alpha"].Queries())
	})

	t.Run("Reset clears one collection", func(t *testing.T) {
		require.NoError(t, svc.Reset(ctx, "alpha"))

		history, err := svc.History(ctx, "alpha")
		require.NoError(t, err)
		assert.Empty(t, history)

		history, err = svc.History(ctx, "beta")
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})

	t.Run("retriever factory errors surface", func(t *testing.T) {
		_, err := svc.Chat(ctx, "missing", "q")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown collection missing")
	})
}

func TestServiceTokenizer(t *testing.T) {
	ctx := context.Background()
	r := NewMockRetriever(testNodes())
	factory := func(string) (retriever.Retriever, error) { return r, nil }

	var counted []string
	tokenizer := func(text string) int {
		counted = append(counted, text)
		return 1000
	}

	mockLLM := llm.NewMockLLM("answer")
	mockLLM.CompleteResponse = "standalone"
	svc := NewService(mockLLM, factory, WithServiceTokenLimit(100), WithServiceTokenizer(tokenizer))

	_, err := svc.Chat(ctx, "alpha", "first")
	require.NoError(t, err)
	_, err = svc.Chat(ctx, "alpha", "second")
	require.NoError(t, err)

	// Every stored turn is over budget, so nothing is condensed.
	assert.NotEmpty(t, counted)
	assert.Empty(t, mockLLM.Prompts())
	assert.Equal(t, []string{"first", "second"}, r.Queries())

	history, err := svc.History(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, history, 4)
}
