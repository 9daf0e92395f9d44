package chatengine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aqua777/docquery/llm"
	"github.com/aqua777/docquery/memory"
	"github.com/aqua777/docquery/rag/retriever"
	"github.com/aqua777/docquery/schema"
	"github.com/aqua777/docquery/storage/chatstore"
)

// RetrieverFactory returns the retriever for a collection. It is resolved on
// every question so that a re-ingested collection is picked up.
type RetrieverFactory func(collection string) (retriever.Retriever, error)

// Service holds one engine per collection. Every engine keeps its
// conversation in the shared chat store under the collection name.
type Service struct {
	llm        llm.LLM
	retrievers RetrieverFactory
	chatStore  chatstore.ChatStore
	tokenLimit int
	tokenizer  memory.TokenizerFunc
	opts       []ConversationalRetrievalOption
	logger     *slog.Logger

	mu      sync.Mutex
	engines map[string]*ConversationalRetrievalEngine
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceChatStore sets the store holding conversation buffers.
func WithServiceChatStore(store chatstore.ChatStore) ServiceOption {
	return func(s *Service) {
		s.chatStore = store
	}
}

// WithServiceTokenLimit sets the token budget of each conversation buffer.
func WithServiceTokenLimit(limit int) ServiceOption {
	return func(s *Service) {
		s.tokenLimit = limit
	}
}

// WithServiceTokenizer sets how conversation buffers count tokens.
func WithServiceTokenizer(fn memory.TokenizerFunc) ServiceOption {
	return func(s *Service) {
		s.tokenizer = fn
	}
}

// WithEngineOptions passes extra options to every engine the service creates.
func WithEngineOptions(opts ...ConversationalRetrievalOption) ServiceOption {
	return func(s *Service) {
		s.opts = append(s.opts, opts...)
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a new Service.
func NewService(l llm.LLM, retrievers RetrieverFactory, opts ...ServiceOption) *Service {
	s := &Service{
		llm:        l,
		retrievers: retrievers,
		chatStore:  chatstore.NewSimpleChatStore(),
		tokenLimit: memory.DefaultTokenLimit,
		logger:     slog.Default(),
		engines:    make(map[string]*ConversationalRetrievalEngine),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Engine returns the engine of collection, creating it on first use.
func (s *Service) Engine(collection string) *ConversationalRetrievalEngine {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.engines[collection]; ok {
		return e
	}

	memOpts := []memory.ChatMemoryBufferOption{
		memory.WithChatStore(s.chatStore),
		memory.WithChatStoreKey(collection),
		memory.WithTokenLimit(s.tokenLimit),
	}
	if s.tokenizer != nil {
		memOpts = append(memOpts, memory.WithTokenizer(s.tokenizer))
	}
	mem := memory.NewChatMemoryBuffer(memOpts...)
	ret := retriever.RetrieverFunc(func(ctx context.Context, query schema.QueryBundle) ([]schema.NodeWithScore, error) {
		r, err := s.retrievers(collection)
		if err != nil {
			return nil, err
		}
		return r.Retrieve(ctx, query)
	})

	opts := []ConversationalRetrievalOption{
		WithLLM(s.llm),
		WithMemory(mem),
		WithRetriever(ret),
		WithLogger(s.logger.With(slog.String("collection", collection))),
	}
	opts = append(opts, s.opts...)

	e := NewConversationalRetrievalEngine(opts...)
	s.engines[collection] = e
	return e
}

// Chat sends question to the engine of collection.
func (s *Service) Chat(ctx context.Context, collection, question string) (*ChatResponse, error) {
	return s.Engine(collection).Chat(ctx, question)
}

// History returns the stored conversation of collection.
func (s *Service) History(ctx context.Context, collection string) ([]llm.ChatMessage, error) {
	return s.Engine(collection).ChatHistory(ctx)
}

// Reset clears the conversation of collection.
func (s *Service) Reset(ctx context.Context, collection string) error {
	s.logger.Info("Reset called", "collection", collection)
	return s.Engine(collection).Reset(ctx)
}
