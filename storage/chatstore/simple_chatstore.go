package chatstore

import (
	"context"
	"sort"
	"sync"

	"github.com/aqua777/docquery/llm"
)

// SimpleChatStore is an in-memory chat store. Histories live as long as the
// process.
type SimpleChatStore struct {
	mu    sync.RWMutex
	store map[string][]llm.ChatMessage
}

// NewSimpleChatStore creates a new SimpleChatStore.
func NewSimpleChatStore() *SimpleChatStore {
	return &SimpleChatStore{
		store: make(map[string][]llm.ChatMessage),
	}
}

// SetMessages sets the messages for a key.
func (s *SimpleChatStore) SetMessages(ctx context.Context, key string, messages []llm.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Make a copy to prevent external mutation
	msgCopy := make([]llm.ChatMessage, len(messages))
	copy(msgCopy, messages)
	s.store[key] = msgCopy

	return nil
}

// GetMessages retrieves all messages for a key.
func (s *SimpleChatStore) GetMessages(ctx context.Context, key string) ([]llm.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.store[key]
	if !ok {
		return []llm.ChatMessage{}, nil
	}

	// Return a copy to prevent external mutation
	result := make([]llm.ChatMessage, len(messages))
	copy(result, messages)
	return result, nil
}

// AddMessages appends messages to the list for a key.
func (s *SimpleChatStore) AddMessages(ctx context.Context, key string, messages ...llm.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store[key] = append(s.store[key], messages...)
	return nil
}

// DeleteMessages deletes all messages for a key.
func (s *SimpleChatStore) DeleteMessages(ctx context.Context, key string) ([]llm.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages, ok := s.store[key]
	if !ok {
		return nil, nil
	}

	delete(s.store, key)
	return messages, nil
}

// GetKeys returns all keys in the store, sorted.
func (s *SimpleChatStore) GetKeys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.store))
	for key := range s.store {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Ensure SimpleChatStore implements ChatStore.
var _ ChatStore = (*SimpleChatStore)(nil)
