// Package memory provides memory abstractions for chat history management.
package memory

import (
	"context"

	"github.com/aqua777/docquery/llm"
	"github.com/aqua777/docquery/storage/chatstore"
)

// DefaultChatStoreKey is the default key for chat history storage.
const DefaultChatStoreKey = "chat_history"

// Memory is the interface for all memory types.
type Memory interface {
	// Get retrieves the chat history to send with the next question.
	Get(ctx context.Context) ([]llm.ChatMessage, error)

	// GetAll retrieves all chat history.
	GetAll(ctx context.Context) ([]llm.ChatMessage, error)

	// Put adds messages to the chat history.
	Put(ctx context.Context, messages ...llm.ChatMessage) error

	// Set replaces the entire chat history.
	Set(ctx context.Context, messages []llm.ChatMessage) error

	// Reset clears all chat history.
	Reset(ctx context.Context) error
}

// TokenizerFunc is a function that counts tokens in a string.
type TokenizerFunc func(text string) int

// DefaultTokenizer approximates ~4 characters per token.
func DefaultTokenizer(text string) int {
	return len(text) / 4
}

// baseMemory stores history under one chat store key.
type baseMemory struct {
	chatStore    chatstore.ChatStore
	chatStoreKey string
}

// ChatStore returns the underlying chat store.
func (m *baseMemory) ChatStore() chatstore.ChatStore {
	return m.chatStore
}

// ChatStoreKey returns the chat store key.
func (m *baseMemory) ChatStoreKey() string {
	return m.chatStoreKey
}

// GetAll retrieves all chat history.
func (m *baseMemory) GetAll(ctx context.Context) ([]llm.ChatMessage, error) {
	return m.chatStore.GetMessages(ctx, m.chatStoreKey)
}

// Put adds messages to the chat history.
func (m *baseMemory) Put(ctx context.Context, messages ...llm.ChatMessage) error {
	return m.chatStore.AddMessages(ctx, m.chatStoreKey, messages...)
}

// Set replaces the entire chat history.
func (m *baseMemory) Set(ctx context.Context, messages []llm.ChatMessage) error {
	return m.chatStore.SetMessages(ctx, m.chatStoreKey, messages)
}

// Reset clears all chat history.
func (m *baseMemory) Reset(ctx context.Context) error {
	_, err := m.chatStore.DeleteMessages(ctx, m.chatStoreKey)
	return err
}
