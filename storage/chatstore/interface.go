// Package chatstore keeps conversation histories keyed by conversation id.
package chatstore

import (
	"context"

	"github.com/aqua777/docquery/llm"
)

// ChatStore is the interface for storing chat message history.
type ChatStore interface {
	// SetMessages sets the messages for a key, replacing any existing messages.
	SetMessages(ctx context.Context, key string, messages []llm.ChatMessage) error

	// GetMessages retrieves all messages for a key.
	// Returns an empty slice if the key doesn't exist.
	GetMessages(ctx context.Context, key string) ([]llm.ChatMessage, error)

	// AddMessages appends messages to the end of the list for a key.
	AddMessages(ctx context.Context, key string, messages ...llm.ChatMessage) error

	// DeleteMessages deletes all messages for a key.
	// Returns the deleted messages, or nil if the key didn't exist.
	DeleteMessages(ctx context.Context, key string) ([]llm.ChatMessage, error)

	// GetKeys returns all keys in the store.
	GetKeys(ctx context.Context) ([]string, error)
}
