package llm

import "context"

// LLM is the interface for interacting with Large Language Models.
// This is the basic interface that all LLM implementations must satisfy.
type LLM interface {
	// Complete generates a completion for a given prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// Chat generates a response for a list of chat messages.
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
}
