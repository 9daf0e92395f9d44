// Package chatengine provides the conversational retrieval pipeline used by
// the chat endpoint.
package chatengine

import (
	"context"

	"github.com/aqua777/docquery/llm"
	"github.com/aqua777/docquery/schema"
)

// ChatResponse represents a chat response.
type ChatResponse struct {
	// Response is the text response.
	Response string
	// SourceNodes are the source nodes used to generate the response.
	SourceNodes []schema.NodeWithScore
	// StandaloneQuestion is the question sent to the retriever. It equals the
	// user question when there was no history to condense.
	StandaloneQuestion string
}

// NewChatResponse creates a new ChatResponse.
func NewChatResponse(response string) *ChatResponse {
	return &ChatResponse{
		Response:    response,
		SourceNodes: []schema.NodeWithScore{},
	}
}

// String returns the response text.
func (r *ChatResponse) String() string {
	return r.Response
}

// ChatEngine is the interface for chat engines.
type ChatEngine interface {
	// Chat sends a message and returns a response.
	Chat(ctx context.Context, message string) (*ChatResponse, error)

	// Reset clears the conversation state.
	Reset(ctx context.Context) error

	// ChatHistory returns the current chat history.
	ChatHistory(ctx context.Context) ([]llm.ChatMessage, error)
}
