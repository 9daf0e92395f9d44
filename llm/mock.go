package llm

import (
	"context"
	"sync"
)

// MockLLM is a mock implementation of the LLM interface.
// It can be configured to return specific responses or errors, and records
// the prompts and messages it receives.
type MockLLM struct {
	// Response is the text response to return from Chat.
	Response string
	// CompleteResponse is returned from Complete when set; otherwise Response is used.
	CompleteResponse string
	// Err is the error to return (if any).
	Err error

	mu       sync.Mutex
	prompts  []string
	messages [][]ChatMessage
}

// NewMockLLM creates a new MockLLM with a simple response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a new MockLLM that returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Err: err}
}

func (m *MockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.CompleteResponse != "" {
		return m.CompleteResponse, m.Err
	}
	return m.Response, m.Err
}

func (m *MockLLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	m.mu.Lock()
	cp := make([]ChatMessage, len(messages))
	copy(cp, messages)
	m.messages = append(m.messages, cp)
	m.mu.Unlock()
	return m.Response, m.Err
}

// Prompts returns the prompts passed to Complete.
func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// ChatCalls returns the message lists passed to Chat.
func (m *MockLLM) ChatCalls() [][]ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]ChatMessage(nil), m.messages...)
}

// Ensure MockLLM implements LLM.
var _ LLM = (*MockLLM)(nil)
