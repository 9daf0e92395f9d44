package memory

import (
	"context"
	"strings"

	"github.com/aqua777/docquery/llm"
	"github.com/aqua777/docquery/storage/chatstore"
)

const (
	// DefaultTokenLimit is the default token limit.
	DefaultTokenLimit = 3000
)

// ChatMemoryBuffer is a linear chat history trimmed from the oldest end to a
// token limit.
type ChatMemoryBuffer struct {
	baseMemory
	tokenLimit  int
	tokenizerFn TokenizerFunc
}

// ChatMemoryBufferOption configures a ChatMemoryBuffer.
type ChatMemoryBufferOption func(*ChatMemoryBuffer)

// WithTokenLimit sets the token limit.
func WithTokenLimit(limit int) ChatMemoryBufferOption {
	return func(m *ChatMemoryBuffer) {
		m.tokenLimit = limit
	}
}

// WithTokenizer sets the tokenizer function.
func WithTokenizer(fn TokenizerFunc) ChatMemoryBufferOption {
	return func(m *ChatMemoryBuffer) {
		m.tokenizerFn = fn
	}
}

// WithChatStore sets the chat store.
func WithChatStore(store chatstore.ChatStore) ChatMemoryBufferOption {
	return func(m *ChatMemoryBuffer) {
		m.chatStore = store
	}
}

// WithChatStoreKey sets the chat store key.
func WithChatStoreKey(key string) ChatMemoryBufferOption {
	return func(m *ChatMemoryBuffer) {
		m.chatStoreKey = key
	}
}

// NewChatMemoryBuffer creates a new ChatMemoryBuffer backed by an in-memory
// store unless WithChatStore is given.
func NewChatMemoryBuffer(opts ...ChatMemoryBufferOption) *ChatMemoryBuffer {
	m := &ChatMemoryBuffer{
		baseMemory: baseMemory{
			chatStore:    chatstore.NewSimpleChatStore(),
			chatStoreKey: DefaultChatStoreKey,
		},
		tokenLimit:  DefaultTokenLimit,
		tokenizerFn: DefaultTokenizer,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// TokenLimit returns the token limit.
func (m *ChatMemoryBuffer) TokenLimit() int {
	return m.tokenLimit
}

// Get retrieves the newest messages that fit the token limit. The window
// never starts on an assistant message.
func (m *ChatMemoryBuffer) Get(ctx context.Context) ([]llm.ChatMessage, error) {
	chatHistory, err := m.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return m.trim(chatHistory), nil
}

func (m *ChatMemoryBuffer) trim(chatHistory []llm.ChatMessage) []llm.ChatMessage {
	if len(chatHistory) == 0 {
		return chatHistory
	}

	messageCount := len(chatHistory)
	tokenCount := m.tokenCountForMessages(chatHistory)

	// Trim messages until we're under the token limit
	for tokenCount > m.tokenLimit && messageCount > 1 {
		messageCount--

		// Skip assistant messages at the start
		for messageCount > 0 && chatHistory[len(chatHistory)-messageCount].Role == llm.MessageRoleAssistant {
			messageCount--
		}

		if messageCount <= 0 {
			break
		}

		tokenCount = m.tokenCountForMessages(chatHistory[len(chatHistory)-messageCount:])
	}

	// If still over limit or no messages, return empty
	if tokenCount > m.tokenLimit || messageCount <= 0 {
		return []llm.ChatMessage{}
	}

	return chatHistory[len(chatHistory)-messageCount:]
}

// tokenCountForMessages counts tokens in a list of messages.
func (m *ChatMemoryBuffer) tokenCountForMessages(messages []llm.ChatMessage) int {
	if len(messages) == 0 {
		return 0
	}

	var sb strings.Builder
	for _, msg := range messages {
		sb.WriteString(" ")
		sb.WriteString(msg.Content)
	}

	return m.tokenizerFn(sb.String())
}

// Ensure ChatMemoryBuffer implements Memory.
var _ Memory = (*ChatMemoryBuffer)(nil)
