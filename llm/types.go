package llm

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	// MessageRoleSystem is for system instructions.
	MessageRoleSystem MessageRole = "system"
	// MessageRoleUser is for user messages.
	MessageRoleUser MessageRole = "user"
	// MessageRoleAssistant is for assistant responses.
	MessageRoleAssistant MessageRole = "assistant"
)

// ChatMessage represents a message in a chat conversation.
type ChatMessage struct {
	// Role is the role of the message sender.
	Role MessageRole `json:"role"`
	// Content is the text content.
	Content string `json:"content"`
}

// NewChatMessage creates a new chat message with simple text content.
func NewChatMessage(role MessageRole, content string) ChatMessage {
	return ChatMessage{
		Role:    role,
		Content: content,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return NewChatMessage(MessageRoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return NewChatMessage(MessageRoleUser, content)
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return NewChatMessage(MessageRoleAssistant, content)
}
