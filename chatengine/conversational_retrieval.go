package chatengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aqua777/docquery/llm"
	"github.com/aqua777/docquery/memory"
	"github.com/aqua777/docquery/rag/retriever"
	"github.com/aqua777/docquery/schema"
)

const (
	// DefaultCondensePromptTemplate rewrites a follow-up into a standalone
	// question. Arguments: chat history, follow-up question.
	DefaultCondensePromptTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
%s
Follow Up Input: %s
Standalone question:`

	// DefaultQAPromptTemplate is the system message of the "stuff" answer
	// step. Argument: the retrieved chunks joined by blank lines.
	DefaultQAPromptTemplate = `Use the following pieces of context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
----------------
%s`
)

var (
	// ErrNoLLM is returned when the engine has no language model.
	ErrNoLLM = errors.New("LLM not configured")
	// ErrNoRetriever is returned when the engine has no retriever.
	ErrNoRetriever = errors.New("retriever not configured")
)

// ConversationalRetrievalEngine condenses the conversation into a standalone
// question, retrieves chunks for it and answers from those chunks.
type ConversationalRetrievalEngine struct {
	llm                    llm.LLM
	memory                 memory.Memory
	retriever              retriever.Retriever
	condensePromptTemplate string
	qaPromptTemplate       string
	logger                 *slog.Logger
}

// ConversationalRetrievalOption configures a ConversationalRetrievalEngine.
type ConversationalRetrievalOption func(*ConversationalRetrievalEngine)

// WithLLM sets the LLM.
func WithLLM(l llm.LLM) ConversationalRetrievalOption {
	return func(e *ConversationalRetrievalEngine) {
		e.llm = l
	}
}

// WithMemory sets the conversation buffer.
func WithMemory(m memory.Memory) ConversationalRetrievalOption {
	return func(e *ConversationalRetrievalEngine) {
		e.memory = m
	}
}

// WithRetriever sets the retriever.
func WithRetriever(r retriever.Retriever) ConversationalRetrievalOption {
	return func(e *ConversationalRetrievalEngine) {
		e.retriever = r
	}
}

// WithCondensePromptTemplate sets the condense prompt template.
func WithCondensePromptTemplate(template string) ConversationalRetrievalOption {
	return func(e *ConversationalRetrievalEngine) {
		e.condensePromptTemplate = template
	}
}

// WithQAPromptTemplate sets the answer prompt template.
func WithQAPromptTemplate(template string) ConversationalRetrievalOption {
	return func(e *ConversationalRetrievalEngine) {
		e.qaPromptTemplate = template
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ConversationalRetrievalOption {
	return func(e *ConversationalRetrievalEngine) {
		e.logger = logger
	}
}

// NewConversationalRetrievalEngine creates a new engine. Without WithMemory
// it keeps its history in a private in-memory buffer.
func NewConversationalRetrievalEngine(opts ...ConversationalRetrievalOption) *ConversationalRetrievalEngine {
	e := &ConversationalRetrievalEngine{
		memory:                 memory.NewChatMemoryBuffer(),
		condensePromptTemplate: DefaultCondensePromptTemplate,
		qaPromptTemplate:       DefaultQAPromptTemplate,
		logger:                 slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With(slog.String("module", "chatengine"))
	return e
}

// Chat answers message using the stored conversation and the retriever.
func (e *ConversationalRetrievalEngine) Chat(ctx context.Context, message string) (*ChatResponse, error) {
	if e.llm == nil {
		return nil, ErrNoLLM
	}
	if e.retriever == nil {
		return nil, ErrNoRetriever
	}

	history, err := e.memory.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	standalone, err := e.condenseQuestion(ctx, history, message)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Standalone question", "question", standalone, "history", len(history))

	nodes, err := e.retriever.Retrieve(ctx, schema.QueryBundle{QueryString: standalone})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	answer, err := e.llm.Chat(ctx, e.buildQAMessages(standalone, nodes))
	if err != nil {
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}

	if err := e.memory.Put(ctx, llm.NewUserMessage(message), llm.NewAssistantMessage(answer)); err != nil {
		return nil, fmt.Errorf("failed to save chat history: %w", err)
	}

	e.logger.Info("Chat answered", "sources", len(nodes), "answer_len", len(answer))

	resp := NewChatResponse(answer)
	resp.SourceNodes = nodes
	resp.StandaloneQuestion = standalone
	return resp, nil
}

// Reset clears the conversation state.
func (e *ConversationalRetrievalEngine) Reset(ctx context.Context) error {
	return e.memory.Reset(ctx)
}

// ChatHistory returns the current chat history.
func (e *ConversationalRetrievalEngine) ChatHistory(ctx context.Context) ([]llm.ChatMessage, error) {
	return e.memory.GetAll(ctx)
}

// condenseQuestion turns the history and latest message into a standalone
// question. With no history the message is used as is.
func (e *ConversationalRetrievalEngine) condenseQuestion(ctx context.Context, history []llm.ChatMessage, message string) (string, error) {
	if len(history) == 0 {
		return message, nil
	}

	prompt := fmt.Sprintf(e.condensePromptTemplate, formatChatHistory(history), message)
	condensed, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to condense question: %w", err)
	}

	condensed = strings.TrimSpace(condensed)
	if condensed == "" {
		return message, nil
	}
	return condensed, nil
}

// buildQAMessages stuffs every retrieved chunk into one system message
// followed by the question.
func (e *ConversationalRetrievalEngine) buildQAMessages(question string, nodes []schema.NodeWithScore) []llm.ChatMessage {
	return []llm.ChatMessage{
		llm.NewSystemMessage(fmt.Sprintf(e.qaPromptTemplate, buildContextString(nodes))),
		llm.NewUserMessage(question),
	}
}

// formatChatHistory renders history as "Human:"/"Assistant:" lines.
func formatChatHistory(history []llm.ChatMessage) string {
	parts := make([]string, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case llm.MessageRoleUser:
			parts = append(parts, "Human: "+msg.Content)
		case llm.MessageRoleAssistant:
			parts = append(parts, "Assistant: "+msg.Content)
		default:
			parts = append(parts, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
		}
	}
	return strings.Join(parts, "\n")
}

func buildContextString(nodes []schema.NodeWithScore) string {
	parts := make([]string, 0, len(nodes))
	for _, node := range nodes {
		parts = append(parts, node.Node.GetText())
	}
	return strings.Join(parts, "\n\n")
}

// Ensure ConversationalRetrievalEngine implements ChatEngine.
var _ ChatEngine = (*ConversationalRetrievalEngine)(nil)
