package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

const (
	OpenAI_API_URL_v1 = "https://api.openai.com/v1"
)

// OpenAILLM talks to any OpenAI-compatible chat completion API.
type OpenAILLM struct {
	client      *openai.Client
	model       string
	temperature *float32
	maxTokens   int
	logger      *slog.Logger
}

// OpenAIOption configures an OpenAILLM.
type OpenAIOption func(*OpenAILLM)

// WithOpenAITemperature sets the temperature.
func WithOpenAITemperature(temp float32) OpenAIOption {
	return func(o *OpenAILLM) {
		o.temperature = &temp
	}
}

// WithOpenAIMaxTokens sets the max tokens to generate.
func WithOpenAIMaxTokens(n int) OpenAIOption {
	return func(o *OpenAILLM) {
		o.maxTokens = n
	}
}

// WithOpenAILogger sets the logger.
func WithOpenAILogger(logger *slog.Logger) OpenAIOption {
	return func(o *OpenAILLM) {
		o.logger = logger
	}
}

// NewOpenAILLM creates a client for baseUrl (defaulting to the public API).
func NewOpenAILLM(baseUrl, model, apiKey string, opts ...OpenAIOption) *OpenAILLM {
	if baseUrl == "" {
		baseUrl = OpenAI_API_URL_v1
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseUrl
	return NewOpenAILLMWithClient(openai.NewClientWithConfig(config), model, opts...)
}

// NewOpenAILLMWithClient wraps an existing go-openai client.
func NewOpenAILLMWithClient(client *openai.Client, model string, opts ...OpenAIOption) *OpenAILLM {
	// Default to gpt-3.5-turbo if not specified
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	o := &OpenAILLM{
		client: client,
		model:  model,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(slog.String("module", "openai"))
	return o
}

func (o *OpenAILLM) request(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  messages,
		MaxTokens: o.maxTokens,
	}
	if o.temperature != nil {
		req.Temperature = *o.temperature
	}
	return req
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt string) (string, error) {
	o.logger.Info("Complete called", "model", o.model, "prompt_len", len(prompt))
	return o.chat(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
}

func (o *OpenAILLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	o.logger.Info("Chat called", "model", o.model, "message_count", len(messages))
	return o.chat(ctx, convertToOpenAIMessages(messages))
}

func (o *OpenAILLM) chat(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(messages))
	if err != nil {
		o.logger.Error("Chat failed", "error", err)
		return "", fmt.Errorf("openai chat failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func convertToOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	openaiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		openaiMessages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}
	return openaiMessages
}

// Ensure OpenAILLM implements LLM.
var _ LLM = (*OpenAILLM)(nil)
