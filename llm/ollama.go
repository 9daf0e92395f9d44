package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const (
	// OllamaDefaultURL is the default Ollama API endpoint.
	OllamaDefaultURL = "http://localhost:11434"
	// OllamaDefaultModel is used when no model is configured.
	OllamaDefaultModel = "llama3.1"
)

// OllamaLLM implements the LLM interface for Ollama local models using the
// official Ollama API client.
type OllamaLLM struct {
	baseURL string
	model   string
	client  *api.Client
	logger  *slog.Logger
	// Generation options
	temperature *float32
	numPredict  *int
}

// OllamaOption configures an OllamaLLM.
type OllamaOption func(*OllamaLLM)

// WithOllamaBaseURL sets the base URL.
func WithOllamaBaseURL(baseURL string) OllamaOption {
	return func(o *OllamaLLM) {
		o.baseURL = baseURL
	}
}

// WithOllamaModel sets the model.
func WithOllamaModel(model string) OllamaOption {
	return func(o *OllamaLLM) {
		o.model = model
	}
}

// WithOllamaTemperature sets the temperature.
func WithOllamaTemperature(temp float32) OllamaOption {
	return func(o *OllamaLLM) {
		o.temperature = &temp
	}
}

// WithOllamaNumPredict sets the max tokens to generate.
func WithOllamaNumPredict(numPredict int) OllamaOption {
	return func(o *OllamaLLM) {
		o.numPredict = &numPredict
	}
}

// WithOllamaLogger sets the logger.
func WithOllamaLogger(logger *slog.Logger) OllamaOption {
	return func(o *OllamaLLM) {
		o.logger = logger
	}
}

// NewOllamaLLM creates a new Ollama LLM client.
func NewOllamaLLM(opts ...OllamaOption) (*OllamaLLM, error) {
	o := &OllamaLLM{
		baseURL: OllamaDefaultURL,
		model:   OllamaDefaultModel,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	u, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", o.baseURL, err)
	}
	o.client = api.NewClient(u, http.DefaultClient)
	o.logger = o.logger.With(slog.String("module", "ollama"))

	return o, nil
}

// Model returns the configured model name.
func (o *OllamaLLM) Model() string {
	return o.model
}

// Complete generates a completion for a given prompt.
func (o *OllamaLLM) Complete(ctx context.Context, prompt string) (string, error) {
	o.logger.Info("Complete called", "model", o.model, "prompt_len", len(prompt))

	stream := false
	req := &api.GenerateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: o.buildOptions(),
	}

	var result strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		result.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		o.logger.Error("Complete failed", "error", err)
		return "", fmt.Errorf("ollama generate failed: %w", err)
	}

	return result.String(), nil
}

// Chat generates a response for a list of chat messages.
func (o *OllamaLLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	o.logger.Info("Chat called", "model", o.model, "message_count", len(messages))

	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: o.convertMessages(messages),
		Stream:   &stream,
		Options:  o.buildOptions(),
	}

	var result strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		result.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		o.logger.Error("Chat failed", "error", err)
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}

	return result.String(), nil
}

// buildOptions builds the options map for Ollama requests.
func (o *OllamaLLM) buildOptions() map[string]any {
	options := make(map[string]any)

	if o.temperature != nil {
		options["temperature"] = *o.temperature
	}
	if o.numPredict != nil {
		options["num_predict"] = *o.numPredict
	}

	return options
}

// convertMessages converts ChatMessage slice to Ollama format.
func (o *OllamaLLM) convertMessages(messages []ChatMessage) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}

// Ensure OllamaLLM implements LLM.
var _ LLM = (*OllamaLLM)(nil)
