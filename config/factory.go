package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aqua777/docquery/embedding"
	"github.com/aqua777/docquery/llm"
	"github.com/aqua777/docquery/memory"
	"github.com/aqua777/docquery/storage/chatstore"
	"github.com/aqua777/docquery/textsplitter"
)

// NewLogger returns a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.Level()}))
}

// Level maps LogLevel to a slog level; unknown values mean info.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLLM builds the chat model for APP_MODEL.
func (c *Config) NewLLM(logger *slog.Logger) (llm.LLM, error) {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return llm.NewOpenAILLM(c.OpenAIBaseURL, c.AppModel, c.OpenAIAPIKey,
			llm.WithOpenAITemperature(float32(c.LLMTemperature)),
			llm.WithOpenAIMaxTokens(c.LLMNumPredict),
			llm.WithOpenAILogger(logger),
		), nil
	case ProviderOllama:
		return llm.NewOllamaLLM(
			llm.WithOllamaBaseURL(c.OllamaHost),
			llm.WithOllamaModel(c.AppModel),
			llm.WithOllamaTemperature(float32(c.LLMTemperature)),
			llm.WithOllamaNumPredict(c.LLMNumPredict),
			llm.WithOllamaLogger(logger),
		)
	}
	return nil, fmt.Errorf("unknown %s %q", KeyLLMProvider, c.LLMProvider)
}

// NewEmbedder builds the embedding model for EMBED_MODEL. Query embeddings
// are cached unless QUERY_CACHE_SIZE is 0.
func (c *Config) NewEmbedder(logger *slog.Logger) (embedding.EmbeddingModel, error) {
	var model embedding.EmbeddingModel
	switch c.LLMProvider {
	case ProviderOpenAI:
		model = embedding.NewOpenAIEmbedding(c.OpenAIBaseURL, c.OpenAIAPIKey, c.EmbedModel)
	case ProviderOllama:
		m, err := embedding.NewOllamaEmbedding(
			embedding.WithOllamaEmbeddingBaseURL(c.OllamaHost),
			embedding.WithOllamaEmbeddingModel(c.EmbedModel),
			embedding.WithOllamaEmbeddingLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		model = m
	default:
		return nil, fmt.Errorf("unknown %s %q", KeyLLMProvider, c.LLMProvider)
	}

	if c.QueryCacheSize <= 0 {
		return model, nil
	}
	return embedding.NewCachedEmbedding(model, c.QueryCacheSize)
}

// NewChatStore builds the store holding conversation buffers. The redis
// store is pinged before it is returned.
func (c *Config) NewChatStore(ctx context.Context) (chatstore.ChatStore, error) {
	if c.ChatStore == ChatStoreRedis {
		return chatstore.NewRedisChatStore(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
	}
	return chatstore.NewSimpleChatStore(), nil
}

// NewSplitter builds the chunker for CHUNK_SIZE, CHUNK_OVERLAP and CHUNK_UNIT.
func (c *Config) NewSplitter(logger *slog.Logger) (*textsplitter.CharacterTextSplitter, error) {
	opts := []textsplitter.CharacterTextSplitterOption{textsplitter.WithLogger(logger)}
	if c.ChunkUnit == ChunkUnitToken {
		tok, err := textsplitter.DefaultTokenizer()
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer: %w", err)
		}
		opts = append(opts, textsplitter.WithLengthFunc(textsplitter.TokenLength(tok)))
	}
	return textsplitter.NewCharacterTextSplitter(c.ChunkSize, c.ChunkOverlap, opts...)
}

// NewMemoryTokenizer counts conversation tokens with tiktoken when
// CHUNK_UNIT is token. It returns nil otherwise and the buffer keeps its
// character estimate.
func (c *Config) NewMemoryTokenizer() (memory.TokenizerFunc, error) {
	if c.ChunkUnit != ChunkUnitToken {
		return nil, nil
	}
	tok, err := textsplitter.DefaultTokenizer()
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return tok.CountTokens, nil
}
