// Package config loads the environment driven configuration of docquery and
// builds the clients it describes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment variable names.
const (
	KeyDebug            = "DEBUG"
	KeyLogLevel         = "LOG_LEVEL"
	KeyAPIURL           = "API_URL"
	KeyAppModel         = "APP_MODEL"
	KeyDBName           = "DB_NAME"
	KeyListenAddr       = "LISTEN_ADDR"
	KeyOllamaHost       = "OLLAMA_HOST"
	KeyEmbedModel       = "EMBED_MODEL"
	KeyLLMProvider      = "LLM_PROVIDER"
	KeyOpenAIAPIKey     = "OPENAI_API_KEY"
	KeyOpenAIBaseURL    = "OPENAI_BASE_URL"
	KeyLLMTemperature   = "LLM_TEMPERATURE"
	KeyLLMNumPredict    = "LLM_NUM_PREDICT"
	KeyChunkSize        = "CHUNK_SIZE"
	KeyChunkOverlap     = "CHUNK_OVERLAP"
	KeyChunkUnit        = "CHUNK_UNIT"
	KeyTopK             = "TOP_K"
	KeyEmbedConcurrency = "EMBED_CONCURRENCY"
	KeyEmbedBatchSize   = "EMBED_BATCH_SIZE"
	KeyQueryCacheSize   = "QUERY_CACHE_SIZE"
	KeyMemoryTokenLimit = "MEMORY_TOKEN_LIMIT"
	KeyChatStore        = "CHAT_STORE"
	KeyRedisAddr        = "REDIS_ADDR"
	KeyRedisPassword    = "REDIS_PASSWORD"
	KeyRedisDB          = "REDIS_DB"
	KeyOCRLanguages     = "OCR_LANGUAGES"
	KeyOCRDPI           = "OCR_DPI"
	KeyMaxUploadMB      = "MAX_UPLOAD_MB"
	KeyRequestTimeout   = "REQUEST_TIMEOUT"
)

// Provider and store names.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	ChatStoreMemory = "memory"
	ChatStoreRedis  = "redis"

	ChunkUnitChar  = "char"
	ChunkUnitToken = "token"
)

// RequiredVariables must be set for the backend to start.
var RequiredVariables = []string{KeyAPIURL, KeyAppModel, KeyDBName}

// ClientRequiredVariables must be set for the commands that only talk to the
// HTTP API.
var ClientRequiredVariables = []string{KeyAPIURL}

// ErrMissingVariables is matched by the error Load returns when required
// variables are unset.
var ErrMissingVariables = errors.New("missing environment variables")

// MissingVariablesError lists every unset required variable.
type MissingVariablesError struct {
	Names []string
}

func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingVariables, strings.Join(e.Names, ", "))
}

func (e *MissingVariablesError) Is(target error) bool {
	return target == ErrMissingVariables
}

// Config is the resolved configuration.
type Config struct {
	Debug    bool
	LogLevel string

	APIURL     string
	AppModel   string
	DBName     string
	ListenAddr string

	OllamaHost     string
	EmbedModel     string
	LLMProvider    string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	LLMTemperature float64
	LLMNumPredict  int

	ChunkSize        int
	ChunkOverlap     int
	ChunkUnit        string
	TopK             int
	EmbedConcurrency int
	EmbedBatchSize   int
	QueryCacheSize   int
	MemoryTokenLimit int

	ChatStore     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OCRLanguages []string
	OCRDPI       int

	MaxUploadMB    int
	RequestTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyListenAddr, ":8000")
	v.SetDefault(KeyOllamaHost, "http://localhost:11434")
	v.SetDefault(KeyLLMProvider, ProviderOllama)
	v.SetDefault(KeyLLMTemperature, 0.8)
	v.SetDefault(KeyLLMNumPredict, 256)
	v.SetDefault(KeyChunkSize, 1000)
	v.SetDefault(KeyChunkOverlap, 200)
	v.SetDefault(KeyChunkUnit, ChunkUnitChar)
	v.SetDefault(KeyTopK, 4)
	v.SetDefault(KeyEmbedConcurrency, 4)
	v.SetDefault(KeyEmbedBatchSize, 16)
	v.SetDefault(KeyQueryCacheSize, 256)
	v.SetDefault(KeyMemoryTokenLimit, 3000)
	v.SetDefault(KeyChatStore, ChatStoreMemory)
	v.SetDefault(KeyRedisAddr, "localhost:6379")
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyOCRLanguages, "eng")
	v.SetDefault(KeyOCRDPI, 200)
	v.SetDefault(KeyMaxUploadMB, 64)
	v.SetDefault(KeyRequestTimeout, "5m")
}

// Load reads envFiles (".env" when none are given) into the environment and
// resolves the backend configuration from it. Missing env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	cfg, err := read(envFiles)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient is Load for the API client commands: only API_URL is required.
func LoadClient(envFiles ...string) (*Config, error) {
	cfg, err := read(envFiles)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(envFiles []string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Debug:    isTruthy(v.GetString(KeyDebug)),
		LogLevel: strings.ToLower(v.GetString(KeyLogLevel)),

		APIURL:     v.GetString(KeyAPIURL),
		AppModel:   v.GetString(KeyAppModel),
		DBName:     v.GetString(KeyDBName),
		ListenAddr: v.GetString(KeyListenAddr),

		OllamaHost:     v.GetString(KeyOllamaHost),
		EmbedModel:     v.GetString(KeyEmbedModel),
		LLMProvider:    strings.ToLower(v.GetString(KeyLLMProvider)),
		OpenAIAPIKey:   v.GetString(KeyOpenAIAPIKey),
		OpenAIBaseURL:  v.GetString(KeyOpenAIBaseURL),
		LLMTemperature: v.GetFloat64(KeyLLMTemperature),
		LLMNumPredict:  v.GetInt(KeyLLMNumPredict),

		ChunkSize:        v.GetInt(KeyChunkSize),
		ChunkOverlap:     v.GetInt(KeyChunkOverlap),
		ChunkUnit:        strings.ToLower(v.GetString(KeyChunkUnit)),
		TopK:             v.GetInt(KeyTopK),
		EmbedConcurrency: v.GetInt(KeyEmbedConcurrency),
		EmbedBatchSize:   v.GetInt(KeyEmbedBatchSize),
		QueryCacheSize:   v.GetInt(KeyQueryCacheSize),
		MemoryTokenLimit: v.GetInt(KeyMemoryTokenLimit),

		ChatStore:     strings.ToLower(v.GetString(KeyChatStore)),
		RedisAddr:     v.GetString(KeyRedisAddr),
		RedisPassword: v.GetString(KeyRedisPassword),
		RedisDB:       v.GetInt(KeyRedisDB),

		OCRLanguages: splitList(v.GetString(KeyOCRLanguages)),
		OCRDPI:       v.GetInt(KeyOCRDPI),

		MaxUploadMB:    v.GetInt(KeyMaxUploadMB),
	}
	timeout, err := parseTimeout(v.GetString(KeyRequestTimeout))
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = timeout
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = cfg.AppModel
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// parseTimeout accepts a Go duration or a plain number of seconds.
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyRequestTimeout, s, err)
	}
	return d, nil
}

func (c *Config) checkRequired(names []string) error {
	values := map[string]string{
		KeyAPIURL:   c.APIURL,
		KeyAppModel: c.AppModel,
		KeyDBName:   c.DBName,
	}
	var missing []string
	for _, name := range names {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingVariablesError{Names: missing}
	}
	return nil
}

// ValidateClient reports an unset API_URL.
func (c *Config) ValidateClient() error {
	return c.checkRequired(ClientRequiredVariables)
}

// Validate reports unset required variables and invalid values.
func (c *Config) Validate() error {
	if err := c.checkRequired(RequiredVariables); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyRequestTimeout, c.RequestTimeout)
	}

	switch c.LLMProvider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown %s %q", KeyLLMProvider, c.LLMProvider)
	}
	switch c.ChatStore {
	case ChatStoreMemory, ChatStoreRedis:
	default:
		return fmt.Errorf("unknown %s %q", KeyChatStore, c.ChatStore)
	}
	switch c.ChunkUnit {
	case ChunkUnitChar, ChunkUnitToken:
	default:
		return fmt.Errorf("unknown %s %q", KeyChunkUnit, c.ChunkUnit)
	}
	return nil
}

// VectorsPath is the chromem-go persistence directory.
func (c *Config) VectorsPath() string {
	return filepath.Join(c.DBName, "vectors")
}

// ManifestPath is the bbolt ingestion manifest file.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.DBName, "manifest.db")
}

// MaxUploadBytes is the multipart memory limit.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
