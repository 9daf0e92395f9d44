package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/docquery/config"
)

func TestResultError(t *testing.T) {
	assert.NoError(t, resultError("✅ **Ingestion successful**\n\nok", "❌"))
	assert.ErrorIs(t, resultError("❌ **Error**\n\nboom", "❌"), errReported)
	assert.ErrorIs(t, resultError("Connection error: refused", "Error: ", "Connection error: "), errReported)
	assert.NoError(t, resultError("An answer.", "Error: ", "Connection error: "))
}

func TestClientCommandsNeedOnlyAPIURL(t *testing.T) {
	t.Setenv(config.KeyAPIURL, "http://backend:8000")
	t.Setenv(config.KeyAppModel, "")
	t.Setenv(config.KeyDBName, "")
	env := filepath.Join(t.TempDir(), "missing.env")

	cfg, err := clientLoader(env)
	require.NoError(t, err)
	assert.Equal(t, "http://backend:8000", cfg.APIURL)

	_, err = backendLoader(env)
	assert.ErrorIs(t, err, config.ErrMissingVariables)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ui", "ingest", "chat"} {
		assert.True(t, names[want], want)
	}
	assert.Error(t, ingestCmd.Args(ingestCmd, []string{"docs"}))
	assert.Error(t, chatCmd.Args(chatCmd, []string{"docs"}))
	assert.NoError(t, chatCmd.Args(chatCmd, []string{"docs", "what", "is", "this"}))
}

func TestBackend(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/embed":
			var req struct {
				Input []string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			out := make([][]float32, len(req.Input))
			for i := range out {
				out[i] = []float32{1, 0, 0}
			}
			json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
		case "/api/chat":
			json.NewEncoder(w).Encode(map[string]any{
				"message": map[string]string{"role": "assistant", "content": "Paris."},
				"done":    true,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer ollama.Close()

	dir := t.TempDir()
	cfg := &config.Config{
		AppModel:         "llama3",
		EmbedModel:       "llama3",
		DBName:           filepath.Join(dir, "db"),
		OllamaHost:       ollama.URL,
		LLMProvider:      config.ProviderOllama,
		LLMTemperature:   0.8,
		LLMNumPredict:    256,
		ChunkSize:        1000,
		ChunkOverlap:     200,
		ChunkUnit:        config.ChunkUnitChar,
		TopK:             4,
		EmbedConcurrency: 1,
		EmbedBatchSize:   16,
		MemoryTokenLimit: 3000,
		ChatStore:        config.ChatStoreMemory,
		OCRLanguages:     []string{"eng"},
		OCRDPI:           200,
		MaxUploadMB:      8,
	}
	logger := cfg.NewLogger(&bytes.Buffer{})

	b, err := newBackend(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer b.Close()

	_, err = os.Stat(cfg.ManifestPath())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	b.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", "france.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("The capital of France is Paris."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest/geo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	b.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Collection geo successfully created for 1 files.")

	req = httptest.NewRequest(http.MethodPost, "/chat/geo", strings.NewReader(`{"query":"What is the capital of France?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	b.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `"Paris."`, rec.Body.String())
}
