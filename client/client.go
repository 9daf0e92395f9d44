// Package client talks to the docquery HTTP API and formats its answers for
// display.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aqua777/docquery/rag/reader"
)

// DefaultTimeout bounds one API call. Ingestion of large files with OCR can
// take minutes.
const DefaultTimeout = 10 * time.Minute

// Client is an HTTP client for the API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("module", "client"))
	return c
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// Ingest uploads files into collection and returns a markdown message
// describing the outcome.
func (c *Client) Ingest(ctx context.Context, collection string, files []reader.File) string {
	c.logger.Info("Ingest called", "collection", collection, "files", len(files))

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return formatUploadError(err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return formatUploadError(err)
		}
	}
	if err := w.Close(); err != nil {
		return formatUploadError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("ingest", collection), body)
	if err != nil {
		return formatUploadError(err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	status, respBody, err := c.do(req)
	if err != nil {
		c.logger.Error("Ingest failed", "error", err)
		return formatUploadError(err)
	}
	if status != http.StatusOK {
		return "❌ **Error**\n\n" + respBody
	}

	var resp struct {
		Message *string `json:"Message"`
	}
	message := "No message returned."
	if err := json.Unmarshal([]byte(respBody), &resp); err == nil && resp.Message != nil {
		message = *resp.Message
	}
	return "✅ **Ingestion successful**\n\n" + message
}

func formatUploadError(err error) string {
	return "❌ **Error during file upload**\n\n" + err.Error()
}

// Chat asks question against collection and returns the answer on one line.
func (c *Client) Chat(ctx context.Context, collection, question string) string {
	c.logger.Info("Chat called", "collection", collection)

	payload, err := json.Marshal(map[string]string{"query": question})
	if err != nil {
		return "Connection error: " + err.Error()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("chat", collection), bytes.NewReader(payload))
	if err != nil {
		return "Connection error: " + err.Error()
	}
	req.Header.Set("Content-Type", "application/json")

	status, respBody, err := c.do(req)
	if err != nil {
		c.logger.Error("Chat failed", "error", err)
		return "Connection error: " + err.Error()
	}
	if status != http.StatusOK {
		return "Error: " + respBody
	}

	var answer string
	if err := json.Unmarshal([]byte(respBody), &answer); err != nil {
		answer = strings.Trim(respBody, `"`)
	}
	return strings.ReplaceAll(answer, "\n", " ")
}

// ResetChat clears the server side conversation of collection.
func (c *Client) ResetChat(ctx context.Context, collection string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("chat", collection, "history"), nil)
	if err != nil {
		return err
	}

	status, respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return fmt.Errorf("reset failed with status %d: %s", status, respBody)
	}
	return nil
}

func (c *Client) do(req *http.Request) (int, string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, strings.TrimSpace(string(data)), nil
}
