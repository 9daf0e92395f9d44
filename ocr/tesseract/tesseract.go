// Package tesseract implements ocr.Engine on top of the Tesseract library.
package tesseract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aqua777/docquery/ocr"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Engine runs Tesseract through gosseract. A fresh client is created per
// call, since gosseract clients are not safe for concurrent use.
type Engine struct {
	languages []string
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages sets the Tesseract languages, e.g. "eng", "deu".
func WithLanguages(langs ...string) Option {
	return func(e *Engine) {
		if len(langs) > 0 {
			e.languages = langs
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates a Tesseract OCR engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		languages: []string{DefaultLanguage},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recognize returns the text Tesseract finds in the image.
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("failed to set tesseract languages %v: %w", e.languages, err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image into tesseract: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract recognition failed: %w", err)
	}
	e.logger.Debug("OCR page recognized", "engine", "tesseract", "chars", len(text))
	return text, nil
}

// Ensure Engine implements ocr.Engine.
var _ ocr.Engine = (*Engine)(nil)
