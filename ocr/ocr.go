// Package ocr defines the optical character recognition seams used by the
// document parsers: an Engine that reads text out of an image and a
// Rasterizer that renders PDF pages to images.
package ocr

import (
	"context"
	"errors"
)

// ErrNoPages is returned when a document renders to zero pages.
var ErrNoPages = errors.New("document has no pages")

// Engine recognizes text in an encoded image (PNG, JPEG, TIFF, BMP).
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Rasterizer renders every page of a PDF document to a PNG image.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([][]byte, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, image []byte) (string, error)

// Recognize calls f.
func (f EngineFunc) Recognize(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// RasterizerFunc adapts a function to the Rasterizer interface.
type RasterizerFunc func(ctx context.Context, pdf []byte) ([][]byte, error)

// Rasterize calls f.
func (f RasterizerFunc) Rasterize(ctx context.Context, pdf []byte) ([][]byte, error) {
	return f(ctx, pdf)
}
