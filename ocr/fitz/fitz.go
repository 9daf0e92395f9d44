// Package fitz implements ocr.Rasterizer with MuPDF via go-fitz.
package fitz

import (
	"context"
	"fmt"

	gofitz "github.com/gen2brain/go-fitz"

	"github.com/aqua777/docquery/ocr"
)

// DefaultDPI is the rendering resolution used for OCR.
const DefaultDPI = 200

// Rasterizer renders PDF pages to PNG images.
type Rasterizer struct {
	dpi float64
}

// New creates a Rasterizer. A non-positive dpi selects DefaultDPI.
func New(dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{dpi: float64(dpi)}
}

// Rasterize returns one PNG per page, in page order.
func (r *Rasterizer) Rasterize(ctx context.Context, pdf []byte) ([][]byte, error) {
	doc, err := gofitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for rendering: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return nil, ocr.ErrNoPages
	}

	pages := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImagePNG(i, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// Ensure Rasterizer implements ocr.Rasterizer.
var _ ocr.Rasterizer = (*Rasterizer)(nil)
