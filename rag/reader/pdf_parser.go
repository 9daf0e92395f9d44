package reader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aqua777/docquery/ocr"
	"github.com/aqua777/docquery/schema"
	"github.com/ledongthuc/pdf"
)

// PDFTextExtractor pulls the embedded text layer out of a PDF.
type PDFTextExtractor func(data []byte) ([]schema.Node, error)

// PDFParser reads the text layer of a PDF and falls back to OCR of the
// rendered pages when that yields nothing.
type PDFParser struct {
	extract    PDFTextExtractor
	rasterizer ocr.Rasterizer
	image      *ImageParser
	logger     *slog.Logger
}

// PDFParserOption configures PDFParser.
type PDFParserOption func(*PDFParser)

// WithPDFTextExtractor replaces the native text extractor.
func WithPDFTextExtractor(fn PDFTextExtractor) PDFParserOption {
	return func(p *PDFParser) {
		p.extract = fn
	}
}

// WithPDFLogger sets the logger.
func WithPDFLogger(logger *slog.Logger) PDFParserOption {
	return func(p *PDFParser) {
		p.logger = logger
	}
}

// NewPDFParser creates a PDFParser. Pages are rendered with rasterizer and
// recognized by image.
func NewPDFParser(rasterizer ocr.Rasterizer, image *ImageParser, opts ...PDFParserOption) *PDFParser {
	p := &PDFParser{
		extract:    ExtractPDFText,
		rasterizer: rasterizer,
		image:      image,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PDFParser) Parse(ctx context.Context, blob Blob) ([]schema.Node, error) {
	nodes, err := p.extractNative(blob.Data)
	if err == nil && hasText(nodes) {
		return nodes, nil
	}
	p.logger.Info("PDF has no text layer, falling back to OCR", "source", blob.Source, "native_error", err)

	nodes, err = p.ocrPages(ctx, blob.Data)
	if err != nil {
		return nil, fmt.Errorf("error while PDF OCR: %w", err)
	}
	return nodes, nil
}

func (p *PDFParser) extractNative(data []byte) (nodes []schema.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			nodes, err = nil, fmt.Errorf("pdf extraction panicked: %v", r)
		}
	}()
	return p.extract(data)
}

func (p *PDFParser) ocrPages(ctx context.Context, data []byte) ([]schema.Node, error) {
	if p.rasterizer == nil {
		return nil, fmt.Errorf("no PDF rasterizer configured")
	}
	pages, err := p.rasterizer.Rasterize(ctx, data)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ocr.ErrNoPages
	}

	nodes := make([]schema.Node, 0, len(pages))
	for i, png := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageNodes, err := p.image.Parse(ctx, Blob{Data: png, MimeType: MimeTypePNG})
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		for _, n := range pageNodes {
			n.SetMetadataValue(schema.MetadataPage, i+1)
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func hasText(nodes []schema.Node) bool {
	for _, n := range nodes {
		if strings.TrimSpace(n.Text) != "" {
			return true
		}
	}
	return false
}

// ExtractPDFText reads the text layer of every page into a single node.
func ExtractPDFText(data []byte) ([]schema.Node, error) {
	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages := pdfReader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	var textBuilder strings.Builder
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Try to continue with other pages
			continue
		}

		text = strings.TrimSpace(text)
		if text != "" {
			if textBuilder.Len() > 0 {
				textBuilder.WriteString("\n\n")
			}
			textBuilder.WriteString(text)
		}
	}

	return []schema.Node{newDocumentNode(textBuilder.String(), map[string]interface{}{
		"total_pages": numPages,
	})}, nil
}

var _ Parser = (*PDFParser)(nil)
