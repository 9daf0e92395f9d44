package reader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/aqua777/docquery/ocr"
	"github.com/aqua777/docquery/schema"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// OCRSource is the source metadata of nodes produced by OCR, before the
// registry replaces it with the file name.
const OCRSource = "ocr"

// ImageParser runs OCR over an image and returns the recognized text.
type ImageParser struct {
	engine ocr.Engine
}

// NewImageParser creates an ImageParser backed by engine.
func NewImageParser(engine ocr.Engine) *ImageParser {
	return &ImageParser{engine: engine}
}

func (p *ImageParser) Parse(ctx context.Context, blob Blob) ([]schema.Node, error) {
	text, err := p.recognize(ctx, blob.Data)
	if err != nil {
		return nil, fmt.Errorf("error in making OCR: %w", err)
	}
	return []schema.Node{newDocumentNode(text, map[string]interface{}{
		schema.MetadataSource: OCRSource,
	})}, nil
}

func (p *ImageParser) recognize(ctx context.Context, data []byte) (string, error) {
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("cannot identify image: %w", err)
	}
	if p.engine == nil {
		return "", fmt.Errorf("no OCR engine configured")
	}
	return p.engine.Recognize(ctx, data)
}

var _ Parser = (*ImageParser)(nil)
