package reader

import (
	"context"
	"strings"

	"github.com/aqua777/docquery/schema"
)

// TextParser returns the blob as a single UTF-8 text node. JSON is indexed the
// same way, as raw text.
type TextParser struct{}

// NewTextParser creates a TextParser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

func (p *TextParser) Parse(ctx context.Context, blob Blob) ([]schema.Node, error) {
	text := strings.ToValidUTF8(string(blob.Data), "�")
	return []schema.Node{newDocumentNode(text, nil)}, nil
}

var _ Parser = (*TextParser)(nil)
