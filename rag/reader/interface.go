// Package reader turns uploaded files into schema nodes. A Registry resolves
// the MIME type of a file and hands its bytes to the Parser registered for
// that type.
package reader

import (
	"context"
	"errors"

	"github.com/aqua777/docquery/schema"
)

// ErrUnsupportedType is matched by errors.Is when no parser handles a file.
var ErrUnsupportedType = errors.New("unsupported file type")

// Blob is a file held in memory together with its resolved MIME type.
type Blob struct {
	Data     []byte
	MimeType string
	Source   string
}

// Parser extracts text nodes from a blob.
type Parser interface {
	Parse(ctx context.Context, blob Blob) ([]schema.Node, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, blob Blob) ([]schema.Node, error)

// Parse calls f.
func (f ParserFunc) Parse(ctx context.Context, blob Blob) ([]schema.Node, error) {
	return f(ctx, blob)
}

// UnsupportedTypeError reports a MIME type with no registered parser.
type UnsupportedTypeError struct {
	MimeType string
}

func (e *UnsupportedTypeError) Error() string {
	return "unsupported file type: " + e.MimeType
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// ParseError wraps every failure of Registry.ParseFile.
type ParseError struct {
	Source string // File name that caused the error
	Err    error
}

func (e *ParseError) Error() string {
	return "error parsing document: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(source string, err error) *ParseError {
	return &ParseError{Source: source, Err: err}
}
