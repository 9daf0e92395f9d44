package reader

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/aqua777/docquery/ocr"
	"github.com/aqua777/docquery/schema"
)

// Registry maps MIME types to parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
	logger  *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("module", "reader"))
	return r
}

// NewDefaultRegistry installs a parser for every MIME type of the extension
// table. Images and image-only PDFs go through engine; PDF pages are rendered
// with rasterizer.
func NewDefaultRegistry(engine ocr.Engine, rasterizer ocr.Rasterizer, opts ...RegistryOption) *Registry {
	r := NewRegistry(opts...)

	text := NewTextParser()
	image := NewImageParser(engine)

	r.Register(MimeTypePDF, NewPDFParser(rasterizer, image, WithPDFLogger(r.logger)))
	r.Register(MimeTypeText, text)
	r.Register(MimeTypeJSON, text)
	r.Register(MimeTypeHTML, NewHTMLParser())
	r.Register(MimeTypeDoc, NewDocParser())
	r.Register(MimeTypeDocx, NewDocxParser())
	for _, mt := range []string{MimeTypePNG, MimeTypeJPEG, MimeTypeTIFF, MimeTypeBMP} {
		r.Register(mt, image)
	}
	return r
}

// Register installs p for mimeType, replacing any previous parser.
func (r *Registry) Register(mimeType string, p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[mimeType] = p
}

// Lookup returns the parser registered for mimeType.
func (r *Registry) Lookup(mimeType string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[mimeType]
	return p, ok
}

// MimeTypes returns the registered MIME types, sorted.
func (r *Registry) MimeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.parsers))
	for mt := range r.parsers {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

// ParseFile resolves the MIME type of data, parses it and stamps every node
// with the source file name and MIME type. All failures are ParseErrors.
func (r *Registry) ParseFile(ctx context.Context, filename string, data []byte) ([]schema.Node, error) {
	mimeType := ResolveMIMEType(filename, data)

	parser, ok := r.Lookup(mimeType)
	if !ok {
		r.logger.Warn("No parser for file", "file", filename, "mime_type", mimeType)
		return nil, NewParseError(filename, &UnsupportedTypeError{MimeType: mimeType})
	}

	r.logger.Info("Parsing file", "file", filename, "mime_type", mimeType, "size", len(data))

	nodes, err := parser.Parse(ctx, Blob{Data: data, MimeType: mimeType, Source: filename})
	if err != nil {
		r.logger.Error("Parsing failed", "file", filename, "error", err)
		return nil, NewParseError(filename, err)
	}

	for i := range nodes {
		nodes[i].SetMetadataValue(schema.MetadataSource, filename)
		nodes[i].SetMetadataValue(schema.MetadataMimeType, mimeType)
	}

	r.logger.Info("Parsed file", "file", filename, "nodes", len(nodes))
	return nodes, nil
}

func newDocumentNode(text string, metadata map[string]interface{}) schema.Node {
	node := schema.NewTextNode(text)
	for k, v := range metadata {
		node.SetMetadataValue(k, v)
	}
	return *node
}
