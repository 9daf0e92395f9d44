package textsplitter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aqua777/docquery/schema"
	"github.com/aqua777/docquery/validation"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultSeparator    = "\n\n"
)

// CharacterTextSplitter splits text on a fixed separator and greedily merges
// the pieces into chunks of at most ChunkSize units, carrying up to
// ChunkOverlap units of trailing pieces into the next chunk.
type CharacterTextSplitter struct {
	// ChunkSize is the maximum chunk size measured by LengthFunc.
	ChunkSize int
	// ChunkOverlap is the maximum overlap between consecutive chunks.
	ChunkOverlap int
	// Separator splits the text into pieces and joins them back. Defaults to "\n\n".
	Separator string
	// LengthFunc measures text. Defaults to RuneLength.
	LengthFunc LengthFunc

	logger *slog.Logger
}

// CharacterTextSplitterOption configures a CharacterTextSplitter.
type CharacterTextSplitterOption func(*CharacterTextSplitter)

// WithSeparator sets a custom separator.
func WithSeparator(sep string) CharacterTextSplitterOption {
	return func(s *CharacterTextSplitter) {
		s.Separator = sep
	}
}

// WithLengthFunc sets the length function.
func WithLengthFunc(fn LengthFunc) CharacterTextSplitterOption {
	return func(s *CharacterTextSplitter) {
		s.LengthFunc = fn
	}
}

// WithLogger sets the logger used for oversized chunk warnings.
func WithLogger(logger *slog.Logger) CharacterTextSplitterOption {
	return func(s *CharacterTextSplitter) {
		s.logger = logger
	}
}

// NewCharacterTextSplitter creates a CharacterTextSplitter and validates its parameters.
func NewCharacterTextSplitter(chunkSize, chunkOverlap int, opts ...CharacterTextSplitterOption) (*CharacterTextSplitter, error) {
	s := &CharacterTextSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separator:    DefaultSeparator,
		LengthFunc:   RuneLength,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid character splitter config: %w", err)
	}
	return s, nil
}

// Validate validates the current splitter configuration.
func (s *CharacterTextSplitter) Validate() error {
	return validation.ValidateCharacterSplitterConfig(validation.CharacterSplitterConfig{
		ChunkSize:    s.ChunkSize,
		ChunkOverlap: s.ChunkOverlap,
		Separator:    s.Separator,
	})
}

func (s *CharacterTextSplitter) length(text string) int {
	if s.LengthFunc == nil {
		return RuneLength(text)
	}
	return s.LengthFunc(text)
}

// SplitText splits text into chunks.
func (s *CharacterTextSplitter) SplitText(text string) []string {
	var pieces []string
	if s.Separator == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		for _, p := range strings.Split(text, s.Separator) {
			if p != "" {
				pieces = append(pieces, p)
			}
		}
	}
	return s.mergeSplits(pieces, s.Separator)
}

// mergeSplits combines pieces into chunks no larger than ChunkSize where
// possible. A single piece larger than ChunkSize becomes its own chunk.
func (s *CharacterTextSplitter) mergeSplits(pieces []string, separator string) []string {
	sepLen := s.length(separator)
	chunks := []string{}
	var current []string
	total := 0

	sepIf := func(cond bool) int {
		if cond {
			return sepLen
		}
		return 0
	}

	for _, piece := range pieces {
		pieceLen := s.length(piece)
		if total+pieceLen+sepIf(len(current) > 0) > s.ChunkSize {
			if total > s.ChunkSize {
				s.logger.Warn("Created a chunk larger than the chunk size",
					"size", total, "chunk_size", s.ChunkSize)
			}
			if len(current) > 0 {
				if chunk, ok := joinPieces(current, separator); ok {
					chunks = append(chunks, chunk)
				}
				for total > s.ChunkOverlap ||
					(total+pieceLen+sepIf(len(current) > 0) > s.ChunkSize && total > 0) {
					total -= s.length(current[0]) + sepIf(len(current) > 1)
					current = current[1:]
				}
			}
		}
		current = append(current, piece)
		total += pieceLen + sepIf(len(current) > 1)
	}

	if chunk, ok := joinPieces(current, separator); ok {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func joinPieces(pieces []string, separator string) (string, bool) {
	text := strings.TrimSpace(strings.Join(pieces, separator))
	return text, text != ""
}

// SplitNodes splits every node and returns chunk nodes that carry a copy of
// the parent metadata plus a per-node chunk index.
func (s *CharacterTextSplitter) SplitNodes(nodes []schema.Node) []schema.Node {
	var out []schema.Node
	for _, node := range nodes {
		for i, chunk := range s.SplitText(node.Text) {
			child := schema.NewTextNode(chunk)
			child.Metadata = node.CopyMetadata()
			child.Metadata[schema.MetadataChunkIndex] = i
			out = append(out, *child)
		}
	}
	return out
}

// Ensure CharacterTextSplitter implements NodeSplitter.
var _ NodeSplitter = (*CharacterTextSplitter)(nil)
