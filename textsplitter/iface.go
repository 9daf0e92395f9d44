package textsplitter

import (
	"unicode/utf8"

	"github.com/aqua777/docquery/schema"
)

// TextSplitter is the interface for splitting text.
type TextSplitter interface {
	SplitText(text string) []string
}

// NodeSplitter splits parsed nodes into chunk nodes that inherit metadata.
type NodeSplitter interface {
	TextSplitter
	SplitNodes(nodes []schema.Node) []schema.Node
}

// LengthFunc measures the size of a piece of text in the splitter's unit.
type LengthFunc func(text string) int

// RuneLength counts Unicode code points.
func RuneLength(text string) int {
	return utf8.RuneCountInString(text)
}

// TokenCounter is an interface for counting tokens.
type TokenCounter interface {
	CountTokens(text string) int
}

// TokenLength adapts a TokenCounter to a LengthFunc.
func TokenLength(counter TokenCounter) LengthFunc {
	return counter.CountTokens
}
