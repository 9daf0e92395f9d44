package textsplitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aqua777/docquery/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSplitter(t *testing.T, size, overlap int, opts ...CharacterTextSplitterOption) *CharacterTextSplitter {
	t.Helper()
	s, err := NewCharacterTextSplitter(size, overlap, opts...)
	require.NoError(t, err)
	return s
}

func TestCharacterTextSplitter_Merge(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{
			name:    "overlap carries previous word",
			text:    "foo bar baz 123",
			size:    7,
			overlap: 3,
			want:    []string{"foo bar", "bar baz", "baz 123"},
		},
		{
			name:    "short words merged at the end",
			text:    "foo bar baz a a",
			size:    3,
			overlap: 1,
			want:    []string{"foo", "bar", "baz", "a a"},
		},
		{
			name:    "short words merged at the start",
			text:    "a a foo bar baz",
			size:    3,
			overlap: 1,
			want:    []string{"a a", "foo", "bar", "baz"},
		},
		{
			name:    "pieces longer than chunk size",
			text:    "foo bar baz 123",
			size:    1,
			overlap: 1,
			want:    []string{"foo", "bar", "baz", "123"},
		},
		{
			name:    "empty pieces dropped",
			text:    "foo  bar",
			size:    2,
			overlap: 0,
			want:    []string{"foo", "bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSplitter(t, tt.size, tt.overlap, WithSeparator(" "))
			assert.Equal(t, tt.want, s.SplitText(tt.text))
		})
	}
}

func TestCharacterTextSplitter_Empty(t *testing.T) {
	s := newSplitter(t, DefaultChunkSize, DefaultChunkOverlap)
	assert.Empty(t, s.SplitText(""))
	assert.Empty(t, s.SplitText("\n\n   \n\n"))
}

func TestCharacterTextSplitter_DefaultParagraphs(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 20; i++ {
		paragraphs = append(paragraphs, strings.Repeat(string(rune('a'+i)), 150))
	}
	text := strings.Join(paragraphs, "\n\n")

	s := newSplitter(t, DefaultChunkSize, DefaultChunkOverlap)
	chunks := s.SplitText(text)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), DefaultChunkSize)
	}

	// Consecutive chunks share the trailing paragraph.
	for i := 0; i+1 < len(chunks); i++ {
		parts := strings.Split(chunks[i], "\n\n")
		last := parts[len(parts)-1]
		assert.True(t, strings.HasPrefix(chunks[i+1], last), "chunk %d should start with overlap", i+1)
	}

	// Every paragraph survives.
	joined := strings.Join(chunks, "\n\n")
	for _, p := range paragraphs {
		assert.Contains(t, joined, p)
	}
}

func TestCharacterTextSplitter_CountsRunes(t *testing.T) {
	s := newSplitter(t, 5, 0, WithSeparator(" "))
	// Each word is 2 runes but 4+ bytes.
	chunks := s.SplitText("éé üü öö")
	assert.Equal(t, []string{"éé üü", "öö"}, chunks)
}

type wordCounter struct{}

func (wordCounter) CountTokens(text string) int { return len(strings.Fields(text)) }

func TestCharacterTextSplitter_TokenLength(t *testing.T) {
	s := newSplitter(t, 2, 0, WithSeparator("\n"), WithLengthFunc(TokenLength(wordCounter{})))
	chunks := s.SplitText("one two\nthree\nfour five")
	assert.Equal(t, []string{"one two", "three", "four five"}, chunks)
}

func TestCharacterTextSplitter_InvalidConfig(t *testing.T) {
	_, err := NewCharacterTextSplitter(0, 0)
	assert.Error(t, err)

	_, err = NewCharacterTextSplitter(100, 200)
	assert.Error(t, err)
}

func TestCharacterTextSplitter_SplitNodes(t *testing.T) {
	s := newSplitter(t, 3, 0, WithSeparator(" "))
	nodes := []schema.Node{
		{Text: "foo bar", Metadata: map[string]interface{}{schema.MetadataSource: "a.txt"}},
		{Text: "baz", Metadata: map[string]interface{}{schema.MetadataSource: "b.txt", schema.MetadataPage: 2}},
	}

	chunks := s.SplitNodes(nodes)
	require.Len(t, chunks, 3)

	assert.Equal(t, "foo", chunks[0].Text)
	assert.Equal(t, "a.txt", chunks[0].Metadata[schema.MetadataSource])
	assert.Equal(t, 0, chunks[0].Metadata[schema.MetadataChunkIndex])
	assert.Equal(t, "bar", chunks[1].Text)
	assert.Equal(t, 1, chunks[1].Metadata[schema.MetadataChunkIndex])
	assert.Equal(t, "baz", chunks[2].Text)
	assert.Equal(t, 2, chunks[2].Metadata[schema.MetadataPage])
	assert.NotEqual(t, chunks[0].ID, chunks[1].ID)

	// Parent metadata is not aliased.
	_, ok := nodes[0].Metadata[schema.MetadataChunkIndex]
	assert.False(t, ok)
}
