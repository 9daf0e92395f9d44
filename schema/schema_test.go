package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTextNode(t *testing.T) {
	node := NewTextNode("Hello, world!")
	assert.NotEmpty(t, node.ID)
	assert.Equal(t, "Hello, world!", node.GetText())
	assert.NotNil(t, node.Metadata)
}

func TestNodeMetadata(t *testing.T) {
	node := &Node{Text: "x"}
	node.SetMetadataValue(MetadataSource, "a.pdf")
	node.SetMetadataValue(MetadataPage, 3)

	assert.Equal(t, "a.pdf", node.MetadataString(MetadataSource))
	assert.Equal(t, "3", node.MetadataString(MetadataPage))
	assert.Equal(t, "", node.MetadataString("missing"))
	assert.Equal(t, "page: 3\nsource: a.pdf", node.GetMetadataStr())

	cp := node.CopyMetadata()
	cp[MetadataSource] = "b.pdf"
	assert.Equal(t, "a.pdf", node.MetadataString(MetadataSource))
}

func TestVectorStoreQueryTopK(t *testing.T) {
	q := NewVectorStoreQuery([]float32{1}, 0)
	assert.Equal(t, 4, q.GetTopK())

	q = NewVectorStoreQuery([]float32{1}, 7)
	assert.Equal(t, 7, q.GetTopK())
}
