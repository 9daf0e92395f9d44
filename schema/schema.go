package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Well-known metadata keys attached to nodes during parsing and ingestion.
const (
	MetadataSource     = "source"
	MetadataMimeType   = "mime_type"
	MetadataPage       = "page"
	MetadataChunkIndex = "chunk_index"
	MetadataTitle      = "title"
)

// Node represents a chunk of data: a parsed document, a page of one, or a
// split chunk ready for embedding.
type Node struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Embedding []float32              `json:"embedding,omitempty"`
}

// NewNode creates a new Node with a random ID.
func NewNode() *Node {
	return &Node{
		ID:       uuid.New().String(),
		Metadata: make(map[string]interface{}),
	}
}

// NewTextNode creates a new text node with the given text.
func NewTextNode(text string) *Node {
	node := NewNode()
	node.Text = text
	return node
}

// GetText returns the text content without metadata.
func (n *Node) GetText() string {
	return n.Text
}

// SetMetadataValue sets a single metadata key, allocating the map if needed.
func (n *Node) SetMetadataValue(key string, value interface{}) {
	if n.Metadata == nil {
		n.Metadata = make(map[string]interface{})
	}
	n.Metadata[key] = value
}

// MetadataString returns the metadata value for key formatted as a string,
// or "" when the key is absent.
func (n *Node) MetadataString(key string) string {
	v, ok := n.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// GetMetadataStr returns metadata as sorted "key: value" lines.
func (n *Node) GetMetadataStr() string {
	keys := make([]string, 0, len(n.Metadata))
	for key := range n.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+n.MetadataString(key))
	}
	return strings.Join(parts, "\n")
}

// CopyMetadata returns a shallow copy of the node metadata.
func (n *Node) CopyMetadata() map[string]interface{} {
	out := make(map[string]interface{}, len(n.Metadata))
	for k, v := range n.Metadata {
		out[k] = v
	}
	return out
}

// NodeWithScore represents a node with a similarity score.
type NodeWithScore struct {
	Node  Node    `json:"node"`
	Score float64 `json:"score"`
}

// QueryBundle encapsulates the query string.
type QueryBundle struct {
	QueryString string `json:"query_string"`
}

// VectorStoreQuery represents a query to the vector store.
type VectorStoreQuery struct {
	// QueryEmbedding is the embedding vector for similarity search.
	QueryEmbedding []float32 `json:"query_embedding,omitempty"`
	// SimilarityTopK is the number of top results to return.
	SimilarityTopK int `json:"similarity_top_k"`
	// Filters are exact-match metadata filters.
	Filters map[string]string `json:"filters,omitempty"`
}

// NewVectorStoreQuery creates a new VectorStoreQuery.
func NewVectorStoreQuery(embedding []float32, topK int) VectorStoreQuery {
	return VectorStoreQuery{
		QueryEmbedding: embedding,
		SimilarityTopK: topK,
	}
}

// GetTopK returns the top-k value, defaulting to 4.
func (q VectorStoreQuery) GetTopK() int {
	if q.SimilarityTopK > 0 {
		return q.SimilarityTopK
	}
	return 4
}
