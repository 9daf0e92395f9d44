package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"github.com/aqua777/docquery/rag/store"
	"github.com/aqua777/docquery/schema"
	"github.com/philippgille/chromem-go"
)

// Store owns a chromem-go database holding one collection per name.
type Store struct {
	db          *chromem.DB
	concurrency int
	logger      *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithConcurrency sets how many goroutines chromem uses when adding documents.
func WithConcurrency(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore opens the database at persistPath.
// If persistPath is empty, the store will be in-memory only.
func NewStore(persistPath string, opts ...StoreOption) (*Store, error) {
	var db *chromem.DB
	if persistPath != "" {
		var err error
		db, err = chromem.NewPersistentDB(persistPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to create persistent chromem db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	s := &Store{
		db:          db,
		concurrency: runtime.NumCPU(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("module", "chromem"))
	return s, nil
}

// Collection returns the named collection, creating it when absent.
func (s *Store) Collection(name string) (*Collection, error) {
	// Embeddings are computed by the ingestion pipeline and passed explicitly
	// to Add/Query, so no embedding function is registered.
	c, err := s.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection: %w", err)
	}
	return &Collection{name: name, collection: c, concurrency: s.concurrency}, nil
}

// HasCollection reports whether the named collection exists.
func (s *Store) HasCollection(name string) bool {
	return s.db.GetCollection(name, nil) != nil
}

// DeleteCollection removes the named collection. Deleting an absent
// collection is not an error.
func (s *Store) DeleteCollection(name string) error {
	if !s.HasCollection(name) {
		return nil
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	s.logger.Info("Deleted collection", "collection", name)
	return nil
}

// ListCollections returns the collection names, sorted.
func (s *Store) ListCollections() []string {
	cols := s.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collection is a vector store backed by one chromem collection.
type Collection struct {
	name        string
	collection  *chromem.Collection
	concurrency int
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Count returns the number of documents in the collection.
func (c *Collection) Count() int {
	return c.collection.Count()
}

// Add adds nodes to the collection.
func (c *Collection) Add(ctx context.Context, nodes []schema.Node) ([]string, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	docs := make([]chromem.Document, len(nodes))
	ids := make([]string, len(nodes))

	for i, node := range nodes {
		if node.ID == "" {
			return nil, fmt.Errorf("node %d has no id", i)
		}
		if len(node.Embedding) == 0 {
			return nil, fmt.Errorf("node %s has no embedding", node.ID)
		}

		// chromem-go Document.Metadata is map[string]string.
		meta := make(map[string]string, len(node.Metadata))
		for k, v := range node.Metadata {
			meta[k] = fmt.Sprintf("%v", v)
		}

		docs[i] = chromem.Document{
			ID:        node.ID,
			Content:   node.Text,
			Metadata:  meta,
			Embedding: node.Embedding,
		}
		ids[i] = node.ID
	}

	if err := c.collection.AddDocuments(ctx, docs, c.concurrency); err != nil {
		return nil, fmt.Errorf("failed to add documents to chromem collection: %w", err)
	}

	return ids, nil
}

// Query finds the top-k most similar nodes to the query embedding. TopK is
// clamped to the number of stored documents.
func (c *Collection) Query(ctx context.Context, query schema.VectorStoreQuery) ([]schema.NodeWithScore, error) {
	n := query.GetTopK()
	if count := c.collection.Count(); n > count {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	var where map[string]string
	if len(query.Filters) > 0 {
		where = query.Filters
	}

	res, err := c.collection.QueryEmbedding(ctx, query.QueryEmbedding, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromem collection: %w", err)
	}

	nodes := make([]schema.NodeWithScore, len(res))
	for i, doc := range res {
		meta := make(map[string]interface{}, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = v
		}

		nodes[i] = schema.NodeWithScore{
			Node: schema.Node{
				ID:       doc.ID,
				Text:     doc.Content,
				Metadata: meta,
			},
			Score: float64(doc.Similarity),
		}
	}

	return nodes, nil
}

var _ store.VectorStore = (*Collection)(nil)
