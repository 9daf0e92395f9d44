package server

import (
	"context"
	"fmt"

	"github.com/aqua777/docquery/rag/store/chromem"
	"github.com/aqua777/docquery/storage/manifest"
)

// CollectionSummary describes one stored collection.
type CollectionSummary struct {
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
}

// Catalog lists what has been ingested.
type Catalog interface {
	Collections(ctx context.Context) ([]CollectionSummary, error)
	Files(ctx context.Context, collection string) ([]manifest.Entry, error)
}

// StoreCatalog answers catalog queries from the vector store and the
// ingestion manifest.
type StoreCatalog struct {
	Store    *chromem.Store
	Manifest *manifest.Manifest
}

// Collections returns every collection with its chunk count.
func (c *StoreCatalog) Collections(ctx context.Context) ([]CollectionSummary, error) {
	names := c.Store.ListCollections()
	out := make([]CollectionSummary, 0, len(names))
	for _, name := range names {
		col, err := c.Store.Collection(name)
		if err != nil {
			return nil, err
		}
		out = append(out, CollectionSummary{Name: name, Chunks: col.Count()})
	}
	return out, nil
}

// Files returns the manifest entries of collection.
func (c *StoreCatalog) Files(ctx context.Context, collection string) ([]manifest.Entry, error) {
	if !c.Store.HasCollection(collection) {
		return nil, fmt.Errorf("collection %s: %w", collection, ErrNotFound)
	}
	entries, err := c.Manifest.List(collection)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []manifest.Entry{}
	}
	return entries, nil
}

var _ Catalog = (*StoreCatalog)(nil)
