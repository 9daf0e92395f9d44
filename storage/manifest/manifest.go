// Package manifest records which files were ingested into each collection.
package manifest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	bolt "go.etcd.io/bbolt"
)

// Entry describes one ingested file.
type Entry struct {
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	Size       int       `json:"size"`
	Hash       string    `json:"hash"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Manifest is a BoltDB file with one bucket per collection. Entries are JSON
// values keyed by the bucket sequence, so List returns them in insertion order.
type Manifest struct {
	db *bolt.DB
}

// Open opens or creates the manifest at path.
func Open(path string) (*Manifest, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create manifest directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	return &Manifest{db: db}, nil
}

// HashContent returns the hex xxhash64 digest of data.
func HashContent(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// Put appends entries to the collection's bucket.
func (m *Manifest) Put(collection string, entries ...Entry) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", collection, err)
		}

		for _, e := range entries {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			value, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to encode entry: %w", err)
			}
			if err := b.Put(itob(seq), value); err != nil {
				return fmt.Errorf("failed to put entry: %w", err)
			}
		}
		return nil
	})
}

// List returns the entries of a collection in insertion order. An unknown
// collection has no entries.
func (m *Manifest) List(collection string) ([]Entry, error) {
	var entries []Entry

	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to decode entry: %w", err)
			}
			entries = append(entries, e)
			return nil
		})
	})

	return entries, err
}

// Reset drops every entry of a collection.
func (m *Manifest) Reset(collection string) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(collection)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(collection))
	})
}

// Collections returns the names of collections with entries, in key order.
func (m *Manifest) Collections() ([]string, error) {
	var names []string
	err := m.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	return names, err
}

// Close closes the database file.
func (m *Manifest) Close() error {
	return m.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
