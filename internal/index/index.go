// Package index provides the vector index that holds embedded chunks,
// keyed by source file, with SQLite+sqlite-vec and in-memory HNSW backends.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nickcecere/vecmem/internal/config"
)

var (
	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("index is closed")

	// ErrDimensionMismatch is returned when a vector does not match the
	// dimensions the index was created with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// MaxSearchK caps the number of neighbours a single search may request.
const MaxSearchK = 4096

// Metadata is the part of an entry that identifies its source document.
// Older installations stored the source path only inside MetadataJSON;
// new writes always set SourceFile.
type Metadata struct {
	SourceFile   string
	MetadataJSON string
}

// Entry is one embedded chunk stored in the index.
type Entry struct {
	Key          string    `json:"key"`
	SourceFile   string    `json:"source_file,omitempty"`
	MetadataJSON string    `json:"metadata_json,omitempty"`
	Content      string    `json:"content"`
	Sequence     int       `json:"sequence"`
	ContentType  string    `json:"content_type,omitempty"`
	Page         int       `json:"page,omitempty"`
	Vector       []float32 `json:"-"`
}

// Metadata returns the source-identifying fields of the entry.
func (e Entry) Metadata() Metadata {
	return Metadata{SourceFile: e.SourceFile, MetadataJSON: e.MetadataJSON}
}

// Hit is a search result.
type Hit struct {
	Entry
	Distance float64 `json:"distance"` // cosine distance
	Score    float64 `json:"score"`    // 1 - distance
}

// Info describes an open index.
type Info struct {
	Backend    string `json:"backend"`
	Location   string `json:"location"`
	Namespace  string `json:"namespace"`
	Dimensions int    `json:"dimensions"`
}

// Index is a namespaced vector index.
type Index interface {
	// Upsert writes entries in one atomic operation. Entries without a key
	// are assigned one; entries with an existing key replace it.
	Upsert(ctx context.Context, entries []Entry) ([]string, error)

	// Search returns up to k entries nearest to query, closest first.
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)

	// Delete removes entries by key and reports how many existed.
	Delete(ctx context.Context, keys []string) (int, error)

	// DeleteMatching removes every entry whose metadata satisfies match.
	// The scan and the delete happen as one operation.
	DeleteMatching(ctx context.Context, match func(Metadata) bool) (int, error)

	// Scan calls fn for every entry in insertion order. Vectors are not loaded.
	Scan(ctx context.Context, fn func(Entry) error) error

	// Count returns the number of entries.
	Count(ctx context.Context) (int, error)

	// Clear removes all entries and reports how many were removed.
	Clear(ctx context.Context) (int, error)

	// Drop removes the index structure and recreates it empty.
	Drop(ctx context.Context) error

	// Info describes the index.
	Info() Info

	// Close releases the index.
	Close() error
}

// Open opens the index addressed by rawURL, creating the namespace with the
// given dimensions if it does not exist yet.
func Open(rawURL, namespace string, dimensions int) (Index, error) {
	if namespace == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %d", dimensions)
	}

	backend, location, err := config.ParseIndexURL(rawURL)
	if err != nil {
		return nil, err
	}

	switch backend {
	case config.BackendMemory:
		return NewMemoryIndex(namespace, dimensions), nil
	case config.BackendSQLite:
		return NewSQLiteIndex(location, namespace, dimensions)
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", backend)
	}
}

// DropNamespace removes a namespace, its entries and its vectors without
// opening it, so a namespace created for other dimensions can be reset. It
// reports how many entries were removed. A missing database or namespace is
// not an error.
func DropNamespace(ctx context.Context, rawURL, namespace string) (int, error) {
	if namespace == "" {
		return 0, fmt.Errorf("index name is required")
	}

	backend, location, err := config.ParseIndexURL(rawURL)
	if err != nil {
		return 0, err
	}

	switch backend {
	case config.BackendMemory:
		// Nothing outlives the process.
		return 0, nil
	case config.BackendSQLite:
		return dropSQLiteNamespace(ctx, location, namespace)
	default:
		return 0, fmt.Errorf("unsupported index backend: %s", backend)
	}
}

// NewKey returns a fresh entry key scoped to namespace.
func NewKey(namespace string) string {
	return namespace + ":" + uuid.NewString()
}

func checkDimensions(vec []float32, want int) error {
	if len(vec) != want {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, want, len(vec))
	}
	return nil
}
