// Package memory implements the semantic memory: saving documents as
// embedded chunks, superseding earlier versions of a file, recalling chunks
// by meaning, and maintaining the stored sources.
package memory

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/nickcecere/vecmem/internal/config"
	"github.com/nickcecere/vecmem/internal/loader"
	"github.com/nickcecere/vecmem/internal/resource"
)

// Defaults for Options fields left at zero.
const (
	DefaultBatchSize = 50
	DefaultWorkers   = 4
)

// Options tunes a Store.
type Options struct {
	// BatchSize is the number of chunks embedded per embedder call.
	BatchSize int

	// Workers bounds how many documents are loaded and chunked at once.
	Workers int

	// LockPath is the cross-process writer lock file. Empty disables it.
	LockPath string

	// IndexURL and IndexName address the index for DropIndex when it cannot
	// be opened because its dimensions no longer match the embedder.
	IndexURL  string
	IndexName string
}

// Store is the memory. It owns the shared resource manager and is passed
// explicitly to every surface that reads or writes memories.
type Store struct {
	resources *resource.Manager
	loader    loader.Loader
	opts      Options

	paths    *pathLocks
	fileLock *storeLock

	// Saves and single-file deletes hold this for reading; wiping the
	// whole index holds it for writing.
	wipe sync.RWMutex
}

// New creates a Store around an existing resource manager and loader.
func New(resources *resource.Manager, ld loader.Loader, opts Options) *Store {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Store{
		resources: resources,
		loader:    ld,
		opts:      opts,
		paths:     newPathLocks(),
		fileLock:  newStoreLock(opts.LockPath),
	}
}

// Open wires a Store from configuration. Nothing expensive happens until the
// first operation or an explicit warm-up.
func Open(cfg *config.Config) (*Store, error) {
	backend, location, err := config.ParseIndexURL(cfg.Index.URL)
	if err != nil {
		return nil, err
	}

	var lockPath string
	if backend == config.BackendSQLite {
		lockPath = location + ".lock"
	}

	ld := loader.New(
		loader.WithPDFToText(cfg.Ingest.PDFToText),
		loader.WithMaxFileSize(int64(cfg.Ingest.MaxFileSize)),
	)
	manager := resource.NewManager(resource.NewBuilder(cfg), cfg.Server.InitTimeout)

	return New(manager, ld, Options{
		BatchSize: cfg.Ingest.BatchSize,
		Workers:   cfg.Ingest.Workers,
		LockPath:  lockPath,
		IndexURL:  cfg.Index.URL,
		IndexName: cfg.Index.Name,
	}), nil
}

// Resources returns the shared resource manager.
func (s *Store) Resources() *resource.Manager {
	return s.resources
}

// Warm starts constructing the embedder and index in the background.
func (s *Store) Warm() {
	s.resources.Warm()
}

// Close releases the embedder and index.
func (s *Store) Close() error {
	return s.resources.Close()
}

// canonicalize makes every path absolute and drops duplicates, keeping the
// first occurrence. Paths that cannot be resolved are returned as errors.
func canonicalize(paths []string) ([]string, []FileError) {
	seen := make(map[string]bool, len(paths))
	var out []string
	var errs []FileError

	for _, p := range paths {
		if p == "" {
			errs = append(errs, FileError{Path: p, Err: fmt.Errorf("%w: empty path", ErrFileNotFound)})
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			errs = append(errs, FileError{Path: p, Err: fmt.Errorf("failed to resolve path: %w", err)})
			continue
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out, errs
}
