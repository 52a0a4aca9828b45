package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/nickcecere/vecmem/internal/chunk"
	"github.com/nickcecere/vecmem/internal/embeddings"
	"github.com/nickcecere/vecmem/internal/fs"
	"github.com/nickcecere/vecmem/internal/index"
)

// SaveResult reports the outcome of Save. A batch succeeds per file: the
// paths in Saved were stored, the ones in Errors were not.
type SaveResult struct {
	Saved  []string    `json:"saved"`
	Chunks int         `json:"chunks"`
	Purged int         `json:"purged"`
	Errors []FileError `json:"-"`
}

// SavedCount returns the number of files saved.
func (r *SaveResult) SavedCount() int {
	return len(r.Saved)
}

// loaded is one document turned into entries that still need vectors.
type loaded struct {
	path    string
	entries []index.Entry
	err     error
}

// Save stores the given files, replacing whatever was stored for them
// before. Missing or unreadable files are recorded in the result and do not
// stop the rest of the batch. Resource, embedding and index failures abort
// the call.
func (s *Store) Save(ctx context.Context, paths []string) (*SaveResult, error) {
	start := time.Now()
	canonical, badPaths := canonicalize(paths)
	result := &SaveResult{Errors: badPaths}
	if len(canonical) == 0 {
		return result, nil
	}

	s.wipe.RLock()
	defer s.wipe.RUnlock()

	unlockPaths := s.paths.lock(canonical)
	defer unlockPaths()

	unlockStore, err := s.fileLock.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer unlockStore()

	h, err := s.resources.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	// One purge for the whole batch, before anything new is written
	result.Purged, err = purge(ctx, h.Index, canonical)
	if err != nil {
		return nil, err
	}

	docs, err := s.loadAll(ctx, canonical)
	if err != nil {
		return nil, err
	}

	var entries []index.Entry
	for _, d := range docs {
		if d.err != nil {
			log.Warn("Failed to load file", "path", d.path, "error", d.err)
			result.Errors = append(result.Errors, FileError{Path: d.path, Err: d.err})
			continue
		}
		entries = append(entries, d.entries...)
		result.Saved = append(result.Saved, d.path)
	}

	if len(entries) > 0 {
		if err := s.embedEntries(ctx, h.Embedder, entries); err != nil {
			return nil, err
		}
		if _, err := h.Index.Upsert(ctx, entries); err != nil {
			return nil, fmt.Errorf("%w: upsert: %w", ErrIndexOperation, err)
		}
	}
	result.Chunks = len(entries)

	log.Info("Saved to memory",
		"files", len(result.Saved),
		"chunks", result.Chunks,
		"superseded", result.Purged,
		"errors", len(result.Errors),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

// loadAll loads and chunks every path concurrently. Per-file failures are
// kept on the returned documents; only cancellation fails the whole call.
func (s *Store) loadAll(ctx context.Context, paths []string) ([]loaded, error) {
	docs := make([]loaded, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries, err := s.loadOne(gctx, path)
			docs[i] = loaded{path: path, entries: entries, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// loadOne turns one file into entries using the chunk policy for its type.
func (s *Store) loadOne(ctx context.Context, path string) ([]index.Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	ct := fs.DetectContentType(path)
	doc, err := s.loader.Load(ctx, path, ct)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to load: %w", err)
	}

	chunks := chunk.ForContentType(ct).SplitPages(doc.Pages)
	if len(chunks) == 0 {
		log.Debug("No content to save", "path", path)
	}

	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = index.Entry{
			SourceFile:  path,
			Content:     c.Content,
			Sequence:    c.Sequence,
			ContentType: string(ct),
			Page:        c.Page,
		}
	}
	return entries, nil
}

// embedEntries fills in the vector of every entry, batch by batch.
func (s *Store) embedEntries(ctx context.Context, embedder embeddings.Service, entries []index.Entry) error {
	for i := 0; i < len(entries); i += s.opts.BatchSize {
		end := min(i+s.opts.BatchSize, len(entries))

		texts := make([]string, end-i)
		for j := range texts {
			texts[j] = entries[i+j].Content
		}

		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEmbedding, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), len(texts))
		}
		for j, vec := range vectors {
			entries[i+j].Vector = vec
		}
	}
	return nil
}
