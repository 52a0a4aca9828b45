package memory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/vecmem/internal/index"
)

// Confirmation literals for destructive operations.
const (
	ConfirmDelete    = "DELETE"
	ConfirmDeleteAll = "DELETE ALL"
	ConfirmDropIndex = "DROP INDEX"
)

// SourceSummary describes one stored source file.
type SourceSummary struct {
	SourceFile string `json:"source_file"`
	Chunks     int    `json:"chunks"`
	Legacy     int    `json:"legacy,omitempty"` // entries stored in the JSON metadata encoding
}

// DeleteResult reports a destructive operation. When Confirmed is false
// nothing was touched.
type DeleteResult struct {
	Confirmed bool   `json:"confirmed"`
	Target    string `json:"target,omitempty"`
	Deleted   int    `json:"deleted"`
	Required  string `json:"required,omitempty"`
}

// Err returns nil when the operation ran, and an error wrapping
// ErrNotConfirmed naming the required literal otherwise.
func (r *DeleteResult) Err() error {
	if r.Confirmed {
		return nil
	}
	return fmt.Errorf("%w: pass %q", ErrNotConfirmed, r.Required)
}

// Stats summarizes the memory.
type Stats struct {
	Entries       int    `json:"entries"`
	Sources       int    `json:"sources"`
	LegacyEntries int    `json:"legacy_entries"`
	Dimensions    int    `json:"dimensions"`
	Backend       string `json:"backend"`
	Location      string `json:"location"`
	Namespace     string `json:"namespace"`
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	State         string `json:"state"`
	Builds        int    `json:"builds"`
}

// ListSources groups every entry by its resolved source file.
func (s *Store) ListSources(ctx context.Context) ([]SourceSummary, error) {
	h, err := s.resources.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(ctx, h.Index)
}

func summarize(ctx context.Context, idx index.Index) ([]SourceSummary, error) {
	bySource := make(map[string]*SourceSummary)
	err := idx.Scan(ctx, func(e index.Entry) error {
		md := e.Metadata()
		src := ResolveSource(md)
		if src == "" {
			src = UnknownSource
		}
		sum, ok := bySource[src]
		if !ok {
			sum = &SourceSummary{SourceFile: src}
			bySource[src] = sum
		}
		sum.Chunks++
		if IsLegacy(md) {
			sum.Legacy++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan: %w", ErrIndexOperation, err)
	}

	out := make([]SourceSummary, 0, len(bySource))
	for _, sum := range bySource {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceFile < out[j].SourceFile })
	return out, nil
}

// FindSources lists sources whose path contains substr, ignoring case.
func (s *Store) FindSources(ctx context.Context, substr string) ([]SourceSummary, error) {
	all, err := s.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(substr)
	out := make([]SourceSummary, 0, len(all))
	for _, sum := range all {
		if strings.Contains(strings.ToLower(sum.SourceFile), needle) {
			out = append(out, sum)
		}
	}
	return out, nil
}

// DeleteSource forgets one file. confirm must equal ConfirmDelete.
func (s *Store) DeleteSource(ctx context.Context, path, confirm string) (*DeleteResult, error) {
	if confirm != ConfirmDelete {
		return &DeleteResult{Target: path, Required: ConfirmDelete}, nil
	}

	target := path
	if abs, err := filepath.Abs(path); err == nil && path != "" {
		target = abs
	}

	s.wipe.RLock()
	defer s.wipe.RUnlock()

	unlockPaths := s.paths.lock([]string{target})
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

	n, err := purge(ctx, h.Index, []string{target})
	if err != nil {
		return nil, err
	}

	log.Info("Forgot file", "path", target, "entries", n)
	return &DeleteResult{Confirmed: true, Target: target, Deleted: n}, nil
}

// DeleteAll removes every entry. confirm must equal ConfirmDeleteAll.
func (s *Store) DeleteAll(ctx context.Context, confirm string) (*DeleteResult, error) {
	if confirm != ConfirmDeleteAll {
		return &DeleteResult{Required: ConfirmDeleteAll}, nil
	}

	return s.exclusive(ctx, func(idx index.Index) (int, error) {
		return idx.Clear(ctx)
	})
}

// DropIndex removes the index structure and recreates it empty.
// confirm must equal ConfirmDropIndex. An index whose dimensions no longer
// match the embedder is dropped without being opened.
func (s *Store) DropIndex(ctx context.Context, confirm string) (*DeleteResult, error) {
	if confirm != ConfirmDropIndex {
		return &DeleteResult{Required: ConfirmDropIndex}, nil
	}

	unlock, err := s.lockExclusive(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	h, err := s.resources.Ensure(ctx)
	if errors.Is(err, index.ErrDimensionMismatch) && s.opts.IndexURL != "" {
		return s.dropMismatched(ctx)
	}
	if err != nil {
		return nil, err
	}

	return wiped(h.Index, func(idx index.Index) (int, error) {
		n, err := idx.Count(ctx)
		if err != nil {
			return 0, err
		}
		return n, idx.Drop(ctx)
	})
}

// dropMismatched drops the namespace directly, then builds the handles again
// so the namespace is recreated with the embedder's dimensions.
func (s *Store) dropMismatched(ctx context.Context) (*DeleteResult, error) {
	n, err := index.DropNamespace(ctx, s.opts.IndexURL, s.opts.IndexName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexOperation, err)
	}
	log.Warn("Dropped index built for other dimensions", "namespace", s.opts.IndexName, "entries", n)

	if _, err := s.resources.Ensure(ctx); err != nil {
		return nil, err
	}
	return &DeleteResult{Confirmed: true, Target: s.opts.IndexName, Deleted: n}, nil
}

// exclusive runs fn with every save and delete excluded.
func (s *Store) exclusive(ctx context.Context, fn func(index.Index) (int, error)) (*DeleteResult, error) {
	unlock, err := s.lockExclusive(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	h, err := s.resources.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	return wiped(h.Index, fn)
}

func (s *Store) lockExclusive(ctx context.Context) (func(), error) {
	s.wipe.Lock()

	unlockStore, err := s.fileLock.acquire(ctx)
	if err != nil {
		s.wipe.Unlock()
		return nil, err
	}
	return func() {
		unlockStore()
		s.wipe.Unlock()
	}, nil
}

func wiped(idx index.Index, fn func(index.Index) (int, error)) (*DeleteResult, error) {
	n, err := fn(idx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexOperation, err)
	}

	info := idx.Info()
	log.Info("Wiped memory", "namespace", info.Namespace, "entries", n)
	return &DeleteResult{Confirmed: true, Target: info.Namespace, Deleted: n}, nil
}

// Stats reports counts and the configuration of the shared resources.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	h, err := s.resources.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	sources, err := summarize(ctx, h.Index)
	if err != nil {
		return nil, err
	}

	info := h.Index.Info()
	st := &Stats{
		Sources:    len(sources),
		Dimensions: info.Dimensions,
		Backend:    info.Backend,
		Location:   info.Location,
		Namespace:  info.Namespace,
		Provider:   string(h.Embedder.Provider()),
		Model:      h.Embedder.ModelName(),
		State:      s.resources.State().String(),
		Builds:     s.resources.Builds(),
	}
	for _, src := range sources {
		st.Entries += src.Chunks
		st.LegacyEntries += src.Legacy
	}
	return st, nil
}
