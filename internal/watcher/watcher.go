// Package watcher keeps remembered files current by re-saving them when they
// change on disk.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/nickcecere/vecmem/internal/fs"
	"github.com/nickcecere/vecmem/internal/memory"
)

// DefaultDebounce is how long events are collected before they are applied.
const DefaultDebounce = 500 * time.Millisecond

// Memory is the part of the memory store the watcher drives.
type Memory interface {
	Save(ctx context.Context, paths []string) (*memory.SaveResult, error)
	DeleteSource(ctx context.Context, path, confirm string) (*memory.DeleteResult, error)
	ListSources(ctx context.Context) ([]memory.SourceSummary, error)
}

// Watcher watches remembered files, and optionally whole directories, and
// re-saves documents whose content changed.
type Watcher struct {
	memory Memory
	roots  []string
	ignore *gitignore.GitIgnore

	mu       sync.Mutex
	tracked  map[string]bool
	hashes   map[string]string
	debounce map[string]fsnotify.Op

	debounceTime time.Duration

	// callback for status updates
	onEvent func(event string, path string)
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounceTime sets the debounce duration for batching events.
func WithDebounceTime(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounceTime = d
		}
	}
}

// WithEventCallback sets a callback for applied changes. event is "save" or
// "forget".
func WithEventCallback(fn func(event string, path string)) Option {
	return func(w *Watcher) {
		w.onEvent = fn
	}
}

// WithRoots adds directories whose new documents are saved as they appear.
func WithRoots(roots ...string) Option {
	return func(w *Watcher) {
		for _, r := range roots {
			if abs, err := filepath.Abs(r); err == nil {
				w.roots = append(w.roots, abs)
			}
		}
	}
}

// WithIgnorePatterns skips paths under a root matching the gitignore-style patterns.
func WithIgnorePatterns(patterns []string) Option {
	return func(w *Watcher) {
		w.ignore = gitignore.CompileIgnoreLines(patterns...)
	}
}

// New creates a watcher for the given memory.
func New(mem Memory, opts ...Option) *Watcher {
	w := &Watcher{
		memory:       mem,
		tracked:      make(map[string]bool),
		hashes:       make(map[string]string),
		debounce:     make(map[string]fsnotify.Op),
		debounceTime: DefaultDebounce,
		onEvent:      func(string, string) {},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start begins watching for file changes. Blocks until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.refresh(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs := w.directories()
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			log.Debug("Failed to watch directory", "path", dir, "error", err)
		}
	}

	log.Info("Watching for file changes", "files", w.trackedCount(), "directories", len(dirs))

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, watcher.Add)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watcher error", "error", err)
		}
	}
}

// refresh loads the set of remembered files from memory.
func (w *Watcher) refresh(ctx context.Context) error {
	sources, err := w.memory.ListSources(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range sources {
		if s.SourceFile != memory.UnknownSource && filepath.IsAbs(s.SourceFile) {
			w.tracked[s.SourceFile] = true
		}
	}
	return nil
}

func (w *Watcher) trackedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tracked)
}

// directories returns the parent of every remembered file plus every
// directory under the roots, sorted and without duplicates.
func (w *Watcher) directories() []string {
	set := make(map[string]bool)

	w.mu.Lock()
	for path := range w.tracked {
		dir := filepath.Dir(path)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			set[dir] = true
		}
	}
	w.mu.Unlock()

	for _, root := range w.roots {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && w.skipDir(root, path) {
				return filepath.SkipDir
			}
			set[path] = true
			return nil
		})
	}

	dirs := make([]string, 0, len(set))
	for d := range set {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// rootOf returns the watched root containing path.
func (w *Watcher) rootOf(path string) (string, bool) {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return root, true
		}
	}
	return "", false
}

func (w *Watcher) skipDir(root, path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return true
	}
	rel, _ := filepath.Rel(root, path)
	return w.ignore != nil && w.ignore.MatchesPath(filepath.ToSlash(rel)+"/")
}

// wants reports whether a file event at path should be applied.
func (w *Watcher) wants(path string) bool {
	w.mu.Lock()
	tracked := w.tracked[path]
	w.mu.Unlock()
	if tracked {
		return true
	}

	root, ok := w.rootOf(path)
	if !ok || !fs.IsKnownDocument(path) {
		return false
	}
	rel, _ := filepath.Rel(root, path)
	return w.ignore == nil || !w.ignore.MatchesPath(filepath.ToSlash(rel))
}

// handleEvent queues a single file system event. add registers new
// directories with the underlying watcher.
func (w *Watcher) handleEvent(event fsnotify.Event, add func(string) error) {
	path := event.Name

	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if event.Has(fsnotify.Create) {
			if root, ok := w.rootOf(path); ok && !w.skipDir(root, path) {
				if err := add(path); err != nil {
					log.Debug("Failed to watch directory", "path", path, "error", err)
				} else {
					log.Debug("Added directory to watch", "path", path)
				}
			}
		}
		return
	}

	if !w.wants(path) {
		return
	}

	w.mu.Lock()
	w.debounce[path] |= event.Op
	w.mu.Unlock()
}

// processDebounced applies queued events periodically.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(w.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flushDebounced(ctx)
		}
	}
}

// flushDebounced applies every pending event. Files that still exist are
// saved in one batch when their content changed; files that are gone are
// forgotten.
func (w *Watcher) flushDebounced(ctx context.Context) {
	w.mu.Lock()
	if len(w.debounce) == 0 {
		w.mu.Unlock()
		return
	}
	events := w.debounce
	w.debounce = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	paths := make([]string, 0, len(events))
	for p := range events {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var changed []string
	hashes := make(map[string]string)
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}

		hash, err := fs.HashFile(path)
		if errors.Is(err, os.ErrNotExist) {
			w.forget(ctx, path)
			continue
		}
		if err != nil {
			log.Error("Failed to read changed file", "path", path, "error", err)
			continue
		}

		w.mu.Lock()
		same := w.hashes[path] == hash
		w.mu.Unlock()
		if same {
			log.Debug("File unchanged", "path", path)
			continue
		}
		changed = append(changed, path)
		hashes[path] = hash
	}

	if len(changed) == 0 {
		return
	}

	result, err := w.memory.Save(ctx, changed)
	if err != nil {
		log.Error("Failed to save changed files", "files", len(changed), "error", err)
		return
	}
	for _, fe := range result.Errors {
		log.Error("Failed to save changed file", "path", fe.Path, "error", fe.Err)
	}

	w.mu.Lock()
	for _, path := range result.Saved {
		w.tracked[path] = true
		w.hashes[path] = hashes[path]
	}
	w.mu.Unlock()

	for _, path := range result.Saved {
		w.onEvent("save", path)
		log.Info("Saved changed file", "path", path)
	}
}

// forget removes a deleted file from memory if it was remembered.
func (w *Watcher) forget(ctx context.Context, path string) {
	w.mu.Lock()
	tracked := w.tracked[path]
	delete(w.tracked, path)
	delete(w.hashes, path)
	w.mu.Unlock()

	if !tracked {
		return
	}

	res, err := w.memory.DeleteSource(ctx, path, memory.ConfirmDelete)
	if err != nil {
		log.Error("Failed to forget deleted file", "path", path, "error", err)
		return
	}

	w.onEvent("forget", path)
	log.Info("Forgot deleted file", "path", path, "chunks", res.Deleted)
}
