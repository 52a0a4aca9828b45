package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// pathLocks serializes work on the same source path. Locks for a batch are
// taken in sorted order so overlapping batches cannot deadlock.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*pathLock)}
}

// lock acquires every path and returns the function that releases them.
func (p *pathLocks) lock(paths []string) func() {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	held := make([]string, 0, len(sorted))
	for _, path := range sorted {
		if n := len(held); n > 0 && held[n-1] == path {
			continue
		}

		p.mu.Lock()
		l, ok := p.locks[path]
		if !ok {
			l = &pathLock{}
			p.locks[path] = l
		}
		l.refs++
		p.mu.Unlock()

		l.mu.Lock()
		held = append(held, path)
	}

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		for i := len(held) - 1; i >= 0; i-- {
			l := p.locks[held[i]]
			l.mu.Unlock()
			l.refs--
			if l.refs == 0 {
				delete(p.locks, held[i])
			}
		}
	}
}

// size reports how many paths currently have a lock entry.
func (p *pathLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}

// storeLock is a cross-process writer lock beside the index file. Goroutines
// in this process share one acquisition: the first holder takes the file lock
// and the last one releases it.
type storeLock struct {
	mu      sync.Mutex
	path    string
	flock   *flock.Flock
	holders int
}

// lockRetryDelay is how often a blocked writer retries the file lock.
const lockRetryDelay = 50 * time.Millisecond

func newStoreLock(path string) *storeLock {
	if path == "" {
		return nil
	}
	return &storeLock{path: path, flock: flock.New(path)}
}

// acquire takes the lock, waiting for other processes until ctx ends.
// A nil storeLock is a no-op.
func (l *storeLock) acquire(ctx context.Context) (func(), error) {
	if l == nil {
		return func() {}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holders == 0 {
		if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create lock directory: %w", err)
		}
		locked, err := l.flock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire store lock %s: %w", l.path, err)
		}
		if !locked {
			return nil, fmt.Errorf("failed to acquire store lock %s", l.path)
		}
	}
	l.holders++

	var once sync.Once
	return func() {
		once.Do(l.release)
	}, nil
}

func (l *storeLock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.holders--
	if l.holders == 0 {
		_ = l.flock.Unlock()
	}
}
