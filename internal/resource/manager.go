// Package resource owns the embedder and index handles shared by every
// memory operation, constructing them lazily and exactly once.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/vecmem/internal/embeddings"
	"github.com/nickcecere/vecmem/internal/index"
)

var (
	// ErrResourceInitialization wraps every construction failure.
	ErrResourceInitialization = errors.New("failed to initialize embedder and index")

	// ErrClosed is returned by Ensure after Close.
	ErrClosed = errors.New("resource manager is closed")
)

// DefaultInitTimeout bounds a single construction attempt.
const DefaultInitTimeout = 2 * time.Minute

// State is the lifecycle state of the shared handles.
type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handles is the shared embedder and index pair.
type Handles struct {
	Embedder embeddings.Service
	Index    index.Index
}

// Close releases the index.
func (h *Handles) Close() error {
	if h == nil || h.Index == nil {
		return nil
	}
	return h.Index.Close()
}

// Builder constructs the handles. It receives a context detached from any
// single caller and bounded by the manager's timeout.
type Builder func(ctx context.Context) (*Handles, error)

// build is one construction attempt that every concurrent caller waits on.
type build struct {
	done    chan struct{}
	handles *Handles
	err     error
}

// Manager hands out the shared handles. The first caller to find the manager
// uninitialized starts construction; callers arriving while it runs wait for
// the same result. A failed attempt resets the manager so the next call retries.
type Manager struct {
	builder Builder
	timeout time.Duration

	ready atomic.Pointer[Handles]

	mu      sync.Mutex
	state   State
	pending *build
	closed  bool

	builds atomic.Int64
}

// NewManager creates a manager that constructs handles with builder.
func NewManager(builder Builder, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	return &Manager{builder: builder, timeout: timeout}
}

// Ensure returns the shared handles, constructing them if needed. A caller
// whose ctx ends while waiting gives up without affecting the construction.
func (m *Manager) Ensure(ctx context.Context) (*Handles, error) {
	if h, ok := m.Current(); ok {
		return h, nil
	}

	b, err := m.start()
	if err != nil {
		return nil, err
	}
	if b == nil {
		return m.ready.Load(), nil
	}

	select {
	case <-b.done:
		if b.err != nil {
			return nil, b.err
		}
		return b.handles, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Warm starts construction in the background if nothing has started it yet.
func (m *Manager) Warm() {
	if _, err := m.start(); err != nil {
		log.Debug("Skipping warm-up", "error", err)
	}
}

// start returns the pending construction, launching one if the manager is
// uninitialized. It returns nil when the handles are already ready.
func (m *Manager) start() (*build, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	switch m.state {
	case Ready:
		return nil, nil
	case Initializing:
		return m.pending, nil
	}

	b := &build{done: make(chan struct{})}
	m.pending = b
	m.state = Initializing
	go m.run(b)
	return b, nil
}

func (m *Manager) run(b *build) {
	defer close(b.done)

	attempt := m.builds.Add(1)
	start := time.Now()
	log.Debug("Initializing embedder and index", "attempt", attempt)

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	handles, err := m.builder(ctx)
	if err == nil && handles == nil {
		err = errors.New("builder returned no handles")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil && m.closed {
		_ = handles.Close()
		err = ErrClosed
	}

	if err != nil {
		b.err = fmt.Errorf("%w: %w", ErrResourceInitialization, err)
		m.state = Uninitialized
		m.pending = nil
		log.Warn("Initialization failed", "attempt", attempt, "error", err)
		return
	}

	b.handles = handles
	m.state = Ready
	m.pending = nil
	m.ready.Store(handles)
	log.Debug("Embedder and index ready", "attempt", attempt, "duration", time.Since(start).Round(time.Millisecond))
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Builds reports how many construction attempts have started.
func (m *Manager) Builds() int {
	return int(m.builds.Load())
}

// Current returns the handles if they are ready, without triggering construction.
func (m *Manager) Current() (*Handles, bool) {
	h := m.ready.Load()
	return h, h != nil
}

// Close releases the handles. The manager cannot be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	h := m.ready.Swap(nil)
	m.state = Uninitialized
	return h.Close()
}
