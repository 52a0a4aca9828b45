package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/vecmem/internal/config"
	"github.com/nickcecere/vecmem/internal/embeddings"
	"github.com/nickcecere/vecmem/internal/index"
)

func memoryHandles() *Handles {
	return &Handles{
		Embedder: embeddings.NewStaticService(),
		Index:    index.NewMemoryIndex("test", embeddings.StaticDimensions),
	}
}

func TestEnsureBuildsOnceUnderConcurrency(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32

	m := NewManager(func(ctx context.Context) (*Handles, error) {
		calls.Add(1)
		<-release
		return memoryHandles(), nil
	}, time.Second)
	defer m.Close()

	const n = 32
	results := make([]*Handles, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Ensure(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return m.State() == Initializing }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, m.Builds())
	assert.Equal(t, Ready, m.State())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestEnsureReadyReturnsImmediately(t *testing.T) {
	m := NewManager(func(ctx context.Context) (*Handles, error) {
		return memoryHandles(), nil
	}, time.Second)
	defer m.Close()

	first, err := m.Ensure(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context does not matter once the handles exist
	second, err := m.Ensure(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, m.Builds())

	current, ok := m.Current()
	assert.True(t, ok)
	assert.Same(t, first, current)
}

func TestEnsureFailureResetsForRetry(t *testing.T) {
	boom := errors.New("ollama is not running")
	var fail atomic.Bool
	fail.Store(true)

	m := NewManager(func(ctx context.Context) (*Handles, error) {
		if fail.Load() {
			return nil, boom
		}
		return memoryHandles(), nil
	}, time.Second)
	defer m.Close()

	_, err := m.Ensure(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceInitialization)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Uninitialized, m.State())

	_, ok := m.Current()
	assert.False(t, ok)

	fail.Store(false)
	h, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, Ready, m.State())
	assert.Equal(t, 2, m.Builds())
}

func TestEnsureFailureReachesEveryWaiter(t *testing.T) {
	release := make(chan struct{})
	m := NewManager(func(ctx context.Context) (*Handles, error) {
		<-release
		return nil, errors.New("index unreachable")
	}, time.Second)
	defer m.Close()

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := m.Ensure(context.Background())
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return m.State() == Initializing }, time.Second, time.Millisecond)
	close(release)

	for i := 0; i < n; i++ {
		assert.ErrorIs(t, <-errs, ErrResourceInitialization)
	}
	assert.Equal(t, Uninitialized, m.State())
}

func TestEnsureCallerCancellationDoesNotPoisonBuild(t *testing.T) {
	release := make(chan struct{})
	m := NewManager(func(ctx context.Context) (*Handles, error) {
		select {
		case <-release:
			return memoryHandles(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, 5*time.Second)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Ensure(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return m.State() == Initializing }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	h, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, 1, m.Builds())
}

func TestBuildTimeout(t *testing.T) {
	m := NewManager(func(ctx context.Context) (*Handles, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, 20*time.Millisecond)
	defer m.Close()

	_, err := m.Ensure(context.Background())
	assert.ErrorIs(t, err, ErrResourceInitialization)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNilHandlesIsAFailure(t *testing.T) {
	m := NewManager(func(ctx context.Context) (*Handles, error) {
		return nil, nil
	}, time.Second)
	defer m.Close()

	_, err := m.Ensure(context.Background())
	assert.ErrorIs(t, err, ErrResourceInitialization)
}

func TestWarm(t *testing.T) {
	var calls atomic.Int32
	m := NewManager(func(ctx context.Context) (*Handles, error) {
		calls.Add(1)
		return memoryHandles(), nil
	}, time.Second)
	defer m.Close()

	m.Warm()
	m.Warm()
	require.Eventually(t, func() bool { return m.State() == Ready }, time.Second, time.Millisecond)

	m.Warm()
	_, err := m.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClose(t *testing.T) {
	h := memoryHandles()
	m := NewManager(func(ctx context.Context) (*Handles, error) {
		return h, nil
	}, time.Second)

	_, err := m.Ensure(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err = h.Index.Count(context.Background())
	assert.ErrorIs(t, err, index.ErrClosed)

	_, err = m.Ensure(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "initializing", Initializing.String())
	assert.Equal(t, "ready", Ready.String())
}

func TestNewBuilder(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.URL = "memory://"
	cfg.Index.Name = "notes"
	cfg.Embeddings.Provider = "static"

	h, err := NewBuilder(cfg)(context.Background())
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, "memory", h.Index.Info().Backend)
	assert.Equal(t, embeddings.StaticDimensions, h.Index.Info().Dimensions)
	assert.Equal(t, embeddings.StaticModelName, h.Embedder.ModelName())
	_, cached := h.Embedder.(*embeddings.CachedService)
	assert.True(t, cached)
}

func TestNewBuilderProbeFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Index.URL = "memory://"
	cfg.Embeddings.Ollama.URL = "http://127.0.0.1:1"

	_, err := NewBuilder(cfg)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding probe failed")
}
