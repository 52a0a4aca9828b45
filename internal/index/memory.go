package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// MemoryIndex implements Index with an in-process HNSW graph. Contents live
// only as long as the process.
type MemoryIndex struct {
	mu         sync.RWMutex
	namespace  string
	dimensions int
	graph      *hnsw.Graph[uint64]

	// Deletion is lazy: removed nodes stay in the graph but lose their
	// entry, and searches skip them. The graph is rebuilt once orphans
	// outnumber live entries.
	entries map[uint64]*Entry // graph key -> live entry
	keys    map[string]uint64 // entry key -> graph key
	nextKey uint64

	closed bool
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(namespace string, dimensions int) *MemoryIndex {
	return &MemoryIndex{
		namespace:  namespace,
		dimensions: dimensions,
		graph:      newGraph(),
		entries:    make(map[uint64]*Entry),
		keys:       make(map[string]uint64),
	}
}

func newGraph() *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	return graph
}

// Close releases the graph.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.graph = nil
	m.entries = nil
	m.keys = nil
	return nil
}

// Info describes the index.
func (m *MemoryIndex) Info() Info {
	return Info{
		Backend:    "memory",
		Location:   "memory://",
		Namespace:  m.namespace,
		Dimensions: m.dimensions,
	}
}

// Upsert adds entries to the graph. An existing key is orphaned and re-added.
func (m *MemoryIndex) Upsert(ctx context.Context, entries []Entry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	for i := range entries {
		if err := checkDimensions(entries[i].Vector, m.dimensions); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	keys := make([]string, len(entries))
	for i, e := range entries {
		if e.Key == "" {
			e.Key = NewKey(m.namespace)
		}
		if old, ok := m.keys[e.Key]; ok {
			delete(m.entries, old)
		}

		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		normalizeInPlace(vec)

		key := m.nextKey
		m.nextKey++
		m.graph.Add(hnsw.MakeNode(key, vec))

		stored := e
		stored.Vector = vec
		m.entries[key] = &stored
		m.keys[e.Key] = key
		keys[i] = e.Key
	}

	m.compactIfNeeded()
	return keys, nil
}

// Search returns the nearest live entries. Orphaned nodes are skipped, so the
// graph is asked for enough extra neighbours to cover them.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if err := checkDimensions(query, m.dimensions); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	if k <= 0 || len(m.entries) == 0 {
		return []Hit{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeInPlace(q)

	orphans := m.graph.Len() - len(m.entries)
	want := min(k+orphans, m.graph.Len())

	type candidate struct {
		key      uint64
		distance float64
	}
	var found []candidate
	for _, node := range m.graph.Search(q, want) {
		if _, ok := m.entries[node.Key]; !ok {
			continue
		}
		found = append(found, candidate{
			key:      node.Key,
			distance: float64(m.graph.Distance(q, node.Value)),
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].distance != found[j].distance {
			return found[i].distance < found[j].distance
		}
		return found[i].key < found[j].key
	})
	if len(found) > k {
		found = found[:k]
	}

	hits := make([]Hit, 0, len(found))
	for _, c := range found {
		e := *m.entries[c.key]
		e.Vector = nil
		hits = append(hits, Hit{Entry: e, Distance: c.distance, Score: 1 - c.distance})
	}
	return hits, nil
}

// Delete removes entries by key.
func (m *MemoryIndex) Delete(ctx context.Context, keys []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	n := 0
	for _, k := range keys {
		if gk, ok := m.keys[k]; ok {
			delete(m.entries, gk)
			delete(m.keys, k)
			n++
		}
	}
	m.compactIfNeeded()
	return n, nil
}

// DeleteMatching removes every entry whose metadata satisfies match.
func (m *MemoryIndex) DeleteMatching(ctx context.Context, match func(Metadata) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	n := 0
	for gk, e := range m.entries {
		if match(e.Metadata()) {
			delete(m.keys, e.Key)
			delete(m.entries, gk)
			n++
		}
	}
	m.compactIfNeeded()
	return n, nil
}

// Scan calls fn for every live entry in insertion order.
func (m *MemoryIndex) Scan(ctx context.Context, fn func(Entry) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	order := make([]uint64, 0, len(m.entries))
	for gk := range m.entries {
		order = append(order, gk)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	for _, gk := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := *m.entries[gk]
		e.Vector = nil
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of live entries.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrClosed
	}
	return len(m.entries), nil
}

// Clear removes every entry and rebuilds an empty graph.
func (m *MemoryIndex) Clear(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	n := len(m.entries)
	m.reset()
	return n, nil
}

// Drop is equivalent to Clear for an in-memory index.
func (m *MemoryIndex) Drop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.reset()
	return nil
}

func (m *MemoryIndex) reset() {
	m.graph = newGraph()
	m.entries = make(map[uint64]*Entry)
	m.keys = make(map[string]uint64)
}

// compactIfNeeded rebuilds the graph from the live entries when more than
// half of its nodes are orphans. Graph keys are kept. Callers hold m.mu.
func (m *MemoryIndex) compactIfNeeded() {
	orphans := m.graph.Len() - len(m.entries)
	if orphans == 0 || orphans*2 <= m.graph.Len() {
		return
	}

	live := make([]uint64, 0, len(m.entries))
	for gk := range m.entries {
		live = append(live, gk)
	}
	sort.Slice(live, func(i, j int) bool { return live[i] < live[j] })

	graph := newGraph()
	for _, gk := range live {
		graph.Add(hnsw.MakeNode(gk, m.entries[gk].Vector))
	}
	m.graph = graph
}

// Orphans reports how many deleted nodes remain in the graph.
func (m *MemoryIndex) Orphans() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0
	}
	return m.graph.Len() - len(m.entries)
}

func normalizeInPlace(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
