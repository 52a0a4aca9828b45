package embeddings

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of embeddings kept when no size is given.
const DefaultCacheSize = 1000

// cacheKey separates document and query embeddings because some models
// prefix them differently.
type cacheKey struct {
	hash  uint64
	query bool
}

// CachedService wraps a Service with an LRU cache keyed by text hash.
// Re-saving an unchanged file and repeating a recall both hit the cache.
type CachedService struct {
	inner Service
	cache *lru.Cache[cacheKey, []float32]
}

// NewCachedService wraps inner with a cache of the given size.
func NewCachedService(inner Service, size int) *CachedService {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[cacheKey, []float32](size)
	return &CachedService{inner: inner, cache: cache}
}

func (c *CachedService) key(text string, query bool) cacheKey {
	h := xxhash.New()
	_, _ = h.WriteString(c.inner.ModelName())
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(text)
	return cacheKey{hash: h.Sum64(), query: query}
}

// Embed returns a cached document embedding or computes one.
func (c *CachedService) Embed(ctx context.Context, text string) ([]float32, error) {
	k := c.key(text, false)
	if vec, ok := c.cache.Get(k); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, vec)
	return vec, nil
}

// EmbedQuery returns a cached query embedding or computes one.
func (c *CachedService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	k := c.key(text, true)
	if vec, ok := c.cache.Get(k); ok {
		return vec, nil
	}
	vec, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(k, vec)
	return vec, nil
}

// EmbedBatch embeds only the texts missing from the cache, in one inner call.
func (c *CachedService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := c.cache.Get(c.key(text, false)); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
	}
	for j, idx := range missIdx {
		out[idx] = fresh[j]
		c.cache.Add(c.key(texts[idx], false), fresh[j])
	}
	return out, nil
}

// Dimensions passes through to the wrapped service.
func (c *CachedService) Dimensions() int { return c.inner.Dimensions() }

// Provider passes through to the wrapped service.
func (c *CachedService) Provider() Provider { return c.inner.Provider() }

// ModelName passes through to the wrapped service.
func (c *CachedService) ModelName() string { return c.inner.ModelName() }

// Len returns the number of cached embeddings.
func (c *CachedService) Len() int { return c.cache.Len() }
