package khoj

import (
	"context"
	"fmt"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/remiges-tech/khoj/providers"
	"github.com/remiges-tech/khoj/query"
)

// DefaultCacheSize is the number of searches a CachedProvider keeps when
// given a non-positive size.
const DefaultCacheSize = 256

// CachedProvider wraps a Provider with an LRU cache of query results.
// Repeated keystrokes over the same prefix, such as deleting and retyping a
// letter, are answered without a backend round trip. Every write purges the
// cache, and a query that overlapped a write is not cached.
type CachedProvider struct {
	inner providers.Provider
	cache *lru.Cache[string, []providers.LineRecord]

	// mu orders cache additions against purges; generation counts writes.
	mu         sync.Mutex
	generation uint64
}

var _ providers.Provider = (*CachedProvider)(nil)

// NewCachedProvider creates a cached provider wrapping inner.
func NewCachedProvider(inner providers.Provider, cacheSize int) *CachedProvider {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []providers.LineRecord](cacheSize)
	return &CachedProvider{
		inner: inner,
		cache: cache,
	}
}

// cacheKey identifies a query by everything that can change its result.
func cacheKey(key string, q query.SearchQuery, options providers.QueryOptions) string {
	return fmt.Sprintf("%s\x00%d\x00%s\x00%d\x00%t%t%t", key, q.Mode, q.Value, options.MaxResults,
		options.IncludeTranslations, options.IncludeTransliterations, options.IncludeCitations)
}

// Query returns cached results if available, otherwise queries and caches.
func (c *CachedProvider) Query(ctx context.Context, key string, q query.SearchQuery, options providers.QueryOptions) ([]providers.LineRecord, error) {
	k := cacheKey(key, q, options)
	if results, ok := c.cache.Get(k); ok {
		return slices.Clone(results), nil
	}

	generation := c.currentGeneration()
	results, err := c.inner.Query(ctx, key, q, options)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generation == generation {
		c.cache.Add(k, slices.Clone(results))
	}
	c.mu.Unlock()
	return results, nil
}

func (c *CachedProvider) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// invalidate purges the cache after a write and makes queries that started
// before it skip caching their results.
func (c *CachedProvider) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.cache.Purge()
}

// Index passes through to the inner provider and purges the cache.
func (c *CachedProvider) Index(ctx context.Context, key string, records []providers.LineRecord) error {
	defer c.invalidate()
	return c.inner.Index(ctx, key, records)
}

// Delete passes through to the inner provider and purges the cache.
func (c *CachedProvider) Delete(ctx context.Context, key, id string) error {
	defer c.invalidate()
	return c.inner.Delete(ctx, key, id)
}

// DeleteAll passes through to the inner provider and purges the cache.
func (c *CachedProvider) DeleteAll(ctx context.Context, key string) error {
	defer c.invalidate()
	return c.inner.DeleteAll(ctx, key)
}

// Close purges the cache and closes the inner provider.
func (c *CachedProvider) Close() error {
	c.invalidate()
	return c.inner.Close()
}

// Len returns the number of cached searches.
func (c *CachedProvider) Len() int {
	return c.cache.Len()
}

// Inner returns the underlying provider.
func (c *CachedProvider) Inner() providers.Provider {
	return c.inner
}
