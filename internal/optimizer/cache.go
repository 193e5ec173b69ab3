package optimizer

import (
	"sort"
	"sync"
	"time"
)

type cacheEntry struct {
	value     any
	timestamp time.Time
}

// ResultCache caches computed values with a per-read TTL. Once the cache
// grows past its size threshold the oldest fifth of the entries is evicted.
type ResultCache struct {
	mu        sync.RWMutex
	entries   map[string]cacheEntry
	threshold int

	hits   int64
	misses int64
}

// CacheMetrics is a snapshot of cache counters.
type CacheMetrics struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// NewResultCache creates a cache that prunes once it holds more than
// threshold entries. Non-positive thresholds fall back to 1000.
func NewResultCache(threshold int) *ResultCache {
	if threshold <= 0 {
		threshold = 1000
	}
	return &ResultCache{
		entries:   make(map[string]cacheEntry),
		threshold: threshold,
	}
}

// GetOrCompute returns the cached value for key if it is younger than ttl,
// otherwise runs compute and caches the fresh value. Failed computations
// are never cached.
func (c *ResultCache) GetOrCompute(key string, ttl time.Duration, compute func() (any, error)) (any, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Since(entry.timestamp) < ttl {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return entry.value, nil
	}

	value, err := compute()
	if err != nil {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.misses++
	c.entries[key] = cacheEntry{value: value, timestamp: time.Now()}
	if len(c.entries) > c.threshold {
		c.pruneLocked()
	}
	c.mu.Unlock()

	return value, nil
}

// Invalidate drops a single cached key.
func (c *ResultCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// pruneLocked evicts the oldest 20% of entries. Caller must hold c.mu.
func (c *ResultCache) pruneLocked() {
	type aged struct {
		key string
		ts  time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, ts: e.timestamp})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts.Before(all[j].ts) })

	evict := len(all) / 5
	if evict < 1 {
		evict = 1
	}
	for _, a := range all[:evict] {
		delete(c.entries, a.key)
	}
}

// Metrics returns a snapshot of cache counters.
func (c *ResultCache) Metrics() CacheMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheMetrics{
		Size:   len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
}
