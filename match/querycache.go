package match

import (
	"sort"
	"sync"
	"time"

	"github.com/apibridge/apibridge/internal/sched"
)

// cacheEntry holds one cached query embedding.
type cacheEntry struct {
	embedding  []float64
	lastAccess time.Time
	hits       int
}

// queryCache is a bounded TTL cache for query embeddings, shared across all
// conversations. It is a performance optimization only: hits must never
// change ranking results versus a cold cache, so it stores embeddings as-is
// and nothing else.
type queryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	maxSize int
	ttl     time.Duration
	clock   sched.Clock

	evictions int
}

func newQueryCache(maxSize int, ttl time.Duration, clock sched.Clock) *queryCache {
	if clock == nil {
		clock = sched.RealClock{}
	}
	return &queryCache{
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		clock:   clock,
	}
}

// get returns the cached embedding, refreshing recency and hit count.
func (c *queryCache) get(key string) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	now := c.clock.Now()
	if c.ttl > 0 && now.Sub(e.lastAccess) > c.ttl {
		delete(c.entries, key)
		c.evictions++
		return nil, false
	}
	e.lastAccess = now
	e.hits++
	return e.embedding, true
}

// put stores an embedding, evicting synchronously when over capacity so the
// bound holds even between sweeps.
func (c *queryCache) put(key string, embedding []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		embedding:  embedding,
		lastAccess: c.clock.Now(),
		hits:       0,
	}
	if c.maxSize > 0 && len(c.entries) > c.maxSize {
		c.evictLocked()
	}
}

// sweep removes expired entries first, then trims to capacity preferring
// entries with higher hit counts.
func (c *queryCache) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.evictions
	now := c.clock.Now()
	if c.ttl > 0 {
		for key, e := range c.entries {
			if now.Sub(e.lastAccess) > c.ttl {
				delete(c.entries, key)
				c.evictions++
			}
		}
	}
	if c.maxSize > 0 && len(c.entries) > c.maxSize {
		c.evictLocked()
	}
	return c.evictions - before
}

// evictLocked drops the lowest-value entries until the cache fits. Value is
// hit count, then recency.
func (c *queryCache) evictLocked() {
	type keyed struct {
		key string
		e   *cacheEntry
	}
	all := make([]keyed, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, keyed{k, e})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].e.hits != all[j].e.hits {
			return all[i].e.hits > all[j].e.hits
		}
		return all[i].e.lastAccess.After(all[j].e.lastAccess)
	})
	for _, victim := range all[c.maxSize:] {
		delete(c.entries, victim.key)
		c.evictions++
	}
}

func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
