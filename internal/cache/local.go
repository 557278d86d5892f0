package cache

import (
	"sync"
	"time"
)

// localEntry is one record in the process-local tier.
type localEntry struct {
	value      []byte
	tags       []string
	embedding  []float64
	expiresAt  time.Time // Zero means no expiry.
	insertedAt time.Time
}

// localCache is the bounded process-local tier. Eviction removes an
// approximate 10% batch of the oldest-inserted entries when the cache fills,
// which bounds memory without the bookkeeping of strict LRU.
type localCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*localEntry

	// order tracks insertion order and may hold keys already removed;
	// eviction skips stale slots.
	order []string
}

// newLocalCache constructs a bounded local cache.
func newLocalCache(maxEntries int) *localCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &localCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*localEntry),
	}
}

// get returns a value when present and unexpired.
func (c *localCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// set inserts or replaces an entry, evicting an old batch when full.
func (c *localCache) set(key string, entry *localEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.insertedAt = time.Now()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = entry

	if len(c.entries) > c.maxEntries {
		c.evictOldestBatchLocked()
	}
}

// evictOldestBatchLocked removes roughly 10% of entries in insertion order.
func (c *localCache) evictOldestBatchLocked() {
	batch := c.maxEntries / 10
	if batch < 1 {
		batch = 1
	}

	removed := 0
	idx := 0
	for idx < len(c.order) && removed < batch {
		key := c.order[idx]
		idx++
		if _, ok := c.entries[key]; !ok {
			continue
		}
		delete(c.entries, key)
		removed++
	}
	c.order = c.order[idx:]
}

// removeMatch deletes every entry the predicate accepts and returns the count.
func (c *localCache) removeMatch(match func(key string, entry *localEntry) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if match(key, entry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// similar returns the best entry whose embedding similarity meets the threshold.
func (c *localCache) similar(embedding []float64, threshold float64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	bestScore := threshold
	var bestValue []byte
	found := false
	for key, entry := range c.entries {
		if len(entry.embedding) == 0 {
			continue
		}
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(c.entries, key)
			continue
		}
		score := cosineSimilarity(embedding, entry.embedding)
		if score >= bestScore {
			bestScore = score
			bestValue = entry.value
			found = true
		}
	}
	return bestValue, found
}

// size returns the current entry count.
func (c *localCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
