package cache

import (
	"sync"
	"time"
)

// entry holds one cached payload and its deadline
type entry struct {
	data      interface{}
	expiresAt time.Time
}

// Cache is a small in-memory TTL cache for assembled API payloads
// (stats, summary, tasks). Expired entries are dropped on read.
type Cache struct {
	mu    sync.Mutex
	items map[string]entry
}

// New creates a new cache instance
func New() *Cache {
	return &Cache{
		items: make(map[string]entry),
	}
}

// Get retrieves the payload for key if it has not expired
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.items[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		delete(c.items, key)
		return nil, false
	}

	return e.data, true
}

// Set stores a payload under key for the given TTL
func (c *Cache) Set(key string, data interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}
}

// Delete removes one key
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes every entry. Called after ingestion or a store wipe so
// stale stats and summaries never outlive the corpus they describe.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]entry)
}
