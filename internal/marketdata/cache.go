package marketdata

import (
	"sync"
	"time"
)

// ttlCache is an in-memory cache with a single freshness window. Reads
// against a stale entry evict it and report a miss. The client owns one
// per call kind (price, info, fx) so freshness windows stay independent.
type ttlCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]ttlEntry
}

type ttlEntry struct {
	at      time.Time
	payload interface{}
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{
		ttl:     ttl,
		entries: make(map[string]ttlEntry),
	}
}

func (c *ttlCache) get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.at) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.payload, true
}

func (c *ttlCache) set(key string, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry{at: time.Now(), payload: payload}
}

func (c *ttlCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
