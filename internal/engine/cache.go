package engine

import (
	"encoding/json"
	"sync"
	"time"
)

// responseCache is a process-local TTL cache for one-shot query
// answers. When full, the oldest entry is evicted.
type responseCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
}

type cacheEntry struct {
	response QueryResponse
	added    time.Time
	expires  time.Time
}

func newResponseCache(ttl time.Duration, maxEntries int) *responseCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &responseCache{
		entries:    make(map[string]*cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// cacheKey builds a key from the namespace, the question, and every
// option that affects the answer.
func cacheKey(namespace, question string, opts QueryOptions) string {
	optsJSON, _ := json.Marshal(opts)
	return namespace + "\x00" + question + "\x00" + string(optsJSON)
}

func (c *responseCache) get(key string) (*QueryResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	resp := entry.response
	return &resp, true
}

func (c *responseCache) put(key string, resp QueryResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = &cacheEntry{
		response: resp,
		added:    now,
		expires:  now.Add(c.ttl),
	}
}

// evictOldest removes the entry with the earliest insertion time.
// Caller holds the lock.
func (c *responseCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.added.Before(oldest) {
			oldestKey = k
			oldest = e.added
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *responseCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
