// Package cache implements the TTL-bounded answer cache keyed by
// normalized question plus effective route.
package cache

import (
	"strings"
	"sync"
	"time"

	"noesis/internal/logging"
)

// entry is a cached answer with its insertion time.
type entry struct {
	createdAt time.Time
	answer    string
}

// AnswerCache is a bounded mapping from question fingerprints to answers.
// Expiry is strict (a hit does not refresh the timestamp) and lazy: expired
// entries are only detected on read, and may hold a capacity slot until the
// oldest-wins eviction removes them on a later Put.
type AnswerCache struct {
	mu       sync.Mutex
	entries  map[string]entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// New creates a cache with fixed capacity and TTL.
func New(capacity int, ttl time.Duration) *AnswerCache {
	if capacity < 1 {
		capacity = 1
	}
	return &AnswerCache{
		entries:  make(map[string]entry, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Key builds the cache fingerprint for a question under an effective route.
func Key(question, effectiveRoute string) string {
	return strings.ToLower(strings.TrimSpace(question)) + ":" + effectiveRoute
}

// Get returns the cached answer for key, or ok=false if the key was never
// set or its entry has outlived the TTL.
func (c *AnswerCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(e.createdAt) > c.ttl {
		delete(c.entries, key)
		logging.Get(logging.CategoryCache).Debug("expired entry dropped: %s", key)
		return "", false
	}
	return e.answer, true
}

// Put stores an answer under key, evicting the single oldest entry first
// when at capacity. The scan is O(n); the bound is tens of entries.
func (c *AnswerCache) Put(key, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		var oldestKey string
		var oldestAt time.Time
		first := true
		for k, e := range c.entries {
			if first || e.createdAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.createdAt
				first = false
			}
		}
		delete(c.entries, oldestKey)
		logging.Get(logging.CategoryCache).Debug("evicted oldest entry: %s", oldestKey)
	}

	c.entries[key] = entry{createdAt: c.now(), answer: answer}
}

// Len reports the number of occupied slots, expired entries included.
func (c *AnswerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
