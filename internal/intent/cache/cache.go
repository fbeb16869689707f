// Package cache provides the time-bounded result cache used by the intent
// router as a local-only resolution accelerator.
//
// The cache maps normalized utterance text to a previously computed
// [intent.Result]. Entries expire lazily: an entry older than the TTL is
// treated as absent on read and overwritten on the next store; nothing is
// proactively deleted. The cache is never persisted and is not a source of
// truth.
package cache

import (
	"sync"
	"time"

	"github.com/quizvox/quizvox/internal/intent"
)

// DefaultTTL is the maximum age at which a cached result is still served.
const DefaultTTL = 5 * time.Minute

// entry pairs a stored result with the instant it was stored.
type entry struct {
	result   intent.Result
	storedAt time.Time
}

// Cache is a TTL-bounded in-memory result store keyed by normalized text.
// All methods are safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Option is a functional option for [New].
type Option func(*Cache)

// WithTTL overrides the default 5-minute entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the number of stored entries. When the bound is
// reached, storing a new key first drops every expired entry; if the cache
// is still full the store is skipped. Zero (the default) means unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// WithClock overrides the time source. Intended for tests that need to
// control TTL expiry without real delays.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty Cache with the default TTL.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached result for text, if present and younger than the
// TTL. The key is normalized, so inputs differing only by case or
// surrounding whitespace hit the same entry.
func (c *Cache) Get(text string) (intent.Result, bool) {
	key := intent.Normalize(text)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return intent.Result{}, false
	}
	return e.result, true
}

// Set stores result under the normalized key, overwriting any existing
// entry.
func (c *Cache) Set(text string, result intent.Result) {
	key := intent.Normalize(text)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictExpiredLocked(now)
			if len(c.entries) >= c.maxEntries {
				return
			}
		}
	}
	c.entries[key] = entry{result: result, storedAt: now}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including ones that have
// expired but not yet been dropped.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictExpiredLocked removes entries whose age is at or past the TTL.
// Callers must hold the write lock.
func (c *Cache) evictExpiredLocked(now time.Time) {
	for key, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			delete(c.entries, key)
		}
	}
}
