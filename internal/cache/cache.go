package cache

import (
	"fmt"
	"sync"
	"time"
)

// entry is a single cached value with its creation time and TTL.
type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Cache is a namespaced in-memory key/value store with per-entry TTL.
// Expired entries are removed lazily when a read discovers them, and in bulk
// by Sweep. Namespaces are fixed at construction.
//
// The cache is shared across sessions and guarded by a single mutex; all
// operations are short and allocation-free on the hot path.
type Cache struct {
	mu         sync.Mutex
	namespaces map[string]map[string]entry
	now        func() time.Time
}

// New creates a cache with the given fixed namespaces.
func New(namespaces ...string) *Cache {
	c := &Cache{
		namespaces: make(map[string]map[string]entry, len(namespaces)),
		now:        time.Now,
	}
	for _, ns := range namespaces {
		c.namespaces[ns] = make(map[string]entry)
	}
	return c
}

// Get returns the value for (namespace, key). An entry past its TTL behaves
// as a miss and is deleted as a side effect, so stale data is never returned
// between sweeps. Unknown namespaces are plain misses.
func (c *Cache) Get(namespace, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ns, ok := c.namespaces[namespace]
	if !ok {
		return nil, false
	}
	e, ok := ns[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(ns, key)
		return nil, false
	}
	return e.value, true
}

// Set stores a value under (namespace, key) with the given TTL, overwriting
// any previous entry. Writing to an unknown namespace is an error: namespaces
// are never added dynamically.
func (c *Cache) Set(namespace, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ns, ok := c.namespaces[namespace]
	if !ok {
		return fmt.Errorf("cache: unknown namespace %q", namespace)
	}
	ns[key] = entry{value: value, createdAt: c.now(), ttl: ttl}
	return nil
}

// Delete removes (namespace, key) if present.
func (c *Cache) Delete(namespace, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ns, ok := c.namespaces[namespace]; ok {
		delete(ns, key)
	}
}

// Sweep scans every namespace and removes all entries past their TTL,
// returning the number removed. It bounds memory growth for keys that are
// never read again.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, ns := range c.namespaces {
		for key, e := range ns {
			if e.expired(now) {
				delete(ns, key)
				removed++
			}
		}
	}
	return removed
}

// Len reports the number of entries currently stored in a namespace,
// including any that have expired but not yet been removed.
func (c *Cache) Len(namespace string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.namespaces[namespace])
}
