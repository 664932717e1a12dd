// Package cache is a bounded, expiring cache whose entries can be dropped by tag.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"content-dumper/internal/shared/content"
	"content-dumper/internal/shared/events"
	"content-dumper/internal/shared/metrics"
)

// Cache wraps an expirable LRU with a tag -> keys index.
//
// Lock order is LRU first, then mu: the eviction callback runs while the LRU
// holds its own lock, so mu must never be held while calling into the LRU.
type Cache struct {
	lru *expirable.LRU[string, any]

	mu     sync.Mutex
	byTag  map[string]map[string]struct{}
	keyTag map[string][]string
	// gen counts invalidations per tag; a value loaded before a bump is stale.
	gen   map[string]uint64
	epoch uint64 // bumped by Purge
}

// New builds a cache with at most size entries living for ttl.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 512
	}
	c := &Cache{
		byTag:  make(map[string]map[string]struct{}),
		keyTag: make(map[string][]string),
		gen:    make(map[string]uint64),
	}
	c.lru = expirable.NewLRU[string, any](size, c.onEvict, ttl)
	return c
}

// Get returns the cached value for key.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(key)
	metrics.IncCacheLookup(ok)
	return v, ok
}

// Set stores value under key and indexes it by tags.
func (c *Cache) Set(key string, value any, tags ...string) {
	if c == nil {
		return
	}
	c.store(key, value, tags, c.generations(tags))
}

// store indexes key before adding it so a concurrent InvalidateTags always
// sees it, and skips or undoes the write if any tag was invalidated after
// seen was taken.
func (c *Cache) store(key string, value any, tags []string, seen []uint64) {
	c.mu.Lock()
	if !c.currentLocked(tags, seen) {
		c.mu.Unlock()
		return
	}
	c.unindexLocked(key)
	c.keyTag[key] = append([]string(nil), tags...)
	for _, tag := range tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	c.mu.Unlock()

	c.lru.Add(key, value)

	c.mu.Lock()
	current := c.currentLocked(tags, seen)
	c.mu.Unlock()
	if !current {
		c.lru.Remove(key)
	}
}

func (c *Cache) generations(tags []string) []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, len(tags)+1)
	for i, tag := range tags {
		out[i] = c.gen[tag]
	}
	out[len(tags)] = c.epoch
	return out
}

func (c *Cache) currentLocked(tags []string, seen []uint64) bool {
	if c.epoch != seen[len(tags)] {
		return false
	}
	for i, tag := range tags {
		if c.gen[tag] != seen[i] {
			return false
		}
	}
	return true
}

// InvalidateTags drops every entry indexed under any of tags and reports how many were removed.
func (c *Cache) InvalidateTags(tags ...string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	var keys []string
	for _, tag := range tags {
		c.gen[tag]++
		for key := range c.byTag[tag] {
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		c.unindexLocked(key)
	}
	c.mu.Unlock()

	removed := 0
	for _, key := range keys {
		if c.lru.Remove(key) {
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge empties the cache.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
	c.mu.Lock()
	c.byTag = make(map[string]map[string]struct{})
	c.keyTag = make(map[string][]string)
	c.epoch++
	c.mu.Unlock()
}

func (c *Cache) onEvict(key string, _ any) {
	c.mu.Lock()
	c.unindexLocked(key)
	c.mu.Unlock()
}

func (c *Cache) unindexLocked(key string) {
	for _, tag := range c.keyTag[key] {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
	delete(c.keyTag, key)
}

// Remember returns the cached value for key or loads, stores and returns it.
// Load errors are not cached, and neither is a value whose tags were
// invalidated while it was loading.
func Remember[T any](c *Cache, key string, tags []string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	if c == nil {
		return load()
	}
	seen := c.generations(tags)
	v, err := load()
	if err != nil {
		return v, err
	}
	c.store(key, v, tags, seen)
	return v, nil
}

// Key joins parts into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, "|")
}

// InvalidationHandler drops the cached views of the (domain, status, user)
// triples an event touched.
func InvalidationHandler(c *Cache) events.Handler {
	return events.HandlerFunc(func(_ context.Context, e events.Event) error {
		c.InvalidateTags(content.CacheTags(e.Domain, e.UserID, e.Statuses()...)...)
		return nil
	})
}
