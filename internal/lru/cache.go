// Package lru provides a fixed-capacity least-recently-used cache.
package lru

import "github.com/hashicorp/golang-lru/v2/simplelru"

// Cache is a strict LRU cache. It is not safe for concurrent use; owners
// serialize access.
type Cache[K comparable, V any] struct {
	capacity int
	items    *simplelru.LRU[K, V]
	onEvict  func(K, V)

	evicted    K
	hasEvicted bool
}

// New returns a cache holding at most capacity entries. A capacity below one
// is treated as one.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return NewWithEvict[K, V](capacity, nil)
}

// NewWithEvict is New with a callback run for every evicted entry.
func NewWithEvict[K comparable, V any](capacity int, onEvict func(K, V)) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	c := &Cache[K, V]{capacity: capacity, onEvict: onEvict}
	// size is positive, so NewLRU cannot fail
	c.items, _ = simplelru.NewLRU[K, V](capacity, c.evict)
	return c
}

func (c *Cache[K, V]) evict(key K, value V) {
	c.evicted, c.hasEvicted = key, true
	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.items.Get(key)
}

// Put inserts or updates key. It returns the evicted key, if any.
func (c *Cache[K, V]) Put(key K, value V) (evicted K, ok bool) {
	c.hasEvicted = false
	if !c.items.Add(key, value) {
		return evicted, false
	}
	evicted, ok = c.evicted, c.hasEvicted
	var zero K
	c.evicted, c.hasEvicted = zero, false
	return evicted, ok
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int { return c.items.Len() }

// Capacity returns the configured capacity.
func (c *Cache[K, V]) Capacity() int { return c.capacity }
