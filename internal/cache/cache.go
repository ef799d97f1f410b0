// Package cache is the optional caching collaborator in front of the
// extraction pipeline. The pipeline itself is a pure function of the
// (world, town, type) key, which is what makes this layer safe.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a fixed-size TTL cache. A zero TTL disables expiry; a nil
// *Cache is a valid no-op cache so callers never have to branch.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

func New[V any](size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = 128
	}
	return &Cache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	return c.lru.Get(key)
}

func (c *Cache[V]) Set(key string, value V) {
	if c == nil {
		return
	}
	c.lru.Add(key, value)
}
