// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"context"

	"github.com/luxfi/geth/common/lru"
)

// LRUCache holds immutable lookups such as signed VAAs. Entries never
// expire and are evicted by size only.
type LRUCache[K comparable, V any] struct {
	loader[K, V]

	entries *lru.Cache[K, V]
}

func NewLRUCache[K comparable, V any](size int) *LRUCache[K, V] {
	return &LRUCache[K, V]{entries: lru.NewCache[K, V](size)}
}

// Get returns the cached value for key, otherwise fetches and caches it.
func (c *LRUCache[K, V]) Get(ctx context.Context, key K, fetch FetchFunc[K, V], refresh bool) (V, error) {
	if refresh {
		c.entries.Remove(key)
	} else if v, ok := c.entries.Get(key); ok {
		return v, nil
	}
	return c.load(ctx, key, fetch, func(k K, v V) { c.entries.Add(k, v) })
}

func (c *LRUCache[K, V]) Len() int {
	return c.entries.Len()
}
