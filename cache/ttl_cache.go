// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cache holds the caches behind the REST services: TTL caches for
// live quote data, an LRU for immutable lookups and a redis cache shared
// between processes.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value of a key on a cache miss.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// FetchTimeout bounds a shared fetch once it no longer follows the context
// of the caller that started it.
const FetchTimeout = 30 * time.Second

// loader collapses concurrent fetches of one key. store runs once per
// successful fetch; failures are returned to every waiter and not stored.
// The shared fetch ignores the cancellation of the caller that started it;
// each caller stops waiting when its own ctx is done.
type loader[K comparable, V any] struct {
	group singleflight.Group
}

func (l *loader[K, V]) load(ctx context.Context, key K, fetch FetchFunc[K, V], store func(K, V)) (V, error) {
	var zero V
	ch := l.group.DoChan(flightKey(key), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FetchTimeout)
		defer cancel()

		value, err := fetch(fetchCtx, key)
		if err != nil {
			return nil, err
		}
		store(key, value)
		return value, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// flightKey renders keys of any comparable type, Stringers included.
func flightKey[K comparable](key K) string {
	if s, ok := any(key).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", key)
}

type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

// TTLCache caches live quote data such as prices and relayer fees. Entries
// are served until they expire and refetched on the next read.
type TTLCache[K comparable, V any] struct {
	loader[K, V]

	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[K]ttlEntry[V]
}

func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[K]ttlEntry[V]),
	}
}

// Get returns the cached value if it is fresh, otherwise fetches it.
// With refresh set the entry is dropped first, so no reader is served the
// old value while the fetch is in flight.
func (c *TTLCache[K, V]) Get(ctx context.Context, key K, fetch FetchFunc[K, V], refresh bool) (V, error) {
	if refresh {
		c.Invalidate(key)
	} else if v, ok := c.Peek(key); ok {
		return v, nil
	}
	return c.load(ctx, key, fetch, c.put)
}

func (c *TTLCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	c.entries[key] = ttlEntry[V]{value: value, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Peek returns a fresh cached value without fetching.
func (c *TTLCache[K, V]) Peek(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
