// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/log"
	"github.com/redis/go-redis/v9"
)

// RedisCache shares quote data between processes. Values are stored as JSON
// under prefix+key with a TTL. Redis failures degrade to a direct fetch.
type RedisCache[V any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    log.Logger
}

// NewRedisCache connects to the redis url, e.g. redis://localhost:6379/0.
func NewRedisCache[V any](url, prefix string, ttl time.Duration, logger log.Logger) (*RedisCache[V], error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisCacheWithClient[V](redis.NewClient(opts), prefix, ttl, logger), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient[V any](client *redis.Client, prefix string, ttl time.Duration, logger log.Logger) *RedisCache[V] {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &RedisCache[V]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		log:    logger,
	}
}

// Get returns the stored value or fetches and stores it.
func (c *RedisCache[V]) Get(ctx context.Context, key string, fetch FetchFunc[string, V], invalidate bool) (V, error) {
	redisKey := c.prefix + key
	if !invalidate {
		raw, err := c.client.Get(ctx, redisKey).Bytes()
		switch {
		case err == nil:
			var v V
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
			c.log.Debug("dropping undecodable cache entry", log.String("key", redisKey))
		case !errors.Is(err, redis.Nil):
			c.log.Debug("redis get failed", log.String("key", redisKey), log.Err(err))
		}
	}

	v, err := fetch(ctx, key)
	if err != nil {
		return v, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := c.client.Set(ctx, redisKey, raw, c.ttl).Err(); err != nil {
		c.log.Debug("redis set failed", log.String("key", redisKey), log.Err(err))
	}
	return v, nil
}

// Close closes the underlying client
func (c *RedisCache[V]) Close() error {
	return c.client.Close()
}
