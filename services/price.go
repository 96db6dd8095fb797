// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/luxfi/log"
	"github.com/shopspring/decimal"

	"github.com/luxfi/connect/cache"
)

const pricePath = "/api/v3/simple/price"

// PriceSource returns USD prices by coingecko id
type PriceSource interface {
	USDPrice(ctx context.Context, coingeckoID string) (decimal.Decimal, error)
}

// PriceClient reads USD prices from a coingecko compatible API. Prices are
// cached in memory and, when configured, in a shared redis.
type PriceClient struct {
	client *resty.Client
	local  *cache.TTLCache[string, decimal.Decimal]
	shared *cache.RedisCache[decimal.Decimal]
	log    log.Logger
}

// NewPriceClient returns a price client. shared may be nil.
func NewPriceClient(baseURL string, ttl time.Duration, shared *cache.RedisCache[decimal.Decimal], logger log.Logger) *PriceClient {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &PriceClient{
		client: newRestClient(baseURL),
		local:  cache.NewTTLCache[string, decimal.Decimal](ttl),
		shared: shared,
		log:    logger,
	}
}

// USDPrice returns the USD price of one whole token.
func (c *PriceClient) USDPrice(ctx context.Context, coingeckoID string) (decimal.Decimal, error) {
	if coingeckoID == "" {
		return decimal.Zero, fmt.Errorf("%w: token has no price id", ErrNotFound)
	}
	return c.local.Get(ctx, coingeckoID, func(ctx context.Context, id string) (decimal.Decimal, error) {
		if c.shared != nil {
			return c.shared.Get(ctx, id, c.fetch, false)
		}
		return c.fetch(ctx, id)
	}, false)
}

func (c *PriceClient) fetch(ctx context.Context, id string) (decimal.Decimal, error) {
	var out map[string]map[string]decimal.Decimal
	err := get(ctx, c.client, pricePath, map[string]string{
		"ids":           id,
		"vs_currencies": "usd",
	}, &out)
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := out[id]["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no usd price for %s", ErrNotFound, id)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative price for %s", ErrBadResponse, id)
	}
	c.log.Debug("fetched price", log.String("id", id), log.String("usd", price.String()))
	return price, nil
}
