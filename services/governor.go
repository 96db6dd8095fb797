// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect/cache"
)

const (
	governorLimitsPath = "/api/v1/governor/notional/limit"
	governorTokensPath = "/api/v1/governor/token_list"

	governorTTL = time.Minute
)

// GovernorLimit is the guardian governor state of one chain, in USD
type GovernorLimit struct {
	ChainID            uint16          `json:"chainId"`
	AvailableNotional  decimal.Decimal `json:"availableNotional"`
	NotionalLimit      decimal.Decimal `json:"notionalLimit"`
	MaxTransactionSize decimal.Decimal `json:"maxTransactionSize"`
}

// GovernedToken is a token tracked by the governor
type GovernedToken struct {
	OriginChainID uint16 `json:"originChainId"`
	OriginAddress string `json:"originAddress"`
}

// Governor reports whether a transfer would be delayed by the governor
type Governor interface {
	ExceedsLimit(ctx context.Context, source vaa.ChainID, usd decimal.Decimal) (bool, error)
	IsGoverned(ctx context.Context, origin vaa.ChainID, originAddress vaa.Address) (bool, error)
}

// GovernorClient reads the governor state from the explorer API
type GovernorClient struct {
	client *resty.Client
	limits *cache.TTLCache[string, map[vaa.ChainID]GovernorLimit]
	tokens *cache.TTLCache[string, map[string]struct{}]
}

func NewGovernorClient(baseURL string) *GovernorClient {
	return &GovernorClient{
		client: newRestClient(baseURL),
		limits: cache.NewTTLCache[string, map[vaa.ChainID]GovernorLimit](governorTTL),
		tokens: cache.NewTTLCache[string, map[string]struct{}](governorTTL),
	}
}

// Limits returns the limits by chain
func (c *GovernorClient) Limits(ctx context.Context) (map[vaa.ChainID]GovernorLimit, error) {
	return c.limits.Get(ctx, governorLimitsPath, func(ctx context.Context, path string) (map[vaa.ChainID]GovernorLimit, error) {
		var out struct {
			Data []GovernorLimit `json:"data"`
		}
		if err := get(ctx, c.client, path, nil, &out); err != nil {
			return nil, err
		}
		limits := make(map[vaa.ChainID]GovernorLimit, len(out.Data))
		for _, l := range out.Data {
			limits[vaa.ChainID(l.ChainID)] = l
		}
		return limits, nil
	}, false)
}

// ExceedsLimit reports whether a transfer worth usd leaving source would be
// held by the governor: it is larger than the single transaction size or
// the notional still available. Chains without a limit never delay.
func (c *GovernorClient) ExceedsLimit(ctx context.Context, source vaa.ChainID, usd decimal.Decimal) (bool, error) {
	limits, err := c.Limits(ctx)
	if err != nil {
		return false, err
	}
	l, ok := limits[source]
	if !ok {
		return false, nil
	}
	if l.MaxTransactionSize.IsPositive() && usd.GreaterThan(l.MaxTransactionSize) {
		return true, nil
	}
	return usd.GreaterThan(l.AvailableNotional), nil
}

// IsGoverned reports whether the token originating on origin is tracked.
func (c *GovernorClient) IsGoverned(ctx context.Context, origin vaa.ChainID, originAddress vaa.Address) (bool, error) {
	tokens, err := c.tokens.Get(ctx, governorTokensPath, func(ctx context.Context, path string) (map[string]struct{}, error) {
		var out []GovernedToken
		if err := get(ctx, c.client, path, nil, &out); err != nil {
			return nil, err
		}
		tokens := make(map[string]struct{}, len(out))
		for _, t := range out {
			tokens[governedKey(vaa.ChainID(t.OriginChainID), t.OriginAddress)] = struct{}{}
		}
		return tokens, nil
	}, false)
	if err != nil {
		return false, err
	}
	_, ok := tokens[governedKey(origin, originAddress.String())]
	return ok, nil
}

func governedKey(chain vaa.ChainID, addr string) string {
	return strconv.Itoa(int(chain)) + "/" + strings.TrimPrefix(strings.ToLower(addr), "0x")
}
