// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package services

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/cache"
)

const relayerFeePath = "/v1/relayer/fee"

// FeeQuery identifies a relayer fee quote
type FeeQuery struct {
	Route  connect.Route
	Source vaa.ChainID
	Dest   vaa.ChainID
	Token  string
}

func (q FeeQuery) String() string {
	return fmt.Sprintf("%s/%d/%d/%s", q.Route, q.Source, q.Dest, q.Token)
}

// RelayerFeeSource quotes the fee an automatic route charges, in the
// smallest unit of the transferred token.
type RelayerFeeSource interface {
	RelayerFee(ctx context.Context, q FeeQuery) (*big.Int, error)
}

// RelayerClient quotes relayer fees over REST
type RelayerClient struct {
	client *resty.Client
	cache  *cache.TTLCache[FeeQuery, *big.Int]
}

func NewRelayerClient(baseURL string, ttl time.Duration) *RelayerClient {
	return &RelayerClient{
		client: newRestClient(baseURL),
		cache:  cache.NewTTLCache[FeeQuery, *big.Int](ttl),
	}
}

type relayerFeeResponse struct {
	Fee string `json:"fee"`
}

// RelayerFee returns the quoted fee.
func (c *RelayerClient) RelayerFee(ctx context.Context, q FeeQuery) (*big.Int, error) {
	fee, err := c.cache.Get(ctx, q, c.fetch, false)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(fee), nil
}

func (c *RelayerClient) fetch(ctx context.Context, q FeeQuery) (*big.Int, error) {
	var out relayerFeeResponse
	err := get(ctx, c.client, relayerFeePath, map[string]string{
		"route":       q.Route.String(),
		"sourceChain": strconv.Itoa(int(q.Source)),
		"targetChain": strconv.Itoa(int(q.Dest)),
		"token":       q.Token,
	}, &out)
	if err != nil {
		return nil, err
	}
	fee, ok := new(big.Int).SetString(out.Fee, 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("%w: relayer fee %q", ErrBadResponse, out.Fee)
	}
	return fee, nil
}
