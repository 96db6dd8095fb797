// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect/cache"
)

const vaaCacheSize = 512

// MessageID locates a wormhole message
type MessageID struct {
	Chain    vaa.ChainID
	Emitter  vaa.Address
	Sequence uint64
}

func (id MessageID) String() string {
	return fmt.Sprintf("%d/%s/%d", id.Chain, id.Emitter, id.Sequence)
}

// VAASource returns signed VAAs. A message that is not signed yet returns
// nil and no error.
type VAASource interface {
	SignedVAA(ctx context.Context, id MessageID) (*vaa.VAA, error)
}

// ExplorerClient fetches signed VAAs from a wormholescan compatible API.
// Signed VAAs are immutable so they are kept in an LRU.
type ExplorerClient struct {
	client *resty.Client
	vaas   *cache.LRUCache[MessageID, *vaa.VAA]
}

func NewExplorerClient(baseURL string) *ExplorerClient {
	return &ExplorerClient{
		client: newRestClient(baseURL),
		vaas:   cache.NewLRUCache[MessageID, *vaa.VAA](vaaCacheSize),
	}
}

type vaaResponse struct {
	Data struct {
		VAA []byte `json:"vaa"`
	} `json:"data"`
}

func (c *ExplorerClient) SignedVAA(ctx context.Context, id MessageID) (*vaa.VAA, error) {
	v, err := c.vaas.Get(ctx, id, c.fetch, false)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (c *ExplorerClient) fetch(ctx context.Context, id MessageID) (*vaa.VAA, error) {
	var out vaaResponse
	path := fmt.Sprintf("/api/v1/vaas/%d/%s/%d", id.Chain, id.Emitter, id.Sequence)
	if err := get(ctx, c.client, path, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Data.VAA) == 0 {
		return nil, ErrNotFound
	}
	v, err := vaa.Unmarshal(out.Data.VAA)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if v.EmitterChain != id.Chain || v.EmitterAddress != id.Emitter || v.Sequence != id.Sequence {
		return nil, fmt.Errorf("%w: vaa %s does not match %s", ErrBadResponse, v.MessageID(), id)
	}
	return v, nil
}
