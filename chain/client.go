// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"fmt"

	ethereum "github.com/luxfi/geth"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/ethclient"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

// Client is the subset of an EVM JSON-RPC client used to inspect transfers
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ Client = (*ethclient.Client)(nil)

// Clients holds one client per EVM chain
type Clients map[vaa.ChainID]Client

// Get returns the client for id.
func (c Clients) Get(id vaa.ChainID) (Client, error) {
	client, ok := c[id]
	if !ok || client == nil {
		return nil, fmt.Errorf("%w: no rpc client for %s", ErrUnknownChain, id)
	}
	return client, nil
}

// Dial connects to every rpc url, closing what was opened on failure.
func Dial(ctx context.Context, rpcs map[vaa.ChainID]string) (Clients, error) {
	clients := make(Clients, len(rpcs))
	opened := make([]*ethclient.Client, 0, len(rpcs))
	for id, url := range rpcs {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			for _, c := range opened {
				c.Close()
			}
			return nil, fmt.Errorf("failed to dial %s rpc: %w", id, err)
		}
		opened = append(opened, client)
		clients[id] = client
	}
	return clients, nil
}
