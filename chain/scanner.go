// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"math/big"

	ethereum "github.com/luxfi/geth"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/log"

	"github.com/luxfi/connect/utils"
)

const (
	// MaxBlocksPerRequest limits the range of a single eth_getLogs call.
	MaxBlocksPerRequest = 200

	// DefaultMaxBlockSearch is how far back a redeem lookup goes.
	DefaultMaxBlockSearch = 2000
)

// Scanner searches a bounded window of recent blocks for a log.
type Scanner struct {
	client         Client
	maxBlockSearch uint64
	log            log.Logger
}

// NewScanner returns a scanner over the latest maxBlockSearch blocks.
func NewScanner(client Client, maxBlockSearch uint64, logger log.Logger) *Scanner {
	if maxBlockSearch == 0 {
		maxBlockSearch = DefaultMaxBlockSearch
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Scanner{
		client:         client,
		maxBlockSearch: maxBlockSearch,
		log:            logger,
	}
}

// FindLog returns the first log matching q and match in the window ending
// at the latest block, or nil when there is none. The window is fetched in
// chunks of MaxBlocksPerRequest blocks; q.FromBlock and q.ToBlock are
// ignored.
func (s *Scanner) FindLog(ctx context.Context, q ethereum.FilterQuery, match func(*types.Log) bool) (*types.Log, error) {
	latest, err := utils.Retry(ctx, s.log, "get latest block", utils.DefaultRPCTimeout, s.client.BlockNumber)
	if err != nil {
		return nil, err
	}

	from := uint64(0)
	if latest > s.maxBlockSearch {
		from = latest - s.maxBlockSearch
	}

	for start := from; start <= latest; start += MaxBlocksPerRequest {
		end := min(start+MaxBlocksPerRequest-1, latest)

		query := q
		query.FromBlock = new(big.Int).SetUint64(start)
		query.ToBlock = new(big.Int).SetUint64(end)

		logs, err := utils.Retry(ctx, s.log, "get filter logs by block range", utils.DefaultRPCTimeout,
			func(ctx context.Context) ([]types.Log, error) {
				return s.client.FilterLogs(ctx, query)
			})
		if err != nil {
			s.log.Debug("failed to get logs",
				log.Uint64("fromBlock", start),
				log.Uint64("toBlock", end),
				log.Err(err),
			)
			return nil, err
		}
		for i := range logs {
			if match == nil || match(&logs[i]) {
				return &logs[i], nil
			}
		}
	}
	return nil, nil
}
