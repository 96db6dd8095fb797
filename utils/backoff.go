// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/luxfi/log"
)

// DefaultRPCTimeout bounds a single RPC round trip, retries included.
const DefaultRPCTimeout = 10 * time.Second

// Retry calls fetch with exponential backoff until it succeeds, ctx is done
// or timeout has elapsed since the first attempt. Errors matching one of
// final end the loop at once and are returned as is.
func Retry[T any](
	ctx context.Context,
	logger log.Logger,
	description string,
	timeout time.Duration,
	fetch func(context.Context) (T, error),
	final ...error,
) (T, error) {
	policy := backoff.WithContext(
		backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(timeout)),
		ctx,
	)
	attempt := func() (T, error) {
		v, err := fetch(ctx)
		for _, f := range final {
			if errors.Is(err, f) {
				return v, backoff.Permanent(err)
			}
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("rpc failed, retrying",
			log.String("operation", description),
			log.Stringer("wait", wait),
			log.Err(err),
		)
	}
	return backoff.RetryNotifyWithData(attempt, policy, notify)
}
