// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/services"
)

var (
	errMissingRelayerFee = fmt.Errorf("%w: relayer fee", connect.ErrMissingLiveData)
	errMissingSwapQuote  = fmt.Errorf("%w: swap quote", connect.ErrMissingLiveData)
)

// relayerFee quotes the route's relayer fee for the request.
func (b *baseRoute) relayerFee(ctx context.Context, req *TransferRequest) (*big.Int, error) {
	if b.deps.Relayer == nil {
		return nil, fmt.Errorf("%w: relayer fee service not configured", connect.ErrMissingLiveData)
	}
	tc, err := b.token(req.SourceToken)
	if err != nil {
		return nil, err
	}
	fee, err := b.deps.Relayer.RelayerFee(ctx, services.FeeQuery{
		Route:  b.route,
		Source: req.SourceChain,
		Dest:   req.DestChain,
		Token:  tc.Key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to quote relayer fee: %w", err)
	}
	return fee, nil
}

// gasDropOffByPrice converts ToNativeToken into destination gas at the
// current USD prices, truncated to the gas token's decimals.
func (b *baseRoute) gasDropOffByPrice(ctx context.Context, req *TransferRequest) (decimal.Decimal, error) {
	if req.ToNativeToken == "" {
		return decimal.Zero, nil
	}
	tc, err := b.token(req.SourceToken)
	if err != nil {
		return decimal.Zero, err
	}
	toNative, err := decimal.NewFromString(req.ToNativeToken)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: gas drop-off %q", connect.ErrInvalidRequest, req.ToNativeToken)
	}
	cc, ok := b.cfg.Chain(req.DestChain)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: unknown destination %s", connect.ErrInvalidRequest, req.DestChain)
	}
	gasToken, ok := b.cfg.Token(cc.GasToken)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s has no gas token", connect.ErrNotSupported, cc.Name)
	}
	if b.deps.Prices == nil {
		return decimal.Zero, fmt.Errorf("%w: token prices", connect.ErrMissingLiveData)
	}
	srcPrice, err := b.deps.Prices.USDPrice(ctx, tc.CoingeckoID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s price: %w", connect.ErrMissingLiveData, tc.Key, err)
	}
	gasPrice, err := b.deps.Prices.USDPrice(ctx, gasToken.CoingeckoID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s price: %w", connect.ErrMissingLiveData, gasToken.Key, err)
	}
	if !gasPrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s price", connect.ErrMissingLiveData, gasToken.Key)
	}
	return toNative.Mul(srcPrice).Div(gasPrice).Truncate(int32(gasToken.DecimalsOn(req.DestChain))), nil
}
