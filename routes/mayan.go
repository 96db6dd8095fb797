// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/luxfi/ids"
	"github.com/shopspring/decimal"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/chain"
	"github.com/luxfi/connect/config"
	"github.com/luxfi/connect/services"
)

// mayanNativeToken identifies the gas token in Mayan quotes on every chain.
const mayanNativeToken = "0x0000000000000000000000000000000000000000"

// MayanRoute swaps through the Mayan protocol. Quotes and swap status come
// from the Mayan API; swap transactions are built by the Mayan SDK.
type MayanRoute struct {
	baseRoute
}

func NewMayanRoute(cfg *config.Config, deps *Deps) *MayanRoute {
	r := &MayanRoute{baseRoute: newBaseRoute(connect.RouteMayan, cfg, deps)}
	r.self = r
	return r
}

func (r *MayanRoute) IsSupportedChain(id vaa.ChainID) bool {
	return r.cfg.MayanChain(id)
}

func (r *MayanRoute) IsSupportedSourceToken(token, destToken string, source, _ vaa.ChainID) bool {
	return r.supportedToken(token, source) && (destToken == "" || r.supportedToken(destToken, vaa.ChainIDUnset))
}

func (r *MayanRoute) IsSupportedDestToken(token, sourceToken string, _, dest vaa.ChainID) bool {
	return r.supportedToken(token, dest) && (sourceToken == "" || r.supportedToken(sourceToken, vaa.ChainIDUnset))
}

func (r *MayanRoute) supportedToken(token string, id vaa.ChainID) bool {
	tc, ok := r.cfg.Token(token)
	if !ok || !slices.ContainsFunc(r.cfg.Mayan.Tokens, func(k string) bool { return strings.EqualFold(k, tc.Key) }) {
		return false
	}
	if id == vaa.ChainIDUnset {
		return true
	}
	_, ok = tc.AddressOn(id)
	return ok
}

func mayanToken(tc *config.TokenConfig, id vaa.ChainID) (string, error) {
	addr, ok := tc.AddressOn(id)
	if !ok {
		return "", fmt.Errorf("%w: %s has no asset on %s", connect.ErrNotSupported, tc.Key, id)
	}
	if addr == "" {
		return mayanNativeToken, nil
	}
	return addr, nil
}

// FetchQuoteData asks Mayan for the best swap quote.
func (r *MayanRoute) FetchQuoteData(ctx context.Context, req *TransferRequest) error {
	if r.deps.Mayan == nil {
		return fmt.Errorf("%w: mayan service not configured", connect.ErrMissingLiveData)
	}
	src, err := r.token(req.SourceToken)
	if err != nil {
		return err
	}
	dst, err := r.token(req.DestToken)
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return fmt.Errorf("%w: amount %q", connect.ErrInvalidRequest, req.Amount)
	}
	fromToken, err := mayanToken(src, req.SourceChain)
	if err != nil {
		return err
	}
	toToken, err := mayanToken(dst, req.DestChain)
	if err != nil {
		return err
	}
	q, err := r.deps.Mayan.Quote(ctx, services.MayanQuoteRequest{
		FromChain:   chain.Name(req.SourceChain),
		ToChain:     chain.Name(req.DestChain),
		FromToken:   fromToken,
		ToToken:     toToken,
		AmountIn:    amount,
		SlippageBps: r.cfg.Mayan.SlippageBps,
	})
	if err != nil {
		return fmt.Errorf("failed to quote mayan swap: %w", err)
	}
	req.SwapQuote = &SwapQuote{
		AmountOut:    q.ExpectedAmountOut,
		MinAmountOut: q.MinAmountOut,
		RelayerFee:   q.RedeemRelayerFee,
		ETA:          time.Duration(q.ETASeconds) * time.Second,
	}
	return nil
}

// ComputeReceiveAmount is the quoted amount out. Mayan quotes are already
// net of the relayer fees.
func (r *MayanRoute) ComputeReceiveAmount(req *TransferRequest) (decimal.Decimal, error) {
	if req.SwapQuote == nil {
		return decimal.Zero, errMissingSwapQuote
	}
	return req.SwapQuote.AmountOut, nil
}

func (r *MayanRoute) ComputeReceiveAmountWithFees(req *TransferRequest) (decimal.Decimal, error) {
	return r.ComputeReceiveAmount(req)
}

func (r *MayanRoute) Validate(req *TransferRequest) error {
	if err := r.baseRoute.Validate(req); err != nil {
		return err
	}
	out, err := r.ComputeReceiveAmount(req)
	if err != nil {
		return err
	}
	if !out.IsPositive() {
		return fmt.Errorf("%w: swap returns nothing", connect.ErrInvalidRequest)
	}
	return nil
}

// MayanSDK builds and signs Mayan swap transactions. Submit the quote
// there, then track the source transaction with Operator.ResumeFromTx.
const MayanSDK = "@mayanfinance/swap-sdk"

func (r *MayanRoute) Send(context.Context, *TransferRequest, Signer) (string, error) {
	return "", fmt.Errorf("%w: submit mayan swaps with %s, then resume the source transaction",
		connect.ErrNotSupported, MayanSDK)
}

// Resume claims transactions where the Mayan forwarder created an order.
// The destination is only known to the Mayan API.
func (r *MayanRoute) Resume(_ context.Context, tx *SourceTx) (*connect.TransferReceipt, error) {
	cc, err := r.evmChain(tx.Chain)
	if err != nil {
		return nil, nil
	}
	forwarder, ok := cc.EVMContract(cc.Contracts.MayanForwarder)
	if !ok {
		return nil, nil
	}
	logs := chain.FindLogs(tx.Receipt, forwarder, chain.OrderCreatedTopic)
	if len(logs) == 0 {
		return nil, nil
	}
	order, err := chain.DecodeBytes32Event(logs[0], chain.OrderCreatedTopic)
	if err != nil {
		return nil, err
	}
	return &connect.TransferReceipt{
		Route:       r.route,
		State:       connect.TransferSent,
		SourceChain: tx.Chain,
		SourceTx:    tx.Hash.Hex(),
		MessageID:   ids.ID(order),
	}, nil
}

func (r *MayanRoute) swap(ctx context.Context, receipt *connect.TransferReceipt) (*services.MayanSwap, error) {
	if r.deps.Mayan == nil {
		return nil, fmt.Errorf("%w: mayan service not configured", connect.ErrMissingLiveData)
	}
	s, err := r.deps.Mayan.Swap(ctx, receipt.SourceTx)
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

// TryFetchRedeemTx returns the transaction that delivered the swap.
// Refunds are not redemptions.
func (r *MayanRoute) TryFetchRedeemTx(ctx context.Context, receipt *connect.TransferReceipt) (string, error) {
	s, err := r.swap(ctx, receipt)
	if err != nil || s == nil || s.ClientStatus != services.MayanStatusCompleted {
		return "", err
	}
	return s.DestTxHash(), nil
}

func (r *MayanRoute) isFailed(ctx context.Context, receipt *connect.TransferReceipt) (bool, error) {
	s, err := r.swap(ctx, receipt)
	if err != nil || s == nil {
		return false, err
	}
	return s.ClientStatus == services.MayanStatusRefunded, nil
}
