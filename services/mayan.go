// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	mayanQuotePath  = "/v3/quote"
	mayanStatusPath = "/v3/swap/trx/"
)

// MayanQuoteRequest asks for a swap quote. Amounts are in whole tokens.
type MayanQuoteRequest struct {
	FromChain   string
	ToChain     string
	FromToken   string
	ToToken     string
	AmountIn    decimal.Decimal
	SlippageBps uint32
}

// MayanQuote is the swap quote the route shows the user
type MayanQuote struct {
	Type              string          `json:"type"`
	ExpectedAmountOut decimal.Decimal `json:"expectedAmountOut"`
	MinAmountOut      decimal.Decimal `json:"minAmountOut"`
	MinReceived       decimal.Decimal `json:"minReceived"`
	RedeemRelayerFee  decimal.Decimal `json:"redeemRelayerFee"`
	SolanaRelayerFee  decimal.Decimal `json:"solanaRelayerFee"`
	RefundRelayerFee  decimal.Decimal `json:"refundRelayerFee"`
	ETASeconds        uint64          `json:"etaSeconds"`
}

// Mayan swap states
const (
	MayanStatusInProgress = "INPROGRESS"
	MayanStatusCompleted  = "COMPLETED"
	MayanStatusRefunded   = "REFUNDED"
)

// MayanSwap is the explorer view of a swap
type MayanSwap struct {
	SourceTxHash  string `json:"sourceTxHash"`
	ClientStatus  string `json:"clientStatus"`
	FulfillTxHash string `json:"fulfillTxHash"`
	RedeemTxHash  string `json:"redeemTxHash"`
	RefundTxHash  string `json:"refundTxHash"`
}

// DestTxHash is the transaction that completed the swap, if any
func (s *MayanSwap) DestTxHash() string {
	switch {
	case s.FulfillTxHash != "":
		return s.FulfillTxHash
	case s.RedeemTxHash != "":
		return s.RedeemTxHash
	default:
		return s.RefundTxHash
	}
}

// MayanSource quotes and tracks Mayan swaps
type MayanSource interface {
	Quote(ctx context.Context, req MayanQuoteRequest) (*MayanQuote, error)
	Swap(ctx context.Context, sourceTx string) (*MayanSwap, error)
}

// MayanClient talks to the Mayan price and explorer APIs
type MayanClient struct {
	client *resty.Client
}

func NewMayanClient(baseURL string) *MayanClient {
	return &MayanClient{client: newRestClient(baseURL)}
}

// Quote returns the best quote. An empty quote list is ErrNotFound.
func (c *MayanClient) Quote(ctx context.Context, req MayanQuoteRequest) (*MayanQuote, error) {
	if !req.AmountIn.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrBadResponse)
	}
	var out []MayanQuote
	err := get(ctx, c.client, mayanQuotePath, map[string]string{
		"amountIn":    req.AmountIn.String(),
		"fromToken":   req.FromToken,
		"fromChain":   req.FromChain,
		"toToken":     req.ToToken,
		"toChain":     req.ToChain,
		"slippageBps": strconv.FormatUint(uint64(req.SlippageBps), 10),
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no mayan quote", ErrNotFound)
	}
	best := &out[0]
	for i := range out[1:] {
		if out[i+1].ExpectedAmountOut.GreaterThan(best.ExpectedAmountOut) {
			best = &out[i+1]
		}
	}
	if best.ExpectedAmountOut.IsNegative() || best.MinAmountOut.GreaterThan(best.ExpectedAmountOut) {
		return nil, fmt.Errorf("%w: inconsistent mayan quote", ErrBadResponse)
	}
	return best, nil
}

// Swap returns the swap started by sourceTx, or ErrNotFound.
func (c *MayanClient) Swap(ctx context.Context, sourceTx string) (*MayanSwap, error) {
	var out MayanSwap
	if err := get(ctx, c.client, mayanStatusPath+sourceTx, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
