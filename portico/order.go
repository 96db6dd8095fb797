// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package portico

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
)

var (
	ErrInvalidSelector = fmt.Errorf("%w: not a portico start() call", connect.ErrMalformedInput)

	ErrTransactionTarget  = fmt.Errorf("%w: transaction target", connect.ErrIntegrityMismatch)
	ErrTransactionValue   = fmt.Errorf("%w: transaction value", connect.ErrIntegrityMismatch)
	ErrRecipientChain     = fmt.Errorf("%w: recipient chain", connect.ErrIntegrityMismatch)
	ErrFeeTierStart       = fmt.Errorf("%w: fee tier start", connect.ErrIntegrityMismatch)
	ErrFeeTierFinish      = fmt.Errorf("%w: fee tier finish", connect.ErrIntegrityMismatch)
	ErrShouldWrapNative   = fmt.Errorf("%w: should wrap native", connect.ErrIntegrityMismatch)
	ErrShouldUnwrapNative = fmt.Errorf("%w: should unwrap native", connect.ErrIntegrityMismatch)
	ErrStartToken         = fmt.Errorf("%w: start token address", connect.ErrIntegrityMismatch)
	ErrCanonAsset         = fmt.Errorf("%w: canonical asset address", connect.ErrIntegrityMismatch)
	ErrFinalToken         = fmt.Errorf("%w: final token address", connect.ErrIntegrityMismatch)
	ErrRecipientAddress   = fmt.Errorf("%w: recipient address", connect.ErrIntegrityMismatch)
	ErrDestinationPortico = fmt.Errorf("%w: destination portico address", connect.ErrIntegrityMismatch)
	ErrAmountSpecified    = fmt.Errorf("%w: amount", connect.ErrIntegrityMismatch)
	ErrMinAmountStart     = fmt.Errorf("%w: min amount start", connect.ErrIntegrityMismatch)
	ErrMinAmountFinish    = fmt.Errorf("%w: min amount finish", connect.ErrIntegrityMismatch)
	ErrRelayerFee         = fmt.Errorf("%w: relayer fee", connect.ErrIntegrityMismatch)
)

// CreateOrderRequest is sent to the order service, which answers with the
// start() transaction to submit. Fields tagged "-" are local expectations
// used to check the answer.
type CreateOrderRequest struct {
	StartingChainID           uint64         `json:"startingChainId"`
	DestinationChainID        uint64         `json:"destinationChainId"`
	StartingToken             common.Address `json:"startingToken"`
	StartingTokenAmount       string         `json:"startingTokenAmount"`
	DestinationToken          common.Address `json:"destinationToken"`
	DestinationAddress        common.Address `json:"destinationAddress"`
	PorticoAddress            common.Address `json:"porticoAddress"`
	DestinationPorticoAddress common.Address `json:"destinationPorticoAddress"`
	StartingTokenUSDPrice     float64        `json:"startingTokenUsdPrice"`
	DestinationTokenUSDPrice  float64        `json:"destinationTokenUsdPrice"`
	FeeTierStart              uint32         `json:"feeTierStart"`
	FeeTierEnd                uint32         `json:"feeTierEnd"`
	MinAmountStart            string         `json:"minAmountStart"`
	MinAmountEnd              string         `json:"minAmountEnd"`
	RelayerFee                string         `json:"relayerFee"`
	ShouldWrapNative          bool           `json:"shouldWrapNative"`
	ShouldUnwrapNative        bool           `json:"shouldUnwrapNative"`

	RecipientChain vaa.ChainID    `json:"-"`
	CanonicalToken common.Address `json:"-"`
}

// CreateOrderResponse is the order service answer
type CreateOrderResponse struct {
	TransactionData    string   `json:"transactionData"`
	TransactionTarget  string   `json:"transactionTarget"`
	TransactionValue   string   `json:"transactionValue"`
	StartParameters    []string `json:"startParameters"`
	EstimatedAmountOut string   `json:"estimatedAmountOut"`
}

// TradeParameters builds the start() argument the request should produce.
func (r *CreateOrderRequest) TradeParameters() (*TradeParameters, error) {
	amount, err := ParseAmount(r.StartingTokenAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid starting token amount: %w", err)
	}
	minStart, err := ParseAmount(r.MinAmountStart)
	if err != nil {
		return nil, fmt.Errorf("invalid min amount start: %w", err)
	}
	minFinish, err := ParseAmount(r.MinAmountEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid min amount end: %w", err)
	}
	relayerFee, err := ParseAmount(r.RelayerFee)
	if err != nil {
		return nil, fmt.Errorf("invalid relayer fee: %w", err)
	}
	return &TradeParameters{
		FlagSet: FlagSet{
			RecipientChain:     r.RecipientChain,
			FeeTierStart:       r.FeeTierStart,
			FeeTierFinish:      r.FeeTierEnd,
			ShouldWrapNative:   r.ShouldWrapNative,
			ShouldUnwrapNative: r.ShouldUnwrapNative,
		},
		StartTokenAddress:         r.StartingToken,
		CanonAssetAddress:         r.CanonicalToken,
		FinalTokenAddress:         r.DestinationToken,
		RecipientAddress:          r.DestinationAddress,
		DestinationPorticoAddress: r.DestinationPorticoAddress,
		AmountSpecified:           amount,
		MinAmountStart:            minStart,
		MinAmountFinish:           minFinish,
		RelayerFee:                relayerFee,
	}, nil
}

// ValidateCreateOrderResponse decodes the start() call proposed by the
// order service and checks every field against the request. The first
// mismatching field is reported. The bridge nonce is chosen by the service
// and is not checked.
func ValidateCreateOrderResponse(resp *CreateOrderResponse, req *CreateOrderRequest) (*TradeParameters, error) {
	if resp == nil || req == nil {
		return nil, fmt.Errorf("%w: missing order", connect.ErrInvalidRequest)
	}
	want, err := req.TradeParameters()
	if err != nil {
		return nil, err
	}

	if !common.IsHexAddress(resp.TransactionTarget) ||
		common.HexToAddress(resp.TransactionTarget) != req.PorticoAddress {
		return nil, ErrTransactionTarget
	}
	calldata, err := hexutil.Decode(resp.TransactionData)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction data: %v", connect.ErrMalformedInput, err)
	}
	got, err := DecodeStart(calldata)
	if err != nil {
		return nil, err
	}

	switch {
	case got.FlagSet.RecipientChain != want.FlagSet.RecipientChain:
		return nil, ErrRecipientChain
	case got.FlagSet.FeeTierStart != want.FlagSet.FeeTierStart:
		return nil, ErrFeeTierStart
	case got.FlagSet.FeeTierFinish != want.FlagSet.FeeTierFinish:
		return nil, ErrFeeTierFinish
	case got.FlagSet.ShouldWrapNative != want.FlagSet.ShouldWrapNative:
		return nil, ErrShouldWrapNative
	case got.FlagSet.ShouldUnwrapNative != want.FlagSet.ShouldUnwrapNative:
		return nil, ErrShouldUnwrapNative
	case got.StartTokenAddress != want.StartTokenAddress:
		return nil, ErrStartToken
	case got.CanonAssetAddress != want.CanonAssetAddress:
		return nil, ErrCanonAsset
	case got.FinalTokenAddress != want.FinalTokenAddress:
		return nil, ErrFinalToken
	case got.RecipientAddress != want.RecipientAddress:
		return nil, ErrRecipientAddress
	case got.DestinationPorticoAddress != want.DestinationPorticoAddress:
		return nil, ErrDestinationPortico
	case !got.AmountSpecified.Eq(want.AmountSpecified):
		return nil, ErrAmountSpecified
	case !got.MinAmountStart.Eq(want.MinAmountStart):
		return nil, ErrMinAmountStart
	case !got.MinAmountFinish.Eq(want.MinAmountFinish):
		return nil, ErrMinAmountFinish
	case !got.RelayerFee.Eq(want.RelayerFee):
		return nil, ErrRelayerFee
	}

	value, err := ParseAmount(resp.TransactionValue)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction value: %v", connect.ErrMalformedInput, err)
	}
	wantValue := new(uint256.Int)
	if req.ShouldWrapNative {
		wantValue = want.AmountSpecified
	}
	if !value.Eq(wantValue) {
		return nil, ErrTransactionValue
	}
	return got, nil
}

// ParseAmount parses a decimal or 0x-prefixed hex amount. Empty is zero.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return new(uint256.Int), nil
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		digits := strings.TrimLeft(s[2:], "0")
		if digits == "" {
			return new(uint256.Int), nil
		}
		return uint256.FromHex("0x" + digits)
	default:
		return uint256.FromDecimal(s)
	}
}
