// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package portico

import (
	"bytes"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/connect"
)

const (
	wordLen = 32

	// TradeParametersLen is the ABI size of the start() tuple: ten words.
	TradeParametersLen = 10 * wordLen

	// StartSignature is the Portico entry point taking the trade parameters.
	StartSignature = "start((bytes32,address,address,address,address,address,uint256,uint256,uint256,uint256))"
)

// StartSelector is the 4 byte selector of StartSignature
var StartSelector = connect.Keccak256([]byte(StartSignature)).Bytes()[:4]

// TradeParameters is the argument of a Portico start() call
type TradeParameters struct {
	FlagSet                   FlagSet
	StartTokenAddress         common.Address
	CanonAssetAddress         common.Address
	FinalTokenAddress         common.Address
	RecipientAddress          common.Address
	DestinationPorticoAddress common.Address
	AmountSpecified           *uint256.Int
	MinAmountStart            *uint256.Int
	MinAmountFinish           *uint256.Int
	RelayerFee                *uint256.Int
}

// ParseTradeParameters decodes the 320 byte tuple encoding.
func ParseTradeParameters(b []byte) (*TradeParameters, error) {
	if len(b) < TradeParametersLen {
		return nil, fmt.Errorf("%w: trade parameters need %d bytes, got %d",
			connect.ErrTruncatedPayload, TradeParametersLen, len(b))
	}
	flags, err := ParseFlagSet(b[0:wordLen])
	if err != nil {
		return nil, err
	}
	return &TradeParameters{
		FlagSet:                   flags,
		StartTokenAddress:         addressWord(b, 1),
		CanonAssetAddress:         addressWord(b, 2),
		FinalTokenAddress:         addressWord(b, 3),
		RecipientAddress:          addressWord(b, 4),
		DestinationPorticoAddress: addressWord(b, 5),
		AmountSpecified:           uintWord(b, 6),
		MinAmountStart:            uintWord(b, 7),
		MinAmountFinish:           uintWord(b, 8),
		RelayerFee:                uintWord(b, 9),
	}, nil
}

// Bytes encodes the trade parameters as ten ABI words.
func (p *TradeParameters) Bytes() ([]byte, error) {
	flags, err := p.FlagSet.Bytes()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, TradeParametersLen)
	copy(buf[0:wordLen], flags)
	putAddressWord(buf, 1, p.StartTokenAddress)
	putAddressWord(buf, 2, p.CanonAssetAddress)
	putAddressWord(buf, 3, p.FinalTokenAddress)
	putAddressWord(buf, 4, p.RecipientAddress)
	putAddressWord(buf, 5, p.DestinationPorticoAddress)
	putUintWord(buf, 6, p.AmountSpecified)
	putUintWord(buf, 7, p.MinAmountStart)
	putUintWord(buf, 8, p.MinAmountFinish)
	putUintWord(buf, 9, p.RelayerFee)
	return buf, nil
}

// EncodeStart returns the calldata of start(params).
func EncodeStart(p *TradeParameters) ([]byte, error) {
	params, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, StartSelector...), params...), nil
}

// DecodeStart parses start() calldata, checking the selector and length.
func DecodeStart(calldata []byte) (*TradeParameters, error) {
	if len(calldata) < len(StartSelector) || !bytes.Equal(calldata[:len(StartSelector)], StartSelector) {
		return nil, ErrInvalidSelector
	}
	if len(calldata) != len(StartSelector)+TradeParametersLen {
		return nil, fmt.Errorf("%w: start calldata must be %d bytes, got %d",
			connect.ErrTruncatedPayload, len(StartSelector)+TradeParametersLen, len(calldata))
	}
	return ParseTradeParameters(calldata[len(StartSelector):])
}

// addressWord reads the address right-aligned in the i-th word.
func addressWord(b []byte, i int) common.Address {
	return common.BytesToAddress(b[i*wordLen+12 : (i+1)*wordLen])
}

func uintWord(b []byte, i int) *uint256.Int {
	return new(uint256.Int).SetBytes(b[i*wordLen : (i+1)*wordLen])
}

func putAddressWord(buf []byte, i int, a common.Address) {
	copy(buf[i*wordLen+12:(i+1)*wordLen], a.Bytes())
}

func putUintWord(buf []byte, i int, v *uint256.Int) {
	if v == nil {
		return
	}
	word := v.Bytes32()
	copy(buf[i*wordLen:(i+1)*wordLen], word[:])
}
