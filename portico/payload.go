// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package portico

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/connect"
)

// PayloadLen is the size of the payload Portico attaches to a token bridge
// transfer: six words.
const PayloadLen = 6 * wordLen

// Payload is carried by the token bridge from the source Portico to the
// destination Portico.
type Payload struct {
	FlagSet           FlagSet
	FinalTokenAddress common.Address
	RecipientAddress  common.Address
	CanonAssetAmount  *uint256.Int
	MinAmountFinish   *uint256.Int
	RelayerFee        *uint256.Int
}

// ParsePayload decodes a bridged Portico payload
func ParsePayload(b []byte) (*Payload, error) {
	if len(b) < PayloadLen {
		return nil, fmt.Errorf("%w: portico payload needs %d bytes, got %d",
			connect.ErrTruncatedPayload, PayloadLen, len(b))
	}
	flags, err := ParseFlagSet(b[0:wordLen])
	if err != nil {
		return nil, err
	}
	return &Payload{
		FlagSet:           flags,
		FinalTokenAddress: addressWord(b, 1),
		RecipientAddress:  addressWord(b, 2),
		CanonAssetAmount:  uintWord(b, 3),
		MinAmountFinish:   uintWord(b, 4),
		RelayerFee:        uintWord(b, 5),
	}, nil
}

// Bytes encodes the payload
func (p *Payload) Bytes() ([]byte, error) {
	flags, err := p.FlagSet.Bytes()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, PayloadLen)
	copy(buf[0:wordLen], flags)
	putAddressWord(buf, 1, p.FinalTokenAddress)
	putAddressWord(buf, 2, p.RecipientAddress)
	putUintWord(buf, 3, p.CanonAssetAmount)
	putUintWord(buf, 4, p.MinAmountFinish)
	putUintWord(buf, 5, p.RelayerFee)
	return buf, nil
}
