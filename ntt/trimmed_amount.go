// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ntt

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/luxfi/connect"
)

const (
	// TrimmedAmountLen is the encoded size: 1 byte decimals, 8 bytes amount.
	TrimmedAmountLen = 9

	// TrimmedDecimals is the maximum precision carried across chains.
	TrimmedDecimals uint8 = 8
)

// TrimmedAmount is a token amount re-expressed with a reduced decimal precision
type TrimmedAmount struct {
	Amount   uint64
	Decimals uint8
}

// ParseTrimmedAmount reads decimals at offset 0 and a big-endian amount at offset 1.
func ParseTrimmedAmount(b []byte) (TrimmedAmount, error) {
	if len(b) < TrimmedAmountLen {
		return TrimmedAmount{}, fmt.Errorf("%w: trimmed amount needs %d bytes, got %d",
			connect.ErrTruncatedPayload, TrimmedAmountLen, len(b))
	}
	return TrimmedAmount{
		Decimals: b[0],
		Amount:   binary.BigEndian.Uint64(b[1:TrimmedAmountLen]),
	}, nil
}

// Bytes returns the 9-byte encoding
func (t TrimmedAmount) Bytes() []byte {
	buf := make([]byte, TrimmedAmountLen)
	buf[0] = t.Decimals
	binary.BigEndian.PutUint64(buf[1:], t.Amount)
	return buf
}

// Trim scales amount, expressed with fromDecimals, down to
// min(TrimmedDecimals, fromDecimals, toDecimals). Dust below the trimmed
// precision is dropped.
func Trim(amount *big.Int, fromDecimals, toDecimals uint8) (TrimmedAmount, error) {
	if amount == nil || amount.Sign() < 0 {
		return TrimmedAmount{}, fmt.Errorf("%w: amount must be non-negative", connect.ErrMalformedInput)
	}
	target := min(TrimmedDecimals, fromDecimals, toDecimals)
	scaled := scale(amount, fromDecimals, target)
	if !scaled.IsUint64() {
		return TrimmedAmount{}, ErrAmountTooLarge
	}
	return TrimmedAmount{Amount: scaled.Uint64(), Decimals: target}, nil
}

// Untrim expresses the amount with toDecimals.
func (t TrimmedAmount) Untrim(toDecimals uint8) *big.Int {
	return scale(new(big.Int).SetUint64(t.Amount), t.Decimals, toDecimals)
}

// Add sums two amounts with the same precision.
func (t TrimmedAmount) Add(o TrimmedAmount) (TrimmedAmount, error) {
	if t.Decimals != o.Decimals {
		return TrimmedAmount{}, fmt.Errorf("%w: decimals mismatch %d != %d",
			connect.ErrMalformedInput, t.Decimals, o.Decimals)
	}
	sum, err := connect.AddUint64(t.Amount, o.Amount)
	if err != nil {
		return TrimmedAmount{}, err
	}
	return TrimmedAmount{Amount: sum, Decimals: t.Decimals}, nil
}

func (t TrimmedAmount) String() string {
	return fmt.Sprintf("%d (%d decimals)", t.Amount, t.Decimals)
}

func scale(amount *big.Int, from, to uint8) *big.Int {
	out := new(big.Int).Set(amount)
	switch {
	case from > to:
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(from-to)), nil)
		out.Quo(out, factor)
	case to > from:
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(to-from)), nil)
		out.Mul(out, factor)
	}
	return out
}
