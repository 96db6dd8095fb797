// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/luxfi/connect"
)

const (
	// MaxBridgeDecimals is the precision the token bridge keeps.
	MaxBridgeDecimals = 8

	bpsDenominator = 10_000
)

// ParseAmount converts a decimal string of whole tokens into the token's
// smallest unit. Negative amounts and more fractional digits than the token
// has are rejected.
func ParseAmount(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %v", connect.ErrInvalidRequest, s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %q", connect.ErrInvalidRequest, s)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%w: amount %q has more than %d decimals", connect.ErrInvalidRequest, s, decimals)
	}
	return shifted.BigInt(), nil
}

// FormatAmount converts a smallest-unit amount into whole tokens.
func FormatAmount(v *big.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}

// NormalizeAmount drops the precision the token bridge cannot carry.
func NormalizeAmount(v *big.Int, decimals uint8) *big.Int {
	if decimals <= MaxBridgeDecimals {
		return new(big.Int).Set(v)
	}
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-MaxBridgeDecimals)), nil)
	out := new(big.Int).Quo(v, factor)
	return out.Mul(out, factor)
}

// ApplySlippage returns the minimum acceptable amount for a tolerance in
// basis points, truncated to the token's decimals.
func ApplySlippage(v *big.Int, bps uint32) (*big.Int, error) {
	if bps > bpsDenominator {
		return nil, fmt.Errorf("%w: slippage %d bps", connect.ErrInvalidRequest, bps)
	}
	out := new(big.Int).Mul(v, big.NewInt(int64(bpsDenominator-bps)))
	return out.Quo(out, big.NewInt(bpsDenominator)), nil
}

// SubtractFees returns amount minus fees. The amount must cover the fees.
func SubtractFees(amount *big.Int, fees ...*big.Int) (*big.Int, error) {
	out := new(big.Int).Set(amount)
	for _, fee := range fees {
		if fee == nil {
			continue
		}
		out.Sub(out, fee)
	}
	if out.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount %s does not cover fees", connect.ErrInvalidRequest, amount)
	}
	return out, nil
}

// ConvertDecimals rescales an amount between precisions, truncating.
func ConvertDecimals(v *big.Int, from, to uint8) *big.Int {
	switch {
	case from == to:
		return new(big.Int).Set(v)
	case from > to:
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(from-to)), nil)
		return new(big.Int).Quo(v, factor)
	default:
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(to-from)), nil)
		return new(big.Int).Mul(v, factor)
	}
}

// USDValue prices an amount of whole tokens.
func USDValue(amount, price decimal.Decimal) decimal.Decimal {
	return amount.Mul(price).Round(2)
}
