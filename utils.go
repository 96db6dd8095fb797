// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package connect

import (
	"errors"
	"math"

	luxcrypto "github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
)

// ErrOverflow is returned by the checked arithmetic helpers
var ErrOverflow = errors.New("arithmetic overflow")

// AddUint64 adds two uint64 values and returns an error if overflow
func AddUint64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Keccak256 hashes the concatenation of the given byte slices.
func Keccak256(parts ...[]byte) common.Hash {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return common.BytesToHash(luxcrypto.Keccak256(buf))
}

// EventTopic returns the log topic for an event signature such as
// "Transfer(address,address,uint256)".
func EventTopic(signature string) common.Hash {
	return Keccak256([]byte(signature))
}
