// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain holds chain identity, address conversion and the EVM
// plumbing used to inspect transfers on chain.
package chain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

var (
	ErrUnknownChain    = errors.New("unknown chain")
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrInvalidAddress  = errors.New("invalid address")
)

// Platform is the execution environment of a chain
type Platform string

const (
	PlatformEVM    Platform = "evm"
	PlatformSolana Platform = "solana"
)

// ParsePlatform is case-insensitive
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformEVM, PlatformSolana:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
}

// ParseChain accepts either a wormhole chain name ("ethereum", "solana") or
// its numeric id ("2", "1"). Both forms are used interchangeably upstream.
func ParseChain(s string) (vaa.ChainID, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		if n == 0 || n > math.MaxUint16 {
			return vaa.ChainIDUnset, fmt.Errorf("%w: %d", ErrUnknownChain, n)
		}
		id := vaa.ChainID(n)
		if strings.HasPrefix(id.String(), "unknown") {
			return vaa.ChainIDUnset, fmt.Errorf("%w: %d", ErrUnknownChain, n)
		}
		return id, nil
	}
	id, err := vaa.ChainIDFromString(strings.ToLower(s))
	if err != nil || id == vaa.ChainIDUnset {
		return vaa.ChainIDUnset, fmt.Errorf("%w: %q", ErrUnknownChain, s)
	}
	return id, nil
}

// Name returns the lower-case wormhole name of id.
func Name(id vaa.ChainID) string {
	return id.String()
}
