// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package portico

import (
	"encoding/binary"
	"fmt"

	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
)

// FlagSetLen is the size of the packed flag word
const FlagSetLen = 32

const (
	flagWrapNative   byte = 1 << 0
	flagUnwrapNative byte = 1 << 1

	// MaxFeeTier is the largest value a 3 byte fee tier can hold.
	MaxFeeTier = 1<<24 - 1
)

// FlagSet is the first word of both the trade parameters and the bridged
// payload. Integers are little-endian.
//
//	[0:2]   recipient chain
//	[2:6]   bridge nonce
//	[6:9]   start fee tier
//	[9:12]  finish fee tier
//	[31]    bit 0 wrap native, bit 1 unwrap native
type FlagSet struct {
	RecipientChain     vaa.ChainID
	BridgeNonce        uint32
	FeeTierStart       uint32
	FeeTierFinish      uint32
	ShouldWrapNative   bool
	ShouldUnwrapNative bool
}

// ParseFlagSet decodes the first 32 bytes of b.
func ParseFlagSet(b []byte) (FlagSet, error) {
	if len(b) < FlagSetLen {
		return FlagSet{}, fmt.Errorf("%w: flag set needs %d bytes, got %d",
			connect.ErrTruncatedPayload, FlagSetLen, len(b))
	}
	return FlagSet{
		RecipientChain:     vaa.ChainID(binary.LittleEndian.Uint16(b[0:2])),
		BridgeNonce:        binary.LittleEndian.Uint32(b[2:6]),
		FeeTierStart:       uint24LE(b[6:9]),
		FeeTierFinish:      uint24LE(b[9:12]),
		ShouldWrapNative:   b[31]&flagWrapNative != 0,
		ShouldUnwrapNative: b[31]&flagUnwrapNative != 0,
	}, nil
}

// Bytes packs the flag set. Fee tiers above MaxFeeTier are rejected.
func (f FlagSet) Bytes() ([]byte, error) {
	if f.FeeTierStart > MaxFeeTier || f.FeeTierFinish > MaxFeeTier {
		return nil, fmt.Errorf("%w: fee tier exceeds 3 bytes", connect.ErrMalformedInput)
	}
	buf := make([]byte, FlagSetLen)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(f.RecipientChain))
	binary.LittleEndian.PutUint32(buf[2:6], f.BridgeNonce)
	putUint24LE(buf[6:9], f.FeeTierStart)
	putUint24LE(buf[9:12], f.FeeTierFinish)
	if f.ShouldWrapNative {
		buf[31] |= flagWrapNative
	}
	if f.ShouldUnwrapNative {
		buf[31] |= flagUnwrapNative
	}
	return buf, nil
}

func uint24LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func putUint24LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
