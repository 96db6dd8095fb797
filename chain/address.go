// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/luxfi/geth/common"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

// UniversalAddress converts a native address to the 32 byte form carried in
// wormhole payloads. EVM addresses are left-padded with zeros.
func UniversalAddress(p Platform, native string) (vaa.Address, error) {
	switch p {
	case PlatformEVM:
		if !common.IsHexAddress(native) {
			return vaa.Address{}, fmt.Errorf("%w: %q is not an EVM address", ErrInvalidAddress, native)
		}
		return FromEVM(common.HexToAddress(native)), nil
	case PlatformSolana:
		key, err := solana.PublicKeyFromBase58(native)
		if err != nil {
			return vaa.Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, native, err)
		}
		return vaa.Address(key), nil
	default:
		return vaa.Address{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
	}
}

// NativeAddress renders a universal address in the platform's own format.
func NativeAddress(p Platform, addr vaa.Address) (string, error) {
	switch p {
	case PlatformEVM:
		evm, ok := ToEVM(addr)
		if !ok {
			return "", fmt.Errorf("%w: %s has non-zero high bytes", ErrInvalidAddress, addr)
		}
		return evm.Hex(), nil
	case PlatformSolana:
		return solana.PublicKeyFromBytes(addr[:]).String(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
	}
}

// FromEVM left-pads an EVM address to 32 bytes.
func FromEVM(a common.Address) vaa.Address {
	var out vaa.Address
	copy(out[12:], a.Bytes())
	return out
}

// ToEVM returns the low 20 bytes. It reports false if the high 12 bytes are
// not zero.
func ToEVM(addr vaa.Address) (common.Address, bool) {
	for _, b := range addr[:12] {
		if b != 0 {
			return common.Address{}, false
		}
	}
	return common.BytesToAddress(addr[12:]), true
}
