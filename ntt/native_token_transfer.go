// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ntt

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
)

// NativeTokenTransferPrefix is the magic prefix "\x99NTT".
var NativeTokenTransferPrefix = []byte{0x99, 0x4e, 0x54, 0x54}

// NativeTokenTransferLen is the encoded size of a native token transfer
const NativeTokenTransferLen = prefixLen + TrimmedAmountLen + 32 + 32 + 2

// NativeTokenTransfer is the manager payload of an NTT token transfer
type NativeTokenTransfer struct {
	TrimmedAmount    TrimmedAmount
	SourceToken      vaa.Address
	RecipientAddress vaa.Address
	RecipientChain   vaa.ChainID
}

// NativeTokenTransferCodec encodes transfers framed inside manager messages.
var NativeTokenTransferCodec connect.Codec[*NativeTokenTransfer] = connect.CodecFuncs[*NativeTokenTransfer]{
	MarshalFunc: func(t *NativeTokenTransfer) ([]byte, error) {
		if t == nil {
			return nil, fmt.Errorf("%w: nil native token transfer", connect.ErrMalformedInput)
		}
		return t.Bytes(), nil
	},
	UnmarshalFunc: ParseNativeTokenTransfer,
}

// Bytes serializes the transfer
func (t *NativeTokenTransfer) Bytes() []byte {
	buf := make([]byte, NativeTokenTransferLen)
	offset := 0

	copy(buf[offset:], NativeTokenTransferPrefix)
	offset += prefixLen
	copy(buf[offset:], t.TrimmedAmount.Bytes())
	offset += TrimmedAmountLen
	copy(buf[offset:], t.SourceToken[:])
	offset += 32
	copy(buf[offset:], t.RecipientAddress[:])
	offset += 32
	binary.BigEndian.PutUint16(buf[offset:], uint16(t.RecipientChain))

	return buf
}

// ParseNativeTokenTransfer decodes a transfer. Bytes past the fixed layout
// are ignored.
func ParseNativeTokenTransfer(data []byte) (*NativeTokenTransfer, error) {
	if len(data) < prefixLen || !bytes.Equal(data[:prefixLen], NativeTokenTransferPrefix) {
		return nil, ErrInvalidPrefix
	}
	if len(data) < NativeTokenTransferLen {
		return nil, fmt.Errorf("%w: native token transfer needs %d bytes, got %d",
			connect.ErrTruncatedPayload, NativeTokenTransferLen, len(data))
	}

	offset := prefixLen
	amount, err := ParseTrimmedAmount(data[offset : offset+TrimmedAmountLen])
	if err != nil {
		return nil, err
	}
	offset += TrimmedAmountLen

	t := &NativeTokenTransfer{TrimmedAmount: amount}
	copy(t.SourceToken[:], data[offset:offset+32])
	offset += 32
	copy(t.RecipientAddress[:], data[offset:offset+32])
	offset += 32
	t.RecipientChain = vaa.ChainID(binary.BigEndian.Uint16(data[offset:]))

	return t, nil
}
