// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"
	"math/big"

	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
)

// Token bridge payload ids
const (
	TransferPayloadID            uint8 = 1
	TransferWithPayloadPayloadID uint8 = 3

	transferHeaderLen = 101
	transferLen       = transferHeaderLen + word

	relayerPayloadLen = 1 + 3*word
)

// TokenBridgeTransfer is a token bridge transfer message. Fee is set for
// payload 1, FromAddress and Payload for payload 3.
type TokenBridgeTransfer struct {
	*vaa.TransferPayloadHdr
	Fee         *big.Int
	FromAddress vaa.Address
	Payload     []byte
}

// ParseTokenBridgeTransfer decodes a payload 1 or payload 3 transfer.
func ParseTokenBridgeTransfer(payload []byte) (*TokenBridgeTransfer, error) {
	if len(payload) < transferLen {
		return nil, fmt.Errorf("%w: token bridge transfer needs %d bytes, got %d",
			connect.ErrTruncatedPayload, transferLen, len(payload))
	}
	hdr, err := vaa.DecodeTransferPayloadHdr(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connect.ErrMalformedInput, err)
	}
	t := &TokenBridgeTransfer{TransferPayloadHdr: hdr}
	switch hdr.Type {
	case TransferPayloadID:
		t.Fee = new(big.Int).SetBytes(payload[transferHeaderLen:transferLen])
	case TransferWithPayloadPayloadID:
		copy(t.FromAddress[:], payload[transferHeaderLen:transferLen])
		t.Payload = append([]byte{}, payload[transferLen:]...)
	default:
		return nil, fmt.Errorf("%w: token bridge payload id %d", connect.ErrMalformedInput, hdr.Type)
	}
	return t, nil
}

// RelayerPayload is the payload the token bridge relayer attaches to a
// payload 3 transfer.
type RelayerPayload struct {
	TargetRelayerFee    *big.Int
	ToNativeTokenAmount *big.Int
	TargetRecipient     vaa.Address
}

// ParseRelayerPayload decodes a token bridge relayer payload
func ParseRelayerPayload(b []byte) (*RelayerPayload, error) {
	if len(b) < relayerPayloadLen {
		return nil, fmt.Errorf("%w: relayer payload needs %d bytes, got %d",
			connect.ErrTruncatedPayload, relayerPayloadLen, len(b))
	}
	if b[0] != 1 {
		return nil, fmt.Errorf("%w: relayer payload id %d", connect.ErrMalformedInput, b[0])
	}
	p := &RelayerPayload{
		TargetRelayerFee:    new(big.Int).SetBytes(b[1 : 1+word]),
		ToNativeTokenAmount: new(big.Int).SetBytes(b[1+word : 1+2*word]),
	}
	copy(p.TargetRecipient[:], b[1+2*word:1+3*word])
	return p, nil
}

// EncodeRelayerPayload is the inverse of ParseRelayerPayload
func EncodeRelayerPayload(p *RelayerPayload) []byte {
	buf := make([]byte, relayerPayloadLen)
	buf[0] = 1
	p.TargetRelayerFee.FillBytes(buf[1 : 1+word])
	p.ToNativeTokenAmount.FillBytes(buf[1+word : 1+2*word])
	copy(buf[1+2*word:], p.TargetRecipient[:])
	return buf
}
