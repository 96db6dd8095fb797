// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ntt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/luxfi/connect"
)

const (
	prefixLen            = 4
	managerAddrLen       = 32
	transceiverHeaderLen = prefixLen + 2*managerAddrLen + 2
)

// TransceiverFormat names a transceiver message flavour and its magic prefix.
type TransceiverFormat struct {
	Name   string
	Prefix []byte
}

// WormholeTransceiver is the format emitted by the wormhole transceiver.
var WormholeTransceiver = TransceiverFormat{
	Name:   "wormhole",
	Prefix: []byte{0x99, 0x45, 0xff, 0x10},
}

// TransceiverMessage wraps a manager message with the addresses of the source
// and destination managers and a transceiver specific side payload.
type TransceiverMessage[T any] struct {
	Format             TransceiverFormat
	SourceManager      []byte
	RecipientManager   []byte
	ManagerPayload     *ManagerMessage[T]
	TransceiverPayload []byte
}

// Bytes serializes the message. The manager payload is encoded with codec.
func (m *TransceiverMessage[T]) Bytes(codec connect.Codec[T]) ([]byte, error) {
	if len(m.Format.Prefix) == 0 {
		return nil, ErrUnknownPrefix
	}
	if len(m.Format.Prefix) != prefixLen {
		return nil, ErrInvalidPrefix
	}
	if len(m.SourceManager) != managerAddrLen {
		return nil, ErrInvalidSourceMgr
	}
	if len(m.RecipientManager) != managerAddrLen {
		return nil, ErrInvalidRecipMgr
	}
	if m.ManagerPayload == nil {
		return nil, fmt.Errorf("%w: missing manager payload", connect.ErrMalformedInput)
	}
	manager, err := m.ManagerPayload.Bytes(codec)
	if err != nil {
		return nil, err
	}
	if len(manager) > math.MaxUint16 || len(m.TransceiverPayload) > math.MaxUint16 {
		return nil, ErrPayloadTooLarge
	}

	size := transceiverHeaderLen + len(manager) + 2 + len(m.TransceiverPayload)
	buf := make([]byte, size)
	offset := 0

	copy(buf[offset:], m.Format.Prefix)
	offset += prefixLen
	copy(buf[offset:], m.SourceManager)
	offset += managerAddrLen
	copy(buf[offset:], m.RecipientManager)
	offset += managerAddrLen

	binary.BigEndian.PutUint16(buf[offset:], uint16(len(manager)))
	offset += 2
	copy(buf[offset:], manager)
	offset += len(manager)

	binary.BigEndian.PutUint16(buf[offset:], uint16(len(m.TransceiverPayload)))
	offset += 2
	copy(buf[offset:], m.TransceiverPayload)

	return buf, nil
}

// ParseTransceiverMessage decodes data in the given format. It fails with
// ErrUnknownPrefix when the format has no prefix and ErrInvalidPrefix when
// the leading bytes do not match it.
func ParseTransceiverMessage[T any](format TransceiverFormat, data []byte, codec connect.Codec[T]) (*TransceiverMessage[T], error) {
	if len(format.Prefix) == 0 {
		return nil, ErrUnknownPrefix
	}
	if len(data) < prefixLen || !bytes.Equal(data[:prefixLen], format.Prefix) {
		return nil, ErrInvalidPrefix
	}
	if len(data) < transceiverHeaderLen {
		return nil, fmt.Errorf("%w: transceiver message needs %d bytes, got %d",
			connect.ErrTruncatedPayload, transceiverHeaderLen, len(data))
	}

	offset := prefixLen
	m := &TransceiverMessage[T]{Format: format}
	m.SourceManager = append([]byte(nil), data[offset:offset+managerAddrLen]...)
	offset += managerAddrLen
	m.RecipientManager = append([]byte(nil), data[offset:offset+managerAddrLen]...)
	offset += managerAddrLen

	managerLen := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if len(data) < offset+managerLen+2 {
		return nil, fmt.Errorf("%w: manager payload declares %d bytes", connect.ErrTruncatedPayload, managerLen)
	}
	manager, err := ParseManagerMessage(data[offset:offset+managerLen], codec)
	if err != nil {
		return nil, err
	}
	m.ManagerPayload = manager
	offset += managerLen

	transceiverLen := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if len(data) < offset+transceiverLen {
		return nil, fmt.Errorf("%w: transceiver payload declares %d bytes", connect.ErrTruncatedPayload, transceiverLen)
	}
	m.TransceiverPayload = append([]byte{}, data[offset:offset+transceiverLen]...)
	return m, nil
}

// ParseWormholeTransceiverMessage decodes a wormhole transceiver message
// carrying a native token transfer.
func ParseWormholeTransceiverMessage(data []byte) (*TransceiverMessage[*NativeTokenTransfer], error) {
	return ParseTransceiverMessage(WormholeTransceiver, data, NativeTokenTransferCodec)
}

// HasPrefix reports whether data starts with the format's prefix.
func (f TransceiverFormat) HasPrefix(data []byte) bool {
	return len(f.Prefix) > 0 && bytes.HasPrefix(data, f.Prefix)
}
