// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ntt

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/luxfi/connect"
)

const (
	idLen            = 32
	senderLen        = 32
	managerHeaderLen = idLen + senderLen + 2
)

// ManagerMessage is the NTT manager framing around a payload: a 32 byte
// message id, the 32 byte sender and a length prefixed payload.
type ManagerMessage[T any] struct {
	ID      []byte
	Sender  []byte
	Payload T
}

// NewManagerMessage validates the fixed size fields
func NewManagerMessage[T any](id, sender []byte, payload T) (*ManagerMessage[T], error) {
	m := &ManagerMessage[T]{ID: id, Sender: sender, Payload: payload}
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return m, nil
}

// Verify checks the id and sender lengths
func (m *ManagerMessage[T]) Verify() error {
	if len(m.ID) != idLen {
		return ErrInvalidID
	}
	if len(m.Sender) != senderLen {
		return ErrInvalidSender
	}
	return nil
}

// Bytes serializes the message, encoding the payload with codec.
func (m *ManagerMessage[T]) Bytes(codec connect.Codec[T]) ([]byte, error) {
	if err := m.Verify(); err != nil {
		return nil, err
	}
	payload, err := codec.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manager payload: %w", err)
	}
	if len(payload) > math.MaxUint16 {
		return nil, ErrPayloadTooLarge
	}

	buf := make([]byte, managerHeaderLen+len(payload))
	copy(buf[0:idLen], m.ID)
	copy(buf[idLen:idLen+senderLen], m.Sender)
	binary.BigEndian.PutUint16(buf[idLen+senderLen:], uint16(len(payload)))
	copy(buf[managerHeaderLen:], payload)
	return buf, nil
}

// ParseManagerMessage decodes a manager message, decoding the payload with codec.
func ParseManagerMessage[T any](data []byte, codec connect.Codec[T]) (*ManagerMessage[T], error) {
	if len(data) < managerHeaderLen {
		return nil, fmt.Errorf("%w: manager message needs %d bytes, got %d",
			connect.ErrTruncatedPayload, managerHeaderLen, len(data))
	}
	payloadLen := int(binary.BigEndian.Uint16(data[idLen+senderLen:]))
	end := managerHeaderLen + payloadLen
	if len(data) < end {
		return nil, fmt.Errorf("%w: manager payload declares %d bytes, %d available",
			connect.ErrTruncatedPayload, payloadLen, len(data)-managerHeaderLen)
	}

	payload, err := codec.Unmarshal(data[managerHeaderLen:end])
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal manager payload: %w", err)
	}
	m := &ManagerMessage[T]{
		ID:      append([]byte(nil), data[0:idLen]...),
		Sender:  append([]byte(nil), data[idLen:idLen+senderLen]...),
		Payload: payload,
	}
	return m, nil
}
