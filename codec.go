// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package connect

// Codec serializes and deserializes a payload carried inside a framed message.
// Framing types (NTT manager and transceiver messages) are generic over the
// payload and take a Codec so that payload interpretation stays separate from
// the frame layout.
type Codec[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(b []byte) (T, error)
}

// CodecFuncs adapts a pair of functions to the Codec interface.
type CodecFuncs[T any] struct {
	MarshalFunc   func(T) ([]byte, error)
	UnmarshalFunc func([]byte) (T, error)
}

// Marshal serializes the value
func (c CodecFuncs[T]) Marshal(v T) ([]byte, error) {
	return c.MarshalFunc(v)
}

// Unmarshal deserializes the bytes
func (c CodecFuncs[T]) Unmarshal(b []byte) (T, error) {
	return c.UnmarshalFunc(b)
}

// BytesCodec passes raw payload bytes through unchanged.
var BytesCodec Codec[[]byte] = CodecFuncs[[]byte]{
	MarshalFunc: func(b []byte) ([]byte, error) {
		return b, nil
	},
	UnmarshalFunc: func(b []byte) ([]byte, error) {
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	},
}
