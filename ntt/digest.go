// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ntt

import (
	"encoding/binary"

	"github.com/luxfi/ids"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
)

// Digest is keccak256(u16 BE source chain || serialized manager message).
// Managers key redemptions and queued inbound transfers by it.
func Digest[T any](source vaa.ChainID, m *ManagerMessage[T], codec connect.Codec[T]) (ids.ID, error) {
	msg, err := m.Bytes(codec)
	if err != nil {
		return ids.Empty, err
	}
	var chain [2]byte
	binary.BigEndian.PutUint16(chain[:], uint16(source))
	return ids.ID(connect.Keccak256(chain[:], msg)), nil
}
