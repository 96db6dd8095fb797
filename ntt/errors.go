// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ntt

import (
	"fmt"

	"github.com/luxfi/connect"
)

var (
	ErrInvalidPrefix    = fmt.Errorf("%w: Invalid prefix", connect.ErrMalformedInput)
	ErrUnknownPrefix    = fmt.Errorf("%w: Unknown prefix", connect.ErrMalformedInput)
	ErrInvalidID        = fmt.Errorf("%w: id must be 32 bytes", connect.ErrMalformedInput)
	ErrInvalidSender    = fmt.Errorf("%w: sender must be 32 bytes", connect.ErrMalformedInput)
	ErrInvalidSourceMgr = fmt.Errorf("%w: sourceNttManager must be 32 bytes", connect.ErrMalformedInput)
	ErrInvalidRecipMgr  = fmt.Errorf("%w: recipientNttManager must be 32 bytes", connect.ErrMalformedInput)
	ErrPayloadTooLarge  = fmt.Errorf("%w: payload exceeds 65535 bytes", connect.ErrMalformedInput)
	ErrAmountTooLarge   = fmt.Errorf("%w: trimmed amount does not fit in 64 bits", connect.ErrMalformedInput)
)
