// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package connect

import (
	"math/big"

	"github.com/luxfi/ids"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

// TransferState tracks a transfer as reconstructed from on-chain state
type TransferState uint8

const (
	TransferCreated TransferState = iota
	TransferSent
	TransferQueued
	TransferRedeemed
	TransferFailed
)

func (s TransferState) String() string {
	switch s {
	case TransferCreated:
		return "created"
	case TransferSent:
		return "sent"
	case TransferQueued:
		return "queued"
	case TransferRedeemed:
		return "redeemed"
	case TransferFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether a transfer may move from s to next.
// Queued is only reachable from Sent, and Redeemed/Failed are terminal.
func (s TransferState) CanTransition(next TransferState) bool {
	switch s {
	case TransferCreated:
		return next == TransferSent || next == TransferFailed
	case TransferSent:
		return next == TransferQueued || next == TransferRedeemed || next == TransferFailed
	case TransferQueued:
		return next == TransferRedeemed || next == TransferFailed
	default:
		return false
	}
}

// TransferReceipt describes an outbound transfer recovered from a source
// transaction. It is never persisted.
type TransferReceipt struct {
	Route       Route
	State       TransferState
	SourceChain vaa.ChainID
	DestChain   vaa.ChainID
	SourceTx    string
	DestTx      string
	Sender      string
	Recipient   string
	// TokenKey is the config key of the token sent, empty when unknown.
	TokenKey string
	// Amount in the smallest unit of the token on the source chain
	Amount     *big.Int
	RelayerFee *big.Int
	// MessageID is the identity key of the transfer: the NTT digest, the CCTP
	// nonce hash or the wormhole message id hash.
	MessageID ids.ID
	// Emitter and Sequence identify the wormhole message, when there is one.
	Emitter  vaa.Address
	Sequence uint64
	// CCTPNonce is set by the CCTP routes.
	CCTPNonce uint64
	// Attested is true once the guardians signed the wormhole message.
	Attested bool
}

// Advance moves the receipt to next if the transition is allowed.
func (r *TransferReceipt) Advance(next TransferState) bool {
	if r.State == next {
		return true
	}
	if !r.State.CanTransition(next) {
		return false
	}
	r.State = next
	return true
}

// DisplayRow is a formatted summary row
type DisplayRow struct {
	Title    string `json:"title"`
	Value    string `json:"value"`
	ValueUSD string `json:"valueUSD,omitempty"`
}

// TransferDisplayData is a read-only projection rendered by the UI
type TransferDisplayData []DisplayRow

// TransferDestInfo describes the destination side of a transfer
type TransferDestInfo struct {
	Route       Route
	State       TransferState
	ReceiveTx   string
	DisplayData TransferDisplayData
}
