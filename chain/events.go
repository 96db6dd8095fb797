// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
)

// Event topics of the contracts the routes inspect.
var (
	LogMessagePublishedTopic      = connect.EventTopic("LogMessagePublished(address,uint64,uint32,bytes,uint8)")
	TokenBridgeRedeemedTopic      = connect.EventTopic("TransferRedeemed(uint16,bytes32,uint64)")
	DepositForBurnTopic           = connect.EventTopic("DepositForBurn(uint64,address,uint256,address,bytes32,uint32,bytes32,bytes32)")
	MessageReceivedTopic          = connect.EventTopic("MessageReceived(address,uint32,uint64,bytes32,bytes)")
	NttTransferRedeemedTopic      = connect.EventTopic("TransferRedeemed(bytes32)")
	NttInboundTransferQueuedTopic = connect.EventTopic("InboundTransferQueued(bytes32)")
	OrderCreatedTopic             = connect.EventTopic("OrderCreated(bytes32)")
)

var ErrUnexpectedEvent = errors.New("unexpected event")

const word = 32

// MessagePublished is a wormhole core bridge LogMessagePublished event
type MessagePublished struct {
	Emitter          common.Address
	Sequence         uint64
	Nonce            uint32
	Payload          []byte
	ConsistencyLevel uint8
}

// EmitterAddress is the emitter in universal form
func (m *MessagePublished) EmitterAddress() vaa.Address {
	return FromEVM(m.Emitter)
}

// DecodeMessagePublished decodes a LogMessagePublished log.
func DecodeMessagePublished(l *types.Log) (*MessagePublished, error) {
	if err := checkTopics(l, LogMessagePublishedTopic, 2); err != nil {
		return nil, err
	}
	if len(l.Data) < 5*word {
		return nil, truncated("LogMessagePublished", 5*word, len(l.Data))
	}
	payload, err := dynamicBytes(l.Data, 2)
	if err != nil {
		return nil, err
	}
	return &MessagePublished{
		Emitter:          common.BytesToAddress(l.Topics[1].Bytes()),
		Sequence:         uint64Word(l.Data, 0),
		Nonce:            uint32(uint64Word(l.Data, 1)),
		Payload:          payload,
		ConsistencyLevel: uint8(uint64Word(l.Data, 3)),
	}, nil
}

// MessagesPublished returns the messages the core bridge published in a
// receipt, in log order. Logs that fail to decode are skipped.
func MessagesPublished(receipt *types.Receipt, coreBridge common.Address) []*MessagePublished {
	if receipt == nil {
		return nil
	}
	var out []*MessagePublished
	for _, l := range receipt.Logs {
		if l.Address != coreBridge {
			continue
		}
		msg, err := DecodeMessagePublished(l)
		if err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// DepositForBurn is emitted by the CCTP token messenger when USDC is burned
type DepositForBurn struct {
	Nonce                     uint64
	BurnToken                 common.Address
	Amount                    *big.Int
	Depositor                 common.Address
	MintRecipient             vaa.Address
	DestinationDomain         uint32
	DestinationTokenMessenger vaa.Address
	DestinationCaller         vaa.Address
}

// DecodeDepositForBurn decodes a DepositForBurn log.
func DecodeDepositForBurn(l *types.Log) (*DepositForBurn, error) {
	if err := checkTopics(l, DepositForBurnTopic, 4); err != nil {
		return nil, err
	}
	if len(l.Data) < 5*word {
		return nil, truncated("DepositForBurn", 5*word, len(l.Data))
	}
	d := &DepositForBurn{
		Nonce:             new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64(),
		BurnToken:         common.BytesToAddress(l.Topics[2].Bytes()),
		Amount:            new(big.Int).SetBytes(l.Data[0:word]),
		Depositor:         common.BytesToAddress(l.Topics[3].Bytes()),
		DestinationDomain: uint32(uint64Word(l.Data, 2)),
	}
	copy(d.MintRecipient[:], l.Data[word:2*word])
	copy(d.DestinationTokenMessenger[:], l.Data[3*word:4*word])
	copy(d.DestinationCaller[:], l.Data[4*word:5*word])
	return d, nil
}

// MessageReceived is emitted by the CCTP message transmitter on redemption
type MessageReceived struct {
	Caller       common.Address
	SourceDomain uint32
	Nonce        uint64
	Sender       vaa.Address
	MessageBody  []byte
}

// DecodeMessageReceived decodes a MessageReceived log.
func DecodeMessageReceived(l *types.Log) (*MessageReceived, error) {
	if err := checkTopics(l, MessageReceivedTopic, 3); err != nil {
		return nil, err
	}
	if len(l.Data) < 4*word {
		return nil, truncated("MessageReceived", 4*word, len(l.Data))
	}
	body, err := dynamicBytes(l.Data, 2)
	if err != nil {
		return nil, err
	}
	m := &MessageReceived{
		Caller:       common.BytesToAddress(l.Topics[1].Bytes()),
		SourceDomain: uint32(uint64Word(l.Data, 0)),
		Nonce:        new(big.Int).SetBytes(l.Topics[2].Bytes()).Uint64(),
		MessageBody:  body,
	}
	copy(m.Sender[:], l.Data[word:2*word])
	return m, nil
}

// TokenBridgeRedeemed is the token bridge TransferRedeemed event
type TokenBridgeRedeemed struct {
	EmitterChain   vaa.ChainID
	EmitterAddress vaa.Address
	Sequence       uint64
}

// DecodeTokenBridgeRedeemed decodes a token bridge TransferRedeemed log.
func DecodeTokenBridgeRedeemed(l *types.Log) (*TokenBridgeRedeemed, error) {
	if err := checkTopics(l, TokenBridgeRedeemedTopic, 4); err != nil {
		return nil, err
	}
	r := &TokenBridgeRedeemed{
		EmitterChain: vaa.ChainID(new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64()),
		Sequence:     new(big.Int).SetBytes(l.Topics[3].Bytes()).Uint64(),
	}
	copy(r.EmitterAddress[:], l.Topics[2].Bytes())
	return r, nil
}

// DecodeBytes32Event reads the single bytes32 argument of events such as
// NTT TransferRedeemed(bytes32) or OrderCreated(bytes32), indexed or not.
func DecodeBytes32Event(l *types.Log, topic common.Hash) (common.Hash, error) {
	if err := checkTopics(l, topic, 1); err != nil {
		return common.Hash{}, err
	}
	if len(l.Topics) > 1 {
		return l.Topics[1], nil
	}
	if len(l.Data) < word {
		return common.Hash{}, truncated(topic.Hex(), word, len(l.Data))
	}
	return common.BytesToHash(l.Data[:word]), nil
}

// FindLogs returns the receipt logs emitted by address with the given topic.
func FindLogs(receipt *types.Receipt, address common.Address, topic common.Hash) []*types.Log {
	if receipt == nil {
		return nil
	}
	var out []*types.Log
	for _, l := range receipt.Logs {
		if l.Address == address && len(l.Topics) > 0 && l.Topics[0] == topic {
			out = append(out, l)
		}
	}
	return out
}

func checkTopics(l *types.Log, topic common.Hash, n int) error {
	if l == nil || len(l.Topics) == 0 || l.Topics[0] != topic {
		return fmt.Errorf("%w: want topic %s", ErrUnexpectedEvent, topic.Hex())
	}
	if len(l.Topics) < n {
		return fmt.Errorf("%w: want %d topics, got %d", ErrUnexpectedEvent, n, len(l.Topics))
	}
	return nil
}

func truncated(event string, want, got int) error {
	return fmt.Errorf("%w: %s needs %d data bytes, got %d", connect.ErrTruncatedPayload, event, want, got)
}

func uint64Word(data []byte, i int) uint64 {
	return binary.BigEndian.Uint64(data[(i+1)*word-8 : (i+1)*word])
}

// dynamicBytes reads an ABI bytes value whose offset is in word i.
func dynamicBytes(data []byte, i int) ([]byte, error) {
	offset := uint64Word(data, i)
	if offset > uint64(len(data)) || uint64(len(data))-offset < word {
		return nil, fmt.Errorf("%w: bytes offset %d out of range", connect.ErrTruncatedPayload, offset)
	}
	start := offset + word
	length := binary.BigEndian.Uint64(data[start-8 : start])
	if length > uint64(len(data))-start {
		return nil, fmt.Errorf("%w: bytes length %d out of range", connect.ErrTruncatedPayload, length)
	}
	return append([]byte{}, data[start:start+length]...), nil
}
