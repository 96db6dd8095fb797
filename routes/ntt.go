// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/luxfi/geth"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/shopspring/decimal"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/chain"
	"github.com/luxfi/connect/config"
	"github.com/luxfi/connect/ntt"
)

// Wormhole transceiver instructions: one instruction for transceiver 0
// carrying the skip-relay flag.
var (
	skipRelayInstructions = []byte{0x01, 0x00, 0x01, 0x01}
	relayInstructions     = []byte{0x01, 0x00, 0x01, 0x00}
)

// NttRoute transfers tokens through their NTT managers. The relay variant
// pays the wormhole relayer a delivery price in source gas.
type NttRoute struct {
	baseRoute
	relay bool
}

func NewNttManualRoute(cfg *config.Config, deps *Deps) *NttRoute {
	return newNttRoute(connect.RouteNttManual, cfg, deps, false)
}

func NewNttRelayRoute(cfg *config.Config, deps *Deps) *NttRoute {
	return newNttRoute(connect.RouteNttRelay, cfg, deps, true)
}

func newNttRoute(route connect.Route, cfg *config.Config, deps *Deps, relay bool) *NttRoute {
	r := &NttRoute{baseRoute: newBaseRoute(route, cfg, deps), relay: relay}
	r.self = r
	return r
}

func (r *NttRoute) IsSupportedChain(id vaa.ChainID) bool {
	cc, ok := r.cfg.Chain(id)
	if !ok || (r.relay && cc.Contracts.WormholeRelayer == "") {
		return false
	}
	for _, tc := range r.cfg.TokenList() {
		if _, ok := tc.NttManager(id); ok {
			return true
		}
	}
	return false
}

func (r *NttRoute) IsSupportedSourceToken(token, destToken string, source, dest vaa.ChainID) bool {
	return r.supportedToken(token, destToken, source, dest)
}

func (r *NttRoute) IsSupportedDestToken(token, sourceToken string, source, dest vaa.ChainID) bool {
	return r.supportedToken(token, sourceToken, source, dest)
}

func (r *NttRoute) supportedToken(token, counterpart string, source, dest vaa.ChainID) bool {
	tc, ok := r.cfg.Token(token)
	if !ok || !tc.IsNtt() {
		return false
	}
	if counterpart != "" && !strings.EqualFold(counterpart, tc.Key) {
		return false
	}
	for _, id := range []vaa.ChainID{source, dest} {
		if id == vaa.ChainIDUnset {
			continue
		}
		if _, ok := tc.NttManager(id); !ok {
			return false
		}
		if _, ok := tc.NttTransceiver(id); !ok {
			return false
		}
	}
	return true
}

func (r *NttRoute) FetchQuoteData(ctx context.Context, req *TransferRequest) error {
	if !r.relay {
		return nil
	}
	fee, err := r.relayerFee(ctx, req)
	if err != nil {
		return err
	}
	req.RelayerFee = fee
	return nil
}

// trimmed is the amount the manager carries: trimmed to the precision both
// chains share.
func (r *NttRoute) trimmed(req *TransferRequest) (ntt.TrimmedAmount, *config.TokenConfig, error) {
	amount, tc, err := r.sourceAmount(req)
	if err != nil {
		return ntt.TrimmedAmount{}, nil, err
	}
	t, err := ntt.Trim(amount, tc.DecimalsOn(req.SourceChain), tc.DecimalsOn(req.DestChain))
	if err != nil {
		return ntt.TrimmedAmount{}, nil, fmt.Errorf("%w: %w", connect.ErrInvalidRequest, err)
	}
	return t, tc, nil
}

// ComputeReceiveAmount is the trimmed amount on the destination. The
// delivery price of the relay variant is paid in gas, not in the token.
func (r *NttRoute) ComputeReceiveAmount(req *TransferRequest) (decimal.Decimal, error) {
	if r.relay && req.RelayerFee == nil {
		return decimal.Zero, errMissingRelayerFee
	}
	t, tc, err := r.trimmed(req)
	if err != nil {
		return decimal.Zero, err
	}
	decimals := tc.DecimalsOn(req.DestChain)
	return FormatAmount(t.Untrim(decimals), decimals), nil
}

func (r *NttRoute) ComputeReceiveAmountWithFees(req *TransferRequest) (decimal.Decimal, error) {
	return r.ComputeReceiveAmount(req)
}

func (r *NttRoute) Validate(req *TransferRequest) error {
	if err := r.baseRoute.Validate(req); err != nil {
		return err
	}
	t, _, err := r.trimmed(req)
	if err != nil {
		return err
	}
	if t.Amount == 0 {
		return fmt.Errorf("%w: amount is below the transferable precision", connect.ErrInvalidRequest)
	}
	if r.relay && req.RelayerFee == nil {
		return errMissingRelayerFee
	}
	return nil
}

func (r *NttRoute) Send(ctx context.Context, req *TransferRequest, signer Signer) (string, error) {
	if err := r.Validate(req); err != nil {
		return "", err
	}
	cc, err := r.evmChain(req.SourceChain)
	if err != nil {
		return "", err
	}
	t, tc, err := r.trimmed(req)
	if err != nil {
		return "", err
	}
	managerAddr, _ := tc.NttManager(req.SourceChain)
	manager, ok := cc.EVMContract(managerAddr)
	if !ok {
		return "", fmt.Errorf("%w: ntt manager %q", connect.ErrNotSupported, managerAddr)
	}
	token, native, err := r.sourceTokenAddress(tc, req.SourceChain)
	if err != nil {
		return "", err
	}
	recipient, err := r.recipient(req)
	if err != nil {
		return "", err
	}
	refund, err := chain.UniversalAddress(cc.PlatformKind(), req.Sender)
	if err != nil {
		return "", fmt.Errorf("%w: sender: %w", connect.ErrInvalidRequest, err)
	}

	// Sending the untrimmed dust would revert.
	amount := t.Untrim(tc.DecimalsOn(req.SourceChain))
	instructions, value := skipRelayInstructions, new(big.Int)
	if r.relay {
		instructions, value = relayInstructions, req.RelayerFee
	}
	data, err := pack(nttManager, "transfer",
		amount, uint16(req.DestChain), [32]byte(recipient), [32]byte(refund), false, instructions)
	if err != nil {
		return "", err
	}
	tx := &UnsignedTx{Chain: req.SourceChain, To: manager, Value: value, Data: data, Description: "ntt transfer"}
	approve, err := approval(req.SourceChain, token, manager, native, amount)
	if err != nil {
		return "", err
	}
	return r.submit(ctx, signer, withApproval(approve, tx)...)
}

// Resume claims wormhole transceiver messages published by a configured
// transceiver on behalf of its manager. The transfer is relayed iff the
// wormhole relayer published a delivery request in the same transaction.
func (r *NttRoute) Resume(_ context.Context, tx *SourceTx) (*connect.TransferReceipt, error) {
	cc, err := r.evmChain(tx.Chain)
	if err != nil {
		return nil, nil
	}
	core, ok := cc.EVMContract(cc.Contracts.CoreBridge)
	if !ok {
		return nil, nil
	}
	msgs := chain.MessagesPublished(tx.Receipt, core)
	relayed := false
	if relayer, ok := cc.EVMContract(cc.Contracts.WormholeRelayer); ok {
		for _, m := range msgs {
			if m.Emitter == relayer {
				relayed = true
				break
			}
		}
	}
	if relayed != r.relay {
		return nil, nil
	}

	for _, m := range msgs {
		if !ntt.WormholeTransceiver.HasPrefix(m.Payload) {
			continue
		}
		tc, ok := r.tokenByTransceiver(tx.Chain, m.Emitter)
		if !ok {
			continue
		}
		msg, err := ntt.ParseWormholeTransceiverMessage(m.Payload)
		if err != nil {
			return nil, err
		}
		managerAddr, _ := tc.NttManager(tx.Chain)
		manager, _ := cc.EVMContract(managerAddr)
		source := chain.FromEVM(manager)
		if !bytes.Equal(msg.SourceManager, source[:]) {
			continue
		}
		return r.nttReceipt(tx, m, tc, msg)
	}
	return nil, nil
}

func (r *NttRoute) nttReceipt(
	tx *SourceTx,
	m *chain.MessagePublished,
	tc *config.TokenConfig,
	msg *ntt.TransceiverMessage[*ntt.NativeTokenTransfer],
) (*connect.TransferReceipt, error) {
	transfer := msg.ManagerPayload.Payload
	digest, err := ntt.Digest(tx.Chain, msg.ManagerPayload, ntt.NativeTokenTransferCodec)
	if err != nil {
		return nil, err
	}
	var sender vaa.Address
	copy(sender[:], msg.ManagerPayload.Sender)
	return &connect.TransferReceipt{
		Route:       r.route,
		State:       connect.TransferSent,
		SourceChain: tx.Chain,
		DestChain:   transfer.RecipientChain,
		SourceTx:    tx.Hash.Hex(),
		Sender:      r.nativeAddress(tx.Chain, sender),
		Recipient:   r.nativeAddress(transfer.RecipientChain, transfer.RecipientAddress),
		TokenKey:    tc.Key,
		Amount:      transfer.TrimmedAmount.Untrim(tc.DecimalsOn(tx.Chain)),
		MessageID:   digest,
		Emitter:     m.EmitterAddress(),
		Sequence:    m.Sequence,
	}, nil
}

func (r *NttRoute) tokenByTransceiver(id vaa.ChainID, emitter common.Address) (*config.TokenConfig, bool) {
	for _, tc := range r.cfg.TokenList() {
		addr, ok := tc.NttTransceiver(id)
		if ok && common.IsHexAddress(addr) && common.HexToAddress(addr) == emitter {
			return tc, true
		}
	}
	return nil, false
}

// TryFetchRedeemTx searches the destination manager for TransferRedeemed
// with the transfer digest.
func (r *NttRoute) TryFetchRedeemTx(ctx context.Context, receipt *connect.TransferReceipt) (string, error) {
	l, err := r.findManagerEvent(ctx, receipt, chain.NttTransferRedeemedTopic, true)
	if err != nil || l == nil {
		return "", err
	}
	return l.TxHash.Hex(), nil
}

// isQueued reports whether the destination manager queued the inbound
// transfer behind its rate limit.
func (r *NttRoute) isQueued(ctx context.Context, receipt *connect.TransferReceipt) (bool, error) {
	l, err := r.findManagerEvent(ctx, receipt, chain.NttInboundTransferQueuedTopic, false)
	return l != nil, err
}

func (r *NttRoute) findManagerEvent(ctx context.Context, receipt *connect.TransferReceipt, topic common.Hash, indexed bool) (*types.Log, error) {
	tc, err := r.token(receipt.TokenKey)
	if err != nil {
		return nil, err
	}
	cc, err := r.evmChain(receipt.DestChain)
	if err != nil {
		return nil, err
	}
	managerAddr, _ := tc.NttManager(receipt.DestChain)
	manager, ok := cc.EVMContract(managerAddr)
	if !ok {
		return nil, fmt.Errorf("%w: no ntt manager for %s on %s", connect.ErrNotSupported, tc.Key, cc.Name)
	}
	s, err := r.scanner(receipt.DestChain)
	if err != nil {
		return nil, err
	}
	digest := common.Hash(receipt.MessageID)
	q := ethereum.FilterQuery{
		Addresses: []common.Address{manager},
		Topics:    [][]common.Hash{{topic}},
	}
	if indexed {
		q.Topics = append(q.Topics, []common.Hash{digest})
	}
	return s.FindLog(ctx, q, func(l *types.Log) bool {
		got, err := chain.DecodeBytes32Event(l, topic)
		return err == nil && got == digest
	})
}
