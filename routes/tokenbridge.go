// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
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
)

// tokenBridgeMessage is a transfer published by the source token bridge
type tokenBridgeMessage struct {
	*chain.MessagePublished
	Transfer *chain.TokenBridgeTransfer
}

// tokenBridgeMessages decodes the token bridge transfers of a receipt.
// Messages of other emitters and undecodable payloads are skipped.
func (b *baseRoute) tokenBridgeMessages(tx *SourceTx) []tokenBridgeMessage {
	cc, err := b.evmChain(tx.Chain)
	if err != nil {
		return nil
	}
	core, ok := cc.EVMContract(cc.Contracts.CoreBridge)
	if !ok {
		return nil
	}
	tb, ok := cc.EVMContract(cc.Contracts.TokenBridge)
	if !ok {
		return nil
	}
	var out []tokenBridgeMessage
	for _, m := range chain.MessagesPublished(tx.Receipt, core) {
		if m.Emitter != tb {
			continue
		}
		t, err := chain.ParseTokenBridgeTransfer(m.Payload)
		if err != nil {
			continue
		}
		out = append(out, tokenBridgeMessage{MessagePublished: m, Transfer: t})
	}
	return out
}

// tokenBridgeReceipt builds the receipt of a token bridge transfer. Amounts
// are denormalized to the source token's decimals when the token is known.
func (b *baseRoute) tokenBridgeReceipt(tx *SourceTx, m tokenBridgeMessage) *connect.TransferReceipt {
	t := m.Transfer
	r := &connect.TransferReceipt{
		Route:       b.route,
		State:       connect.TransferSent,
		SourceChain: tx.Chain,
		DestChain:   t.TargetChain,
		SourceTx:    tx.Hash.Hex(),
		Recipient:   b.nativeAddress(t.TargetChain, t.TargetAddress),
		Amount:      new(big.Int).Set(t.Amount),
		Emitter:     m.EmitterAddress(),
		Sequence:    m.Sequence,
		MessageID:   wormholeMessageID(tx.Chain, m.EmitterAddress(), m.Sequence),
	}
	if t.Type == chain.TransferWithPayloadPayloadID {
		r.Sender = b.nativeAddress(tx.Chain, t.FromAddress)
	}

	tc, ok := b.cfg.TokenByAddress(t.OriginChain, b.nativeAddress(t.OriginChain, t.OriginAddress))
	if !ok {
		return r
	}
	r.TokenKey = tc.Key
	decimals := tc.DecimalsOn(tx.Chain)
	normalized := min(decimals, MaxBridgeDecimals)
	r.Amount = ConvertDecimals(t.Amount, normalized, decimals)
	if t.Fee != nil && t.Fee.Sign() > 0 {
		r.RelayerFee = ConvertDecimals(t.Fee, normalized, decimals)
	}
	return r
}

// tokenBridgeRedeemTx searches the destination token bridge for the
// redemption of the receipt's message.
func (b *baseRoute) tokenBridgeRedeemTx(ctx context.Context, r *connect.TransferReceipt) (string, error) {
	cc, err := b.evmChain(r.DestChain)
	if err != nil {
		return "", err
	}
	tb, ok := cc.EVMContract(cc.Contracts.TokenBridge)
	if !ok {
		return "", fmt.Errorf("%w: no token bridge on %s", connect.ErrNotSupported, cc.Name)
	}
	s, err := b.scanner(r.DestChain)
	if err != nil {
		return "", err
	}
	q := ethereum.FilterQuery{
		Addresses: []common.Address{tb},
		Topics: [][]common.Hash{
			{chain.TokenBridgeRedeemedTopic},
			{common.BigToHash(big.NewInt(int64(r.SourceChain)))},
			{common.Hash(r.Emitter)},
			{common.BigToHash(new(big.Int).SetUint64(r.Sequence))},
		},
	}
	l, err := s.FindLog(ctx, q, func(l *types.Log) bool {
		ev, err := chain.DecodeTokenBridgeRedeemed(l)
		return err == nil &&
			ev.EmitterChain == r.SourceChain &&
			ev.EmitterAddress == r.Emitter &&
			ev.Sequence == r.Sequence
	})
	if err != nil || l == nil {
		return "", err
	}
	return l.TxHash.Hex(), nil
}

// contractOn returns the universal address of a contract deployed on id.
func (b *baseRoute) contractOn(id vaa.ChainID, pick func(config.ContractsConfig) string) (vaa.Address, bool) {
	cc, ok := b.cfg.Chain(id)
	if !ok {
		return vaa.Address{}, false
	}
	native := pick(cc.Contracts)
	if native == "" {
		return vaa.Address{}, false
	}
	addr, err := chain.UniversalAddress(cc.PlatformKind(), native)
	return addr, err == nil
}

func hasContract(cfg *config.Config, id vaa.ChainID, pick func(config.ContractsConfig) string) bool {
	cc, ok := cfg.Chain(id)
	return ok && pick(cc.Contracts) != ""
}

// bridgeable reports whether the token bridge can carry token between the
// chains. The destination token is the same asset as the source token.
func bridgeable(cfg *config.Config, token, counterpart string, source, dest vaa.ChainID) (*config.TokenConfig, bool) {
	tc, ok := cfg.Token(token)
	if !ok || tc.IsNtt() {
		return nil, false
	}
	if counterpart != "" && !strings.EqualFold(counterpart, tc.Key) {
		return nil, false
	}
	for _, id := range []vaa.ChainID{source, dest} {
		if id == vaa.ChainIDUnset {
			continue
		}
		if _, ok := tc.AddressOn(id); !ok {
			return nil, false
		}
	}
	return tc, true
}

func tokenBridgeContract(c config.ContractsConfig) string { return c.TokenBridge }

func relayerContract(c config.ContractsConfig) string { return c.Relayer }

// normalizedAmount is the part of the amount the token bridge carries.
func (b *baseRoute) normalizedAmount(req *TransferRequest) (*big.Int, *config.TokenConfig, error) {
	amount, tc, err := b.sourceAmount(req)
	if err != nil {
		return nil, nil, err
	}
	return NormalizeAmount(amount, tc.DecimalsOn(req.SourceChain)), tc, nil
}

// validateNormalized rejects amounts the token bridge truncates to nothing.
func (b *baseRoute) validateNormalized(req *TransferRequest) error {
	if err := b.Validate(req); err != nil {
		return err
	}
	amount, _, err := b.normalizedAmount(req)
	if err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return fmt.Errorf("%w: amount is below the bridge precision", connect.ErrInvalidRequest)
	}
	return nil
}

// BridgeRoute is the manual token bridge route: the user redeems on the
// destination chain.
type BridgeRoute struct {
	baseRoute
}

func NewBridgeRoute(cfg *config.Config, deps *Deps) *BridgeRoute {
	r := &BridgeRoute{baseRoute: newBaseRoute(connect.RouteBridge, cfg, deps)}
	r.self = r
	return r
}

func (r *BridgeRoute) IsSupportedChain(id vaa.ChainID) bool {
	return hasContract(r.cfg, id, tokenBridgeContract)
}

func (r *BridgeRoute) IsSupportedSourceToken(token, destToken string, source, dest vaa.ChainID) bool {
	_, ok := bridgeable(r.cfg, token, destToken, source, dest)
	return ok
}

func (r *BridgeRoute) IsSupportedDestToken(token, sourceToken string, source, dest vaa.ChainID) bool {
	_, ok := bridgeable(r.cfg, token, sourceToken, source, dest)
	return ok
}

func (r *BridgeRoute) ComputeReceiveAmount(req *TransferRequest) (decimal.Decimal, error) {
	amount, tc, err := r.normalizedAmount(req)
	if err != nil {
		return decimal.Zero, err
	}
	return FormatAmount(amount, tc.DecimalsOn(req.SourceChain)), nil
}

func (r *BridgeRoute) ComputeReceiveAmountWithFees(req *TransferRequest) (decimal.Decimal, error) {
	return r.ComputeReceiveAmount(req)
}

func (r *BridgeRoute) Validate(req *TransferRequest) error {
	return r.validateNormalized(req)
}

func (r *BridgeRoute) Send(ctx context.Context, req *TransferRequest, signer Signer) (string, error) {
	if err := r.Validate(req); err != nil {
		return "", err
	}
	cc, err := r.evmChain(req.SourceChain)
	if err != nil {
		return "", err
	}
	tb, ok := cc.EVMContract(cc.Contracts.TokenBridge)
	if !ok {
		return "", fmt.Errorf("%w: no token bridge on %s", connect.ErrNotSupported, cc.Name)
	}
	amount, tc, err := r.sourceAmount(req)
	if err != nil {
		return "", err
	}
	token, native, err := r.sourceTokenAddress(tc, req.SourceChain)
	if err != nil {
		return "", err
	}
	recipient, err := r.recipient(req)
	if err != nil {
		return "", err
	}

	tx := &UnsignedTx{Chain: req.SourceChain, To: tb, Value: new(big.Int), Description: "token bridge transfer"}
	if native {
		tx.Value = amount
		tx.Data, err = pack(tokenBridge, "wrapAndTransferETH",
			uint16(req.DestChain), [32]byte(recipient), new(big.Int), uint32(0))
	} else {
		tx.Data, err = pack(tokenBridge, "transferTokens",
			token, amount, uint16(req.DestChain), [32]byte(recipient), new(big.Int), uint32(0))
	}
	if err != nil {
		return "", err
	}
	approve, err := approval(req.SourceChain, token, tb, native, amount)
	if err != nil {
		return "", err
	}
	return r.submit(ctx, signer, withApproval(approve, tx)...)
}

// Resume claims plain (payload 1) token bridge transfers.
func (r *BridgeRoute) Resume(_ context.Context, tx *SourceTx) (*connect.TransferReceipt, error) {
	for _, m := range r.tokenBridgeMessages(tx) {
		if m.Transfer.Type == chain.TransferPayloadID {
			return r.tokenBridgeReceipt(tx, m), nil
		}
	}
	return nil, nil
}

func (r *BridgeRoute) TryFetchRedeemTx(ctx context.Context, receipt *connect.TransferReceipt) (string, error) {
	return r.tokenBridgeRedeemTx(ctx, receipt)
}

// RelayRoute is the automatic token bridge route: the token bridge relayer
// redeems for a fee and can swap part of the amount into destination gas.
type RelayRoute struct {
	baseRoute
}

func NewRelayRoute(cfg *config.Config, deps *Deps) *RelayRoute {
	r := &RelayRoute{baseRoute: newBaseRoute(connect.RouteRelay, cfg, deps)}
	r.self = r
	r.gasDropOff = true
	return r
}

func (r *RelayRoute) IsSupportedChain(id vaa.ChainID) bool {
	return hasContract(r.cfg, id, tokenBridgeContract) && hasContract(r.cfg, id, relayerContract)
}

func (r *RelayRoute) IsSupportedSourceToken(token, destToken string, source, dest vaa.ChainID) bool {
	tc, ok := bridgeable(r.cfg, token, destToken, source, dest)
	return ok && tc.Relayable
}

func (r *RelayRoute) IsSupportedDestToken(token, sourceToken string, source, dest vaa.ChainID) bool {
	tc, ok := bridgeable(r.cfg, token, sourceToken, source, dest)
	return ok && tc.Relayable
}

func (r *RelayRoute) FetchQuoteData(ctx context.Context, req *TransferRequest) error {
	fee, err := r.relayerFee(ctx, req)
	if err != nil {
		return err
	}
	req.RelayerFee = fee
	return nil
}

func (r *RelayRoute) ComputeReceiveAmount(req *TransferRequest) (decimal.Decimal, error) {
	if req.RelayerFee == nil {
		return decimal.Zero, errMissingRelayerFee
	}
	amount, tc, err := r.normalizedAmount(req)
	if err != nil {
		return decimal.Zero, err
	}
	toNative, err := r.toNativeAmount(req, tc)
	if err != nil {
		return decimal.Zero, err
	}
	out, err := SubtractFees(amount, toNative)
	if err != nil {
		return decimal.Zero, err
	}
	return FormatAmount(out, tc.DecimalsOn(req.SourceChain)), nil
}

func (r *RelayRoute) ComputeReceiveAmountWithFees(req *TransferRequest) (decimal.Decimal, error) {
	if req.RelayerFee == nil {
		return decimal.Zero, errMissingRelayerFee
	}
	amount, tc, err := r.normalizedAmount(req)
	if err != nil {
		return decimal.Zero, err
	}
	toNative, err := r.toNativeAmount(req, tc)
	if err != nil {
		return decimal.Zero, err
	}
	out, err := SubtractFees(amount, toNative, req.RelayerFee)
	if err != nil {
		return decimal.Zero, err
	}
	return FormatAmount(out, tc.DecimalsOn(req.SourceChain)), nil
}

func (r *RelayRoute) NativeGasDropOff(ctx context.Context, req *TransferRequest) (decimal.Decimal, error) {
	return r.gasDropOffByPrice(ctx, req)
}

func (r *RelayRoute) Validate(req *TransferRequest) error {
	if err := r.baseRoute.Validate(req); err != nil {
		return err
	}
	_, err := r.ComputeReceiveAmountWithFees(req)
	return err
}

func (r *RelayRoute) Send(ctx context.Context, req *TransferRequest, signer Signer) (string, error) {
	if err := r.Validate(req); err != nil {
		return "", err
	}
	cc, err := r.evmChain(req.SourceChain)
	if err != nil {
		return "", err
	}
	relayer, ok := cc.EVMContract(cc.Contracts.Relayer)
	if !ok {
		return "", fmt.Errorf("%w: no relayer on %s", connect.ErrNotSupported, cc.Name)
	}
	amount, tc, err := r.sourceAmount(req)
	if err != nil {
		return "", err
	}
	toNative, err := r.toNativeAmount(req, tc)
	if err != nil {
		return "", err
	}
	token, native, err := r.sourceTokenAddress(tc, req.SourceChain)
	if err != nil {
		return "", err
	}
	recipient, err := r.recipient(req)
	if err != nil {
		return "", err
	}

	tx := &UnsignedTx{Chain: req.SourceChain, To: relayer, Value: new(big.Int), Description: "token bridge relay transfer"}
	if native {
		tx.Value = amount
		tx.Data, err = pack(tokenBridgeRelay, "wrapAndTransferEthWithRelay",
			toNative, uint16(req.DestChain), [32]byte(recipient), uint32(0))
	} else {
		tx.Data, err = pack(tokenBridgeRelay, "transferTokensWithRelay",
			token, amount, toNative, uint16(req.DestChain), [32]byte(recipient), uint32(0))
	}
	if err != nil {
		return "", err
	}
	approve, err := approval(req.SourceChain, token, relayer, native, amount)
	if err != nil {
		return "", err
	}
	return r.submit(ctx, signer, withApproval(approve, tx)...)
}

// Resume claims payload 3 transfers addressed to the destination relayer.
func (r *RelayRoute) Resume(_ context.Context, tx *SourceTx) (*connect.TransferReceipt, error) {
	for _, m := range r.tokenBridgeMessages(tx) {
		t := m.Transfer
		if t.Type != chain.TransferWithPayloadPayloadID {
			continue
		}
		relayer, ok := r.contractOn(t.TargetChain, relayerContract)
		if !ok || t.TargetAddress != relayer {
			continue
		}
		payload, err := chain.ParseRelayerPayload(t.Payload)
		if err != nil {
			return nil, err
		}
		receipt := r.tokenBridgeReceipt(tx, m)
		receipt.Recipient = r.nativeAddress(t.TargetChain, payload.TargetRecipient)
		receipt.RelayerFee = payload.TargetRelayerFee
		if tc, ok := r.cfg.Token(receipt.TokenKey); ok {
			decimals := tc.DecimalsOn(tx.Chain)
			receipt.RelayerFee = ConvertDecimals(payload.TargetRelayerFee, min(decimals, MaxBridgeDecimals), decimals)
		}
		return receipt, nil
	}
	return nil, nil
}

func (r *RelayRoute) TryFetchRedeemTx(ctx context.Context, receipt *connect.TransferReceipt) (string, error) {
	return r.tokenBridgeRedeemTx(ctx, receipt)
}
