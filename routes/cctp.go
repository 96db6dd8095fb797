// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/luxfi/geth"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/ids"
	"github.com/shopspring/decimal"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/chain"
	"github.com/luxfi/connect/config"
)

// CCTPRoute moves USDC by burning it on the source chain and minting it on
// the destination. The manual variant is redeemed by the user, the relay
// variant by the Wormhole CCTP integration's relayer.
type CCTPRoute struct {
	baseRoute
	relay bool
}

func NewCCTPManualRoute(cfg *config.Config, deps *Deps) *CCTPRoute {
	return newCCTPRoute(connect.RouteCCTPManual, cfg, deps, false)
}

func NewCCTPRelayRoute(cfg *config.Config, deps *Deps) *CCTPRoute {
	return newCCTPRoute(connect.RouteCCTPRelay, cfg, deps, true)
}

func newCCTPRoute(route connect.Route, cfg *config.Config, deps *Deps, relay bool) *CCTPRoute {
	r := &CCTPRoute{baseRoute: newBaseRoute(route, cfg, deps), relay: relay}
	r.self = r
	r.gasDropOff = relay
	return r
}

func (r *CCTPRoute) IsSupportedChain(id vaa.ChainID) bool {
	cc, ok := r.cfg.Chain(id)
	if !ok || cc.CCTPDomain == nil {
		return false
	}
	if cc.Contracts.CCTPTokenMessenger == "" || cc.Contracts.CCTPMessageTransmitter == "" {
		return false
	}
	return !r.relay || cc.Contracts.CCTPWormholeIntegration != ""
}

func (r *CCTPRoute) IsSupportedSourceToken(token, destToken string, source, dest vaa.ChainID) bool {
	return r.supportedToken(token, destToken, source, dest)
}

func (r *CCTPRoute) IsSupportedDestToken(token, sourceToken string, source, dest vaa.ChainID) bool {
	return r.supportedToken(token, sourceToken, source, dest)
}

func (r *CCTPRoute) supportedToken(token, counterpart string, source, dest vaa.ChainID) bool {
	tc, ok := r.cfg.Token(token)
	if !ok || !tc.CCTP {
		return false
	}
	if counterpart != "" && !strings.EqualFold(counterpart, tc.Key) {
		return false
	}
	for _, id := range []vaa.ChainID{source, dest} {
		if id == vaa.ChainIDUnset {
			continue
		}
		if _, ok := tc.AddressOn(id); !ok {
			return false
		}
	}
	return true
}

func (r *CCTPRoute) FetchQuoteData(ctx context.Context, req *TransferRequest) error {
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

func (r *CCTPRoute) ComputeReceiveAmount(req *TransferRequest) (decimal.Decimal, error) {
	return r.receiveAmount(req, false)
}

func (r *CCTPRoute) ComputeReceiveAmountWithFees(req *TransferRequest) (decimal.Decimal, error) {
	return r.receiveAmount(req, true)
}

func (r *CCTPRoute) receiveAmount(req *TransferRequest, withFees bool) (decimal.Decimal, error) {
	if r.relay && req.RelayerFee == nil {
		return decimal.Zero, errMissingRelayerFee
	}
	amount, tc, err := r.sourceAmount(req)
	if err != nil {
		return decimal.Zero, err
	}
	if !r.relay {
		return FormatAmount(amount, tc.DecimalsOn(req.SourceChain)), nil
	}
	toNative, err := r.toNativeAmount(req, tc)
	if err != nil {
		return decimal.Zero, err
	}
	fees := []*big.Int{toNative}
	if withFees {
		fees = append(fees, req.RelayerFee)
	}
	out, err := SubtractFees(amount, fees...)
	if err != nil {
		return decimal.Zero, err
	}
	return FormatAmount(out, tc.DecimalsOn(req.SourceChain)), nil
}

func (r *CCTPRoute) NativeGasDropOff(ctx context.Context, req *TransferRequest) (decimal.Decimal, error) {
	if !r.relay {
		return r.baseRoute.NativeGasDropOff(ctx, req)
	}
	return r.gasDropOffByPrice(ctx, req)
}

func (r *CCTPRoute) Validate(req *TransferRequest) error {
	if err := r.baseRoute.Validate(req); err != nil {
		return err
	}
	_, err := r.ComputeReceiveAmountWithFees(req)
	return err
}

func (r *CCTPRoute) Send(ctx context.Context, req *TransferRequest, signer Signer) (string, error) {
	if err := r.Validate(req); err != nil {
		return "", err
	}
	cc, err := r.evmChain(req.SourceChain)
	if err != nil {
		return "", err
	}
	dest, _ := r.cfg.Chain(req.DestChain)
	amount, tc, err := r.sourceAmount(req)
	if err != nil {
		return "", err
	}
	token, native, err := r.sourceTokenAddress(tc, req.SourceChain)
	if err != nil {
		return "", err
	}
	if native {
		return "", fmt.Errorf("%w: %s is not a CCTP token contract", connect.ErrNotSupported, tc.Key)
	}
	recipient, err := r.recipient(req)
	if err != nil {
		return "", err
	}

	var tx *UnsignedTx
	if r.relay {
		integration, _ := cc.EVMContract(cc.Contracts.CCTPWormholeIntegration)
		toNative, err := r.toNativeAmount(req, tc)
		if err != nil {
			return "", err
		}
		data, err := pack(cctpContracts, "transferTokensWithRelay",
			token, amount, toNative, uint16(req.DestChain), [32]byte(recipient))
		if err != nil {
			return "", err
		}
		tx = &UnsignedTx{Chain: req.SourceChain, To: integration, Value: new(big.Int), Data: data, Description: "cctp relay transfer"}
	} else {
		messenger, _ := cc.EVMContract(cc.Contracts.CCTPTokenMessenger)
		data, err := pack(cctpContracts, "depositForBurn",
			amount, *dest.CCTPDomain, [32]byte(recipient), token)
		if err != nil {
			return "", err
		}
		tx = &UnsignedTx{Chain: req.SourceChain, To: messenger, Value: new(big.Int), Data: data, Description: "cctp burn"}
	}
	approve, err := approval(req.SourceChain, token, tx.To, false, amount)
	if err != nil {
		return "", err
	}
	return r.submit(ctx, signer, withApproval(approve, tx)...)
}

// Resume claims DepositForBurn events of the source token messenger. The
// transfer is relayed iff the CCTP integration contract published a
// wormhole message in the same transaction.
func (r *CCTPRoute) Resume(_ context.Context, tx *SourceTx) (*connect.TransferReceipt, error) {
	cc, err := r.evmChain(tx.Chain)
	if err != nil || cc.CCTPDomain == nil {
		return nil, nil
	}
	messenger, ok := cc.EVMContract(cc.Contracts.CCTPTokenMessenger)
	if !ok {
		return nil, nil
	}
	logs := chain.FindLogs(tx.Receipt, messenger, chain.DepositForBurnTopic)
	if len(logs) == 0 {
		return nil, nil
	}
	burn, err := chain.DecodeDepositForBurn(logs[0])
	if err != nil {
		return nil, err
	}

	var relayMsg *chain.MessagePublished
	core, hasCore := cc.EVMContract(cc.Contracts.CoreBridge)
	integration, hasIntegration := cc.EVMContract(cc.Contracts.CCTPWormholeIntegration)
	if hasCore && hasIntegration {
		for _, m := range chain.MessagesPublished(tx.Receipt, core) {
			if m.Emitter == integration {
				relayMsg = m
				break
			}
		}
	}
	if (relayMsg != nil) != r.relay {
		return nil, nil
	}

	receipt := &connect.TransferReceipt{
		Route:       r.route,
		State:       connect.TransferSent,
		SourceChain: tx.Chain,
		DestChain:   r.chainByDomain(burn.DestinationDomain),
		SourceTx:    tx.Hash.Hex(),
		Sender:      burn.Depositor.Hex(),
		Amount:      burn.Amount,
		CCTPNonce:   burn.Nonce,
		MessageID:   cctpMessageID(*cc.CCTPDomain, burn.Nonce),
	}
	if tc, ok := r.cfg.TokenByAddress(tx.Chain, burn.BurnToken.Hex()); ok {
		receipt.TokenKey = tc.Key
	}
	if relayMsg != nil {
		receipt.Emitter = relayMsg.EmitterAddress()
		receipt.Sequence = relayMsg.Sequence
	} else if receipt.DestChain != vaa.ChainIDUnset {
		receipt.Recipient = r.nativeAddress(receipt.DestChain, burn.MintRecipient)
	}
	return receipt, nil
}

// TryFetchRedeemTx searches the destination message transmitter for the
// MessageReceived event with the burn's nonce.
func (r *CCTPRoute) TryFetchRedeemTx(ctx context.Context, receipt *connect.TransferReceipt) (string, error) {
	source, ok := r.cfg.Chain(receipt.SourceChain)
	if !ok || source.CCTPDomain == nil {
		return "", fmt.Errorf("%w: %s has no CCTP domain", connect.ErrNotSupported, receipt.SourceChain)
	}
	cc, err := r.evmChain(receipt.DestChain)
	if err != nil {
		return "", err
	}
	transmitter, ok := cc.EVMContract(cc.Contracts.CCTPMessageTransmitter)
	if !ok {
		return "", fmt.Errorf("%w: no message transmitter on %s", connect.ErrNotSupported, cc.Name)
	}
	s, err := r.scanner(receipt.DestChain)
	if err != nil {
		return "", err
	}
	q := ethereum.FilterQuery{
		Addresses: []common.Address{transmitter},
		Topics: [][]common.Hash{
			{chain.MessageReceivedTopic},
			nil,
			{common.BigToHash(new(big.Int).SetUint64(receipt.CCTPNonce))},
		},
	}
	l, err := s.FindLog(ctx, q, func(l *types.Log) bool {
		ev, err := chain.DecodeMessageReceived(l)
		return err == nil && ev.Nonce == receipt.CCTPNonce && ev.SourceDomain == *source.CCTPDomain
	})
	if err != nil || l == nil {
		return "", err
	}
	return l.TxHash.Hex(), nil
}

func (r *CCTPRoute) chainByDomain(domain uint32) vaa.ChainID {
	for _, id := range r.cfg.ChainIDs() {
		cc, _ := r.cfg.Chain(id)
		if cc.CCTPDomain != nil && *cc.CCTPDomain == domain {
			return id
		}
	}
	return vaa.ChainIDUnset
}

// cctpMessageID identifies a burn by its source domain and nonce.
func cctpMessageID(domain uint32, nonce uint64) ids.ID {
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[:4], domain)
	binary.BigEndian.PutUint64(buf[4:], nonce)
	return ids.ID(connect.Keccak256(buf[:]))
}
