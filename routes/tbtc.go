// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/chain"
	"github.com/luxfi/connect/config"
)

// TBTCRoute moves tBTC between its native chain and the chains with a tBTC
// wormhole gateway. Gateways mint canonical tBTC on redemption instead of
// the wrapped token bridge asset.
type TBTCRoute struct {
	baseRoute
}

func NewTBTCRoute(cfg *config.Config, deps *Deps) *TBTCRoute {
	r := &TBTCRoute{baseRoute: newBaseRoute(connect.RouteTBTC, cfg, deps)}
	r.self = r
	return r
}

func tbtcGatewayContract(c config.ContractsConfig) string { return c.TBTCGateway }

// tbtcToken is the configured tBTC token.
func (r *TBTCRoute) tbtcToken() (*config.TokenConfig, bool) {
	for _, tc := range r.cfg.TokenList() {
		if tc.TBTC {
			return tc, true
		}
	}
	return nil, false
}

func (r *TBTCRoute) IsSupportedChain(id vaa.ChainID) bool {
	tc, ok := r.tbtcToken()
	if !ok {
		return false
	}
	if id == tc.NativeID {
		return hasContract(r.cfg, id, tokenBridgeContract)
	}
	return hasContract(r.cfg, id, tbtcGatewayContract)
}

func (r *TBTCRoute) IsSupportedSourceToken(token, destToken string, source, dest vaa.ChainID) bool {
	return r.supportedToken(token, destToken, source, dest)
}

func (r *TBTCRoute) IsSupportedDestToken(token, sourceToken string, source, dest vaa.ChainID) bool {
	return r.supportedToken(token, sourceToken, source, dest)
}

func (r *TBTCRoute) supportedToken(token, counterpart string, source, dest vaa.ChainID) bool {
	tc, ok := r.cfg.Token(token)
	if !ok || !tc.TBTC {
		return false
	}
	if counterpart != "" {
		other, ok := r.cfg.Token(counterpart)
		if !ok || !other.TBTC {
			return false
		}
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

func (r *TBTCRoute) ComputeReceiveAmount(req *TransferRequest) (decimal.Decimal, error) {
	amount, tc, err := r.normalizedAmount(req)
	if err != nil {
		return decimal.Zero, err
	}
	return FormatAmount(amount, tc.DecimalsOn(req.SourceChain)), nil
}

func (r *TBTCRoute) ComputeReceiveAmountWithFees(req *TransferRequest) (decimal.Decimal, error) {
	return r.ComputeReceiveAmount(req)
}

func (r *TBTCRoute) Validate(req *TransferRequest) error {
	return r.validateNormalized(req)
}

// Send bridges tBTC from its native chain with a payload 3 transfer to the
// destination gateway, and from any other chain through the local gateway.
func (r *TBTCRoute) Send(ctx context.Context, req *TransferRequest, signer Signer) (string, error) {
	if err := r.Validate(req); err != nil {
		return "", err
	}
	cc, err := r.evmChain(req.SourceChain)
	if err != nil {
		return "", err
	}
	amount, tc, err := r.normalizedAmount(req)
	if err != nil {
		return "", err
	}
	token, native, err := r.sourceTokenAddress(tc, req.SourceChain)
	if err != nil {
		return "", err
	}
	if native {
		return "", fmt.Errorf("%w: %s is not a token contract", connect.ErrNotSupported, tc.Key)
	}
	recipient, err := r.recipient(req)
	if err != nil {
		return "", err
	}

	tx := &UnsignedTx{Chain: req.SourceChain, Value: new(big.Int)}
	if req.SourceChain == tc.NativeID {
		gateway, ok := r.contractOn(req.DestChain, tbtcGatewayContract)
		if !ok {
			return "", fmt.Errorf("%w: no tbtc gateway on %s", connect.ErrNotSupported, req.DestChain)
		}
		tx.To, _ = cc.EVMContract(cc.Contracts.TokenBridge)
		tx.Description = "tbtc bridge transfer"
		tx.Data, err = pack(tokenBridge, "transferTokensWithPayload",
			token, amount, uint16(req.DestChain), [32]byte(gateway), uint32(0), recipient[:])
	} else {
		tx.To, _ = cc.EVMContract(cc.Contracts.TBTCGateway)
		tx.Description = "tbtc gateway transfer"
		tx.Data, err = pack(tbtcGateway, "sendTbtc",
			amount, uint16(req.DestChain), [32]byte(recipient), new(big.Int), uint32(0))
	}
	if err != nil {
		return "", err
	}
	approve, err := approval(req.SourceChain, token, tx.To, false, amount)
	if err != nil {
		return "", err
	}
	return r.submit(ctx, signer, withApproval(approve, tx)...)
}

// Resume claims payload 3 transfers addressed to the destination gateway.
// The payload is the 32 byte recipient.
func (r *TBTCRoute) Resume(_ context.Context, tx *SourceTx) (*connect.TransferReceipt, error) {
	for _, m := range r.tokenBridgeMessages(tx) {
		t := m.Transfer
		if t.Type != chain.TransferWithPayloadPayloadID {
			continue
		}
		gateway, ok := r.contractOn(t.TargetChain, tbtcGatewayContract)
		if !ok || t.TargetAddress != gateway {
			continue
		}
		receipt := r.tokenBridgeReceipt(tx, m)
		if len(t.Payload) >= 32 {
			var recipient vaa.Address
			copy(recipient[:], t.Payload[:32])
			receipt.Recipient = r.nativeAddress(t.TargetChain, recipient)
		}
		if tc, ok := r.tbtcToken(); ok && receipt.TokenKey == "" {
			decimals := tc.DecimalsOn(tx.Chain)
			receipt.TokenKey = tc.Key
			receipt.Amount = ConvertDecimals(t.Amount, min(decimals, MaxBridgeDecimals), decimals)
		}
		return receipt, nil
	}
	return nil, nil
}

func (r *TBTCRoute) TryFetchRedeemTx(ctx context.Context, receipt *connect.TransferReceipt) (string, error) {
	return r.tokenBridgeRedeemTx(ctx, receipt)
}
