// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/log"
	"github.com/shopspring/decimal"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/chain"
	"github.com/luxfi/connect/config"
	"github.com/luxfi/connect/portico"
)

// PorticoRoute swaps into a canonical asset on the source chain, bridges it
// with the token bridge and swaps out on the destination. ethBridge,
// usdtBridge and wstETHBridge are instances with different canonical assets.
type PorticoRoute struct {
	baseRoute
}

func NewPorticoRoute(route connect.Route, cfg *config.Config, deps *Deps) (*PorticoRoute, error) {
	switch route {
	case connect.RouteETHBridge, connect.RouteUSDTBridge, connect.RouteWstETHBridge:
	default:
		return nil, fmt.Errorf("%w: %s is not a portico route", connect.ErrUnknownRoute, route)
	}
	r := &PorticoRoute{baseRoute: newBaseRoute(route, cfg, deps)}
	r.self = r
	return r, nil
}

func porticoContract(c config.ContractsConfig) string { return c.Portico }

func (r *PorticoRoute) settings() (*config.PorticoRouteConfig, *config.TokenConfig, bool) {
	pc, ok := r.cfg.PorticoRoute(r.route)
	if !ok {
		return nil, nil, false
	}
	canonical, ok := r.cfg.Token(pc.CanonicalToken)
	return pc, canonical, ok
}

func (r *PorticoRoute) IsSupportedChain(id vaa.ChainID) bool {
	cc, ok := r.cfg.Chain(id)
	if !ok || !cc.IsEVM() || cc.Contracts.Portico == "" {
		return false
	}
	_, canonical, ok := r.settings()
	if !ok {
		return false
	}
	_, ok = canonical.AddressOn(id)
	return ok
}

func (r *PorticoRoute) IsSupportedSourceToken(token, destToken string, source, _ vaa.ChainID) bool {
	return r.supportedToken(token, source) && (destToken == "" || r.supportedToken(destToken, vaa.ChainIDUnset))
}

func (r *PorticoRoute) IsSupportedDestToken(token, sourceToken string, _, dest vaa.ChainID) bool {
	return r.supportedToken(token, dest) && (sourceToken == "" || r.supportedToken(sourceToken, vaa.ChainIDUnset))
}

func (r *PorticoRoute) supportedToken(token string, id vaa.ChainID) bool {
	pc, _, ok := r.settings()
	if !ok {
		return false
	}
	tc, ok := r.cfg.Token(token)
	if !ok || !slices.ContainsFunc(pc.Tokens, func(k string) bool { return strings.EqualFold(k, tc.Key) }) {
		return false
	}
	if id == vaa.ChainIDUnset {
		return true
	}
	_, ok = tc.AddressOn(id)
	return ok
}

// evmToken returns the ERC20 the Portico contract trades for tc on id: the
// wrapped token when tc is the gas token.
func (r *PorticoRoute) evmToken(tc *config.TokenConfig, id vaa.ChainID) (common.Address, bool, error) {
	addr, native, err := r.sourceTokenAddress(tc, id)
	if err != nil || !native {
		return addr, native, err
	}
	wrapped, err := r.token(tc.Wrapped)
	if err != nil {
		return common.Address{}, false, fmt.Errorf("%w: %s has no wrapped token", connect.ErrNotSupported, tc.Key)
	}
	addr, _, err = r.sourceTokenAddress(wrapped, id)
	return addr, true, err
}

// orderRequest builds the order asked from the order service. Minimum
// amounts assume the start, canonical and final tokens are pegged 1:1 and
// apply the route's slippage tolerance.
func (r *PorticoRoute) orderRequest(ctx context.Context, req *TransferRequest) (*portico.CreateOrderRequest, error) {
	pc, canonical, ok := r.settings()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", connect.ErrNotSupported, r.route)
	}
	source, err := r.evmChain(req.SourceChain)
	if err != nil {
		return nil, err
	}
	dest, err := r.evmChain(req.DestChain)
	if err != nil {
		return nil, err
	}
	amount, src, err := r.sourceAmount(req)
	if err != nil {
		return nil, err
	}
	dst, err := r.token(req.DestToken)
	if err != nil {
		return nil, err
	}
	startToken, wrap, err := r.evmToken(src, req.SourceChain)
	if err != nil {
		return nil, err
	}
	finalToken, unwrap, err := r.evmToken(dst, req.DestChain)
	if err != nil {
		return nil, err
	}
	canonicalToken, _, err := r.sourceTokenAddress(canonical, req.SourceChain)
	if err != nil {
		return nil, err
	}
	recipient, err := r.recipient(req)
	if err != nil {
		return nil, err
	}
	recipientEVM, _ := chain.ToEVM(recipient)
	sourcePortico, _ := source.EVMContract(source.Contracts.Portico)
	destPortico, _ := dest.EVMContract(dest.Contracts.Portico)

	srcDecimals := src.DecimalsOn(req.SourceChain)
	canonDecimals := canonical.DecimalsOn(req.SourceChain)
	minStart, err := ApplySlippage(ConvertDecimals(amount, srcDecimals, canonDecimals), pc.SlippageBps)
	if err != nil {
		return nil, err
	}
	relayerFee := ConvertDecimals(req.RelayerFee, srcDecimals, canonDecimals)
	afterFee, err := SubtractFees(minStart, relayerFee)
	if err != nil {
		return nil, err
	}
	minFinish, err := ApplySlippage(ConvertDecimals(afterFee, canonDecimals, dst.DecimalsOn(req.DestChain)), pc.SlippageBps)
	if err != nil {
		return nil, err
	}

	startUSD, _ := r.usdValue(ctx, src, decimal.NewFromInt(1))
	finalUSD, _ := r.usdValue(ctx, dst, decimal.NewFromInt(1))
	return &portico.CreateOrderRequest{
		StartingChainID:           source.EVMChainID,
		DestinationChainID:        dest.EVMChainID,
		StartingToken:             startToken,
		StartingTokenAmount:       amount.String(),
		DestinationToken:          finalToken,
		DestinationAddress:        recipientEVM,
		PorticoAddress:            sourcePortico,
		DestinationPorticoAddress: destPortico,
		StartingTokenUSDPrice:     startUSD.InexactFloat64(),
		DestinationTokenUSDPrice:  finalUSD.InexactFloat64(),
		FeeTierStart:              pc.FeeTier,
		FeeTierEnd:                pc.FeeTier,
		MinAmountStart:            minStart.String(),
		MinAmountEnd:              minFinish.String(),
		RelayerFee:                relayerFee.String(),
		ShouldWrapNative:          wrap,
		ShouldUnwrapNative:        unwrap,
		RecipientChain:            req.DestChain,
		CanonicalToken:            canonicalToken,
	}, nil
}

// FetchQuoteData quotes the relayer fee, then asks the order service for a
// validated start() transaction.
func (r *PorticoRoute) FetchQuoteData(ctx context.Context, req *TransferRequest) error {
	if r.deps.Portico == nil {
		return fmt.Errorf("%w: portico order service not configured", connect.ErrMissingLiveData)
	}
	fee, err := r.relayerFee(ctx, req)
	if err != nil {
		return err
	}
	req.RelayerFee = fee

	orderReq, err := r.orderRequest(ctx, req)
	if err != nil {
		return err
	}
	resp, params, err := r.deps.Portico.CreateOrder(ctx, orderReq)
	if err != nil {
		return err
	}
	estimated, err := portico.ParseAmount(resp.EstimatedAmountOut)
	if err != nil {
		return fmt.Errorf("%w: estimated amount out %q", connect.ErrMalformedInput, resp.EstimatedAmountOut)
	}
	dst, _ := r.token(req.DestToken)
	src, _ := r.token(req.SourceToken)
	destDecimals := dst.DecimalsOn(req.DestChain)
	req.SwapQuote = &SwapQuote{
		AmountOut:       FormatAmount(estimated.ToBig(), destDecimals),
		MinAmountOut:    FormatAmount(params.MinAmountFinish.ToBig(), destDecimals),
		RelayerFee:      FormatAmount(ConvertDecimals(fee, src.DecimalsOn(req.SourceChain), destDecimals), destDecimals),
		Order:           resp,
		TradeParameters: params,
	}
	return nil
}

func (r *PorticoRoute) ComputeReceiveAmount(req *TransferRequest) (decimal.Decimal, error) {
	if req.RelayerFee == nil {
		return decimal.Zero, errMissingRelayerFee
	}
	if req.SwapQuote == nil {
		return decimal.Zero, errMissingSwapQuote
	}
	return req.SwapQuote.AmountOut, nil
}

func (r *PorticoRoute) ComputeReceiveAmountWithFees(req *TransferRequest) (decimal.Decimal, error) {
	gross, err := r.ComputeReceiveAmount(req)
	if err != nil {
		return decimal.Zero, err
	}
	out := gross.Sub(req.SwapQuote.RelayerFee)
	if !out.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount does not cover the relayer fee", connect.ErrInvalidRequest)
	}
	return out, nil
}

func (r *PorticoRoute) Validate(req *TransferRequest) error {
	if err := r.baseRoute.Validate(req); err != nil {
		return err
	}
	if _, err := r.ComputeReceiveAmountWithFees(req); err != nil {
		return err
	}
	if req.SwapQuote.Order == nil || req.SwapQuote.TradeParameters == nil {
		return fmt.Errorf("%w: portico order", connect.ErrMissingLiveData)
	}
	return nil
}

// Send submits the start() transaction of the validated order. The call
// data must still decode to the validated trade parameters.
func (r *PorticoRoute) Send(ctx context.Context, req *TransferRequest, signer Signer) (string, error) {
	if err := r.Validate(req); err != nil {
		return "", err
	}
	cc, err := r.evmChain(req.SourceChain)
	if err != nil {
		return "", err
	}
	order := req.SwapQuote.Order
	data, err := hexutil.Decode(order.TransactionData)
	if err != nil {
		return "", fmt.Errorf("%w: transaction data: %v", connect.ErrMalformedInput, err)
	}
	params, err := portico.DecodeStart(data)
	if err != nil {
		return "", err
	}
	got, err := params.Bytes()
	if err != nil {
		return "", err
	}
	want, err := req.SwapQuote.TradeParameters.Bytes()
	if err != nil {
		return "", err
	}
	if !bytes.Equal(got, want) {
		return "", fmt.Errorf("%w: start() call data changed after validation", connect.ErrIntegrityMismatch)
	}
	target, _ := cc.EVMContract(cc.Contracts.Portico)
	if !common.IsHexAddress(order.TransactionTarget) || common.HexToAddress(order.TransactionTarget) != target {
		return "", portico.ErrTransactionTarget
	}
	value, err := portico.ParseAmount(order.TransactionValue)
	if err != nil {
		return "", fmt.Errorf("%w: transaction value %q", connect.ErrMalformedInput, order.TransactionValue)
	}

	tx := &UnsignedTx{
		Chain:       req.SourceChain,
		To:          target,
		Value:       value.ToBig(),
		Data:        data,
		Description: "portico start",
	}
	approve, err := approval(req.SourceChain, params.StartTokenAddress, target,
		params.FlagSet.ShouldWrapNative, params.AmountSpecified.ToBig())
	if err != nil {
		return "", err
	}
	return r.submit(ctx, signer, withApproval(approve, tx)...)
}

// Resume claims payload 3 transfers addressed to the destination Portico
// whose bridged asset is this route's canonical token.
func (r *PorticoRoute) Resume(_ context.Context, tx *SourceTx) (*connect.TransferReceipt, error) {
	_, canonical, ok := r.settings()
	if !ok || canonical.IsNative() {
		return nil, nil
	}
	origin, err := r.contractAddress(canonical.NativeID, canonical.Address)
	if err != nil {
		return nil, nil
	}
	for _, m := range r.tokenBridgeMessages(tx) {
		t := m.Transfer
		if t.Type != chain.TransferWithPayloadPayloadID {
			continue
		}
		destPortico, ok := r.contractOn(t.TargetChain, porticoContract)
		if !ok || t.TargetAddress != destPortico {
			continue
		}
		if t.OriginChain != canonical.NativeID || t.OriginAddress != origin {
			continue
		}
		payload, err := portico.ParsePayload(t.Payload)
		if err != nil {
			r.log.Debug("skipping undecodable portico payload", log.Uint64("sequence", m.Sequence), log.Err(err))
			continue
		}
		receipt := r.tokenBridgeReceipt(tx, m)
		receipt.Recipient = payload.RecipientAddress.Hex()
		receipt.RelayerFee = payload.RelayerFee.ToBig()
		return receipt, nil
	}
	return nil, nil
}

func (r *PorticoRoute) contractAddress(id vaa.ChainID, native string) (vaa.Address, error) {
	cc, ok := r.cfg.Chain(id)
	if !ok {
		return vaa.Address{}, fmt.Errorf("%w: %s", chain.ErrUnknownChain, id)
	}
	return chain.UniversalAddress(cc.PlatformKind(), native)
}

func (r *PorticoRoute) TryFetchRedeemTx(ctx context.Context, receipt *connect.TransferReceipt) (string, error) {
	return r.tokenBridgeRedeemTx(ctx, receipt)
}
