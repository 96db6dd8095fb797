// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/shopspring/decimal"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/chain"
	"github.com/luxfi/connect/config"
	"github.com/luxfi/connect/services"
)

const governorDelayNote = "may be delayed up to 24 hours by the governor"

var errMissingReceipt = fmt.Errorf("%w: missing receipt", connect.ErrInvalidRequest)

// baseRoute holds what every route shares. self is the embedding route so
// shared operations reach the route's own capability checks and quotes.
type baseRoute struct {
	self       Strategy
	route      connect.Route
	cfg        *config.Config
	deps       *Deps
	log        log.Logger
	gasDropOff bool
}

func newBaseRoute(r connect.Route, cfg *config.Config, deps *Deps) baseRoute {
	if deps == nil {
		deps = &Deps{}
	}
	logger := deps.Log
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return baseRoute{
		route: r,
		cfg:   cfg,
		deps:  deps,
		log:   logger,
	}
}

func (b *baseRoute) Route() connect.Route {
	return b.route
}

func (*baseRoute) FetchQuoteData(context.Context, *TransferRequest) error {
	return nil
}

func (b *baseRoute) NativeGasDropOff(context.Context, *TransferRequest) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("%w: %s has no gas drop-off", connect.ErrNotSupported, b.route)
}

func (b *baseRoute) GetForeignAsset(token string, id vaa.ChainID) (string, error) {
	tc, err := b.token(token)
	if err != nil {
		return "", err
	}
	addr, ok := tc.AddressOn(id)
	if !ok {
		return "", fmt.Errorf("%w: %s has no asset on %s", connect.ErrNotSupported, tc.Key, id)
	}
	return addr, nil
}

func (b *baseRoute) IsRouteSupported(sourceToken, destToken, amount string, source, dest vaa.ChainID) bool {
	if source == dest || !b.self.IsSupportedChain(source) || !b.self.IsSupportedChain(dest) {
		return false
	}
	if !b.self.IsSupportedSourceToken(sourceToken, destToken, source, dest) ||
		!b.self.IsSupportedDestToken(destToken, sourceToken, source, dest) {
		return false
	}
	if amount == "" {
		return true
	}
	tc, err := b.token(sourceToken)
	if err != nil {
		return false
	}
	v, err := ParseAmount(amount, tc.DecimalsOn(source))
	return err == nil && v.Sign() > 0
}

// Validate runs the checks shared by all routes.
func (b *baseRoute) Validate(req *TransferRequest) error {
	if req == nil {
		return fmt.Errorf("%w: missing request", connect.ErrInvalidRequest)
	}
	if !b.self.IsRouteSupported(req.SourceToken, req.DestToken, "", req.SourceChain, req.DestChain) {
		return fmt.Errorf("%w: %s does not support %s on %s to %s on %s", connect.ErrInvalidRequest,
			b.route, req.SourceToken, req.SourceChain, req.DestToken, req.DestChain)
	}
	amount, tc, err := b.sourceAmount(req)
	if err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", connect.ErrInvalidRequest)
	}
	if req.Sender == "" {
		return fmt.Errorf("%w: missing sender", connect.ErrInvalidRequest)
	}
	if _, err := b.recipient(req); err != nil {
		return err
	}
	if req.ToNativeToken == "" {
		return nil
	}
	if !b.gasDropOff {
		return fmt.Errorf("%w: %s has no gas drop-off", connect.ErrNotSupported, b.route)
	}
	toNative, err := ParseAmount(req.ToNativeToken, tc.DecimalsOn(req.SourceChain))
	if err != nil {
		return err
	}
	if toNative.Cmp(amount) >= 0 {
		return fmt.Errorf("%w: gas drop-off exceeds amount", connect.ErrInvalidRequest)
	}
	return nil
}

// GetPreview renders the quote of the route.
func (b *baseRoute) GetPreview(ctx context.Context, req *TransferRequest) (connect.TransferDisplayData, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: missing request", connect.ErrInvalidRequest)
	}
	src, err := b.token(req.SourceToken)
	if err != nil {
		return nil, err
	}
	dst, err := b.token(req.DestToken)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", connect.ErrInvalidRequest, req.Amount)
	}
	receive, err := b.self.ComputeReceiveAmountWithFees(req)
	if err != nil {
		return nil, err
	}

	sentUSD, sentPriced := b.usdValue(ctx, src, amount)
	rows := connect.TransferDisplayData{
		b.row(ctx, "Amount", src, amount),
	}
	if b.route.IsAutomatic() {
		rows = append(rows, b.feeRow(ctx, req, src))
	}
	if req.ToNativeToken != "" {
		gas, err := b.self.NativeGasDropOff(ctx, req)
		if err != nil {
			return nil, err
		}
		if cc, ok := b.cfg.Chain(req.DestChain); ok {
			if gasToken, ok := b.cfg.Token(cc.GasToken); ok {
				rows = append(rows, b.row(ctx, "Native gas", gasToken, gas))
			}
		}
	}
	rows = append(rows, b.row(ctx, "Receive amount", dst, receive))
	if sentPriced && b.deps.Governor != nil {
		exceeds, err := b.deps.Governor.ExceedsLimit(ctx, req.SourceChain, sentUSD)
		if err != nil {
			b.log.Debug("governor lookup failed", log.Stringer("route", b.route), log.Err(err))
		} else if exceeds {
			rows = append(rows, connect.DisplayRow{Title: "Governor", Value: "transfer " + governorDelayNote})
		}
	}
	return rows, nil
}

func (b *baseRoute) feeRow(ctx context.Context, req *TransferRequest, src *config.TokenConfig) connect.DisplayRow {
	if req.RelayerFee == nil {
		return connect.DisplayRow{Title: "Relayer fee", Value: "-"}
	}
	feeToken, decimals := src, src.DecimalsOn(req.SourceChain)
	if b.route == connect.RouteNttRelay {
		if cc, ok := b.cfg.Chain(req.SourceChain); ok {
			if gasToken, ok := b.cfg.Token(cc.GasToken); ok {
				feeToken, decimals = gasToken, gasToken.DecimalsOn(req.SourceChain)
			}
		}
	}
	return b.row(ctx, "Relayer fee", feeToken, FormatAmount(req.RelayerFee, decimals))
}

func (b *baseRoute) row(ctx context.Context, title string, tc *config.TokenConfig, amount decimal.Decimal) connect.DisplayRow {
	r := connect.DisplayRow{Title: title, Value: amount.String() + " " + tc.Symbol}
	if usd, ok := b.usdValue(ctx, tc, amount); ok {
		r.ValueUSD = "$" + usd.StringFixed(2)
	}
	return r
}

// usdValue prices amount, best effort.
func (b *baseRoute) usdValue(ctx context.Context, tc *config.TokenConfig, amount decimal.Decimal) (decimal.Decimal, bool) {
	if b.deps.Prices == nil || tc.CoingeckoID == "" {
		return decimal.Zero, false
	}
	price, err := b.deps.Prices.USDPrice(ctx, tc.CoingeckoID)
	if err != nil {
		b.log.Debug("price lookup failed", log.String("token", tc.Key), log.Err(err))
		return decimal.Zero, false
	}
	return USDValue(amount, price), true
}

func (b *baseRoute) GetTransferSourceInfo(ctx context.Context, r *connect.TransferReceipt) (connect.TransferDisplayData, error) {
	if r == nil {
		return nil, errMissingReceipt
	}
	rows := connect.TransferDisplayData{
		{Title: "Source chain", Value: chain.Name(r.SourceChain)},
		{Title: "Transaction", Value: r.SourceTx},
	}
	if r.Sender != "" {
		rows = append(rows, connect.DisplayRow{Title: "Sender", Value: r.Sender})
	}
	tc, ok := b.cfg.Token(r.TokenKey)
	if !ok || r.Amount == nil {
		return rows, nil
	}
	decimals := tc.DecimalsOn(r.SourceChain)
	rows = append(rows, b.row(ctx, "Amount", tc, FormatAmount(r.Amount, decimals)))
	if r.RelayerFee != nil && b.route != connect.RouteNttRelay {
		rows = append(rows, b.row(ctx, "Relayer fee", tc, FormatAmount(r.RelayerFee, decimals)))
	}
	return rows, nil
}

// queueChecker is implemented by routes whose transfers can be rate limited
// on the destination chain.
type queueChecker interface {
	isQueued(ctx context.Context, r *connect.TransferReceipt) (bool, error)
}

// failureChecker is implemented by routes whose transfers can end without
// a redemption.
type failureChecker interface {
	isFailed(ctx context.Context, r *connect.TransferReceipt) (bool, error)
}

// GetTransferDestInfo reconstructs the destination side. Lookups are best
// effort: a failed lookup leaves the transfer in its current state.
func (b *baseRoute) GetTransferDestInfo(ctx context.Context, r *connect.TransferReceipt) (*connect.TransferDestInfo, error) {
	if r == nil {
		return nil, errMissingReceipt
	}
	b.attest(ctx, r)

	info := &connect.TransferDestInfo{Route: b.route}
	tx, err := b.self.TryFetchRedeemTx(ctx, r)
	if err != nil {
		b.log.Debug("redeem lookup failed",
			log.Stringer("route", b.route),
			log.String("sourceTx", r.SourceTx),
			log.Err(err),
		)
	}
	switch {
	case tx != "":
		info.ReceiveTx = tx
		r.Advance(connect.TransferRedeemed)
	default:
		if q, ok := b.self.(queueChecker); ok {
			queued, err := q.isQueued(ctx, r)
			if err != nil {
				b.log.Debug("queued lookup failed", log.Stringer("route", b.route), log.Err(err))
			}
			if queued {
				r.Advance(connect.TransferQueued)
			}
		}
		if f, ok := b.self.(failureChecker); ok {
			failed, err := f.isFailed(ctx, r)
			if err != nil {
				b.log.Debug("failure lookup failed", log.Stringer("route", b.route), log.Err(err))
			}
			if failed {
				r.Advance(connect.TransferFailed)
			}
		}
	}
	info.State = r.State

	info.DisplayData = connect.TransferDisplayData{
		{Title: "Destination chain", Value: chain.Name(r.DestChain)},
		{Title: "Status", Value: r.State.String()},
	}
	if r.Recipient != "" {
		info.DisplayData = append(info.DisplayData, connect.DisplayRow{Title: "Recipient", Value: r.Recipient})
	}
	if tc, ok := b.cfg.Token(r.TokenKey); ok && r.Amount != nil {
		received := r.Amount
		if r.RelayerFee != nil && b.route != connect.RouteNttRelay && r.RelayerFee.Cmp(r.Amount) < 0 {
			received = new(big.Int).Sub(r.Amount, r.RelayerFee)
		}
		info.DisplayData = append(info.DisplayData,
			b.row(ctx, "Receive amount", tc, FormatAmount(received, tc.DecimalsOn(r.SourceChain))))
	}
	if tx != "" {
		info.DisplayData = append(info.DisplayData, connect.DisplayRow{Title: "Transaction", Value: tx})
	}
	return info, nil
}

// attest marks the receipt attested once the guardians signed its message.
func (b *baseRoute) attest(ctx context.Context, r *connect.TransferReceipt) {
	if b.deps.VAAs == nil || r.Attested || r.Emitter == (vaa.Address{}) {
		return
	}
	v, err := b.deps.VAAs.SignedVAA(ctx, services.MessageID{
		Chain:    r.SourceChain,
		Emitter:  r.Emitter,
		Sequence: r.Sequence,
	})
	if err != nil {
		b.log.Debug("vaa lookup failed", log.Stringer("route", b.route), log.Err(err))
		return
	}
	r.Attested = v != nil
}

func (b *baseRoute) token(key string) (*config.TokenConfig, error) {
	tc, ok := b.cfg.Token(key)
	if !ok {
		return nil, fmt.Errorf("%w: unknown token %q", connect.ErrInvalidRequest, key)
	}
	return tc, nil
}

// evmChain returns an EVM chain. Other platforms are not supported for
// submission and inspection.
func (b *baseRoute) evmChain(id vaa.ChainID) (*config.ChainConfig, error) {
	cc, ok := b.cfg.Chain(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", chain.ErrUnknownChain, id)
	}
	if !cc.IsEVM() {
		return nil, fmt.Errorf("%w: %s is not an EVM chain", connect.ErrNotSupported, cc.Name)
	}
	return cc, nil
}

func (b *baseRoute) scanner(id vaa.ChainID) (*chain.Scanner, error) {
	cc, err := b.evmChain(id)
	if err != nil {
		return nil, err
	}
	client, err := b.deps.Clients.Get(id)
	if err != nil {
		return nil, err
	}
	maxBlockSearch := cc.MaxBlockSearch
	if maxBlockSearch == 0 {
		maxBlockSearch = b.cfg.MaxBlockSearch
	}
	return chain.NewScanner(client, maxBlockSearch, b.log), nil
}

// sourceAmount parses the amount in the source token's smallest unit.
func (b *baseRoute) sourceAmount(req *TransferRequest) (*big.Int, *config.TokenConfig, error) {
	tc, err := b.token(req.SourceToken)
	if err != nil {
		return nil, nil, err
	}
	amount, err := ParseAmount(req.Amount, tc.DecimalsOn(req.SourceChain))
	if err != nil {
		return nil, nil, err
	}
	return amount, tc, nil
}

// toNativeAmount parses ToNativeToken in the source token's smallest unit.
func (b *baseRoute) toNativeAmount(req *TransferRequest, tc *config.TokenConfig) (*big.Int, error) {
	if req.ToNativeToken == "" {
		return new(big.Int), nil
	}
	return ParseAmount(req.ToNativeToken, tc.DecimalsOn(req.SourceChain))
}

// recipient resolves the recipient on the destination platform.
func (b *baseRoute) recipient(req *TransferRequest) (vaa.Address, error) {
	cc, ok := b.cfg.Chain(req.DestChain)
	if !ok {
		return vaa.Address{}, fmt.Errorf("%w: %s", chain.ErrUnknownChain, req.DestChain)
	}
	addr, err := chain.UniversalAddress(cc.PlatformKind(), req.Recipient)
	if err != nil {
		return vaa.Address{}, fmt.Errorf("%w: recipient: %w", connect.ErrInvalidRequest, err)
	}
	return addr, nil
}

// sourceTokenAddress is the EVM token contract, or the zero address and
// true for the gas token.
func (b *baseRoute) sourceTokenAddress(tc *config.TokenConfig, id vaa.ChainID) (common.Address, bool, error) {
	addr, ok := tc.AddressOn(id)
	if !ok {
		return common.Address{}, false, fmt.Errorf("%w: %s has no asset on %s", connect.ErrNotSupported, tc.Key, id)
	}
	if addr == "" {
		return common.Address{}, true, nil
	}
	if !common.IsHexAddress(addr) {
		return common.Address{}, false, fmt.Errorf("%w: %s on %s is not an EVM token", connect.ErrNotSupported, tc.Key, id)
	}
	return common.HexToAddress(addr), false, nil
}

// submit hands the transactions to the signer in order and returns the hash
// of the last one.
func (b *baseRoute) submit(ctx context.Context, signer Signer, txs ...*UnsignedTx) (string, error) {
	if signer == nil {
		return "", fmt.Errorf("%w: missing signer", connect.ErrInvalidRequest)
	}
	var hash string
	for _, tx := range txs {
		h, err := signer.SendTransaction(ctx, tx)
		if err != nil {
			return "", fmt.Errorf("failed to send %s: %w", tx.Description, err)
		}
		b.log.Info("sent transaction",
			log.Stringer("route", b.route),
			log.String("description", tx.Description),
			log.String("txHash", h),
		)
		hash = h
	}
	return hash, nil
}

// approval returns the ERC20 approve transaction, or nil for the gas token.
func approval(id vaa.ChainID, token, spender common.Address, native bool, amount *big.Int) (*UnsignedTx, error) {
	if native {
		return nil, nil
	}
	data, err := pack(erc20, "approve", spender, amount)
	if err != nil {
		return nil, err
	}
	return &UnsignedTx{
		Chain:       id,
		To:          token,
		Value:       new(big.Int),
		Data:        data,
		Description: "approve",
	}, nil
}

// withApproval prepends approve when it is needed.
func withApproval(approve *UnsignedTx, tx *UnsignedTx) []*UnsignedTx {
	if approve == nil {
		return []*UnsignedTx{tx}
	}
	return []*UnsignedTx{approve, tx}
}

// wormholeMessageID is the identity of a wormhole message.
func wormholeMessageID(source vaa.ChainID, emitter vaa.Address, sequence uint64) ids.ID {
	var chainID [2]byte
	binary.BigEndian.PutUint16(chainID[:], uint16(source))
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequence)
	return ids.ID(connect.Keccak256(chainID[:], emitter[:], seq[:]))
}

// nativeAddress renders a universal address on the chain's platform, or in
// hex when the chain is not configured.
func (b *baseRoute) nativeAddress(id vaa.ChainID, addr vaa.Address) string {
	if cc, ok := b.cfg.Chain(id); ok {
		if s, err := chain.NativeAddress(cc.PlatformKind(), addr); err == nil {
			return s
		}
	}
	return addr.String()
}
