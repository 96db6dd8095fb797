// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	ethereum "github.com/luxfi/geth"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/shopspring/decimal"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/config"
	"github.com/luxfi/connect/utils"
)

// ResumeResult is the route that claimed a source transaction and the
// receipt it recovered
type ResumeResult struct {
	Route   connect.Route
	Receipt *connect.TransferReceipt
}

// Operator selects the strategy of a route and aggregates over the enabled
// routes. It owns no state beyond the configuration.
type Operator struct {
	cfg        *config.Config
	deps       *Deps
	log        log.Logger
	metrics    *Metrics
	strategies map[connect.Route]Strategy
	enabled    []connect.Route
}

// NewOperator builds one strategy per enabled route.
func NewOperator(cfg *config.Config, deps *Deps) (*Operator, error) {
	if cfg == nil {
		return nil, errors.New("missing configuration")
	}
	if deps == nil {
		deps = &Deps{}
	}
	logger := deps.Log
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	o := &Operator{
		cfg:        cfg,
		deps:       deps,
		log:        logger,
		metrics:    deps.Metrics,
		strategies: make(map[connect.Route]Strategy),
	}
	for _, r := range cfg.EnabledRoutes() {
		s, err := newStrategy(r, cfg, deps)
		if err != nil {
			return nil, err
		}
		o.strategies[r] = s
		o.enabled = append(o.enabled, r)
	}
	return o, nil
}

// newStrategy is the dispatch table from route to strategy.
func newStrategy(r connect.Route, cfg *config.Config, deps *Deps) (Strategy, error) {
	switch r {
	case connect.RouteBridge:
		return NewBridgeRoute(cfg, deps), nil
	case connect.RouteRelay:
		return NewRelayRoute(cfg, deps), nil
	case connect.RouteCCTPManual:
		return NewCCTPManualRoute(cfg, deps), nil
	case connect.RouteCCTPRelay:
		return NewCCTPRelayRoute(cfg, deps), nil
	case connect.RouteNttManual:
		return NewNttManualRoute(cfg, deps), nil
	case connect.RouteNttRelay:
		return NewNttRelayRoute(cfg, deps), nil
	case connect.RouteMayan:
		return NewMayanRoute(cfg, deps), nil
	case connect.RouteETHBridge, connect.RouteUSDTBridge, connect.RouteWstETHBridge:
		return NewPorticoRoute(r, cfg, deps)
	case connect.RouteTBTC:
		return NewTBTCRoute(cfg, deps), nil
	default:
		return nil, fmt.Errorf("%w: %d", connect.ErrUnknownRoute, r)
	}
}

// GetRoute returns the strategy of r, or ErrRouteNotEnabled.
func (o *Operator) GetRoute(r connect.Route) (Strategy, error) {
	s, ok := o.strategies[r]
	if !ok {
		return nil, fmt.Errorf("%w: %s", connect.ErrRouteNotEnabled, r)
	}
	return s, nil
}

// EnabledRoutes lists the routes the operator dispatches to.
func (o *Operator) EnabledRoutes() []connect.Route {
	return append([]connect.Route(nil), o.enabled...)
}

// IsRouteSupported is false for routes outside the whitelist.
func (o *Operator) IsRouteSupported(r connect.Route, sourceToken, destToken, amount string, source, dest vaa.ChainID) bool {
	s, err := o.GetRoute(r)
	if err != nil {
		return false
	}
	return s.IsRouteSupported(sourceToken, destToken, amount, source, dest)
}

// ResumeFromTx identifies the route of a source transaction. The receipt is
// fetched once and every enabled route probes it concurrently. It returns
// nil when no route claims the transaction and ErrAmbiguousRoute when more
// than one does. A transaction that is not mined yet is not claimed.
func (o *Operator) ResumeFromTx(ctx context.Context, id vaa.ChainID, hash common.Hash) (*ResumeResult, error) {
	cc, ok := o.cfg.Chain(id)
	if !ok {
		return nil, fmt.Errorf("%w: unknown chain %s", connect.ErrInvalidRequest, id)
	}
	if !cc.IsEVM() {
		return nil, fmt.Errorf("%w: resuming %s transactions", connect.ErrNotSupported, cc.Name)
	}
	client, err := o.deps.Clients.Get(id)
	if err != nil {
		return nil, err
	}

	receipt, err := utils.Retry(ctx, o.log, "fetch transaction receipt", utils.DefaultRPCTimeout,
		func(ctx context.Context) (*types.Receipt, error) {
			return client.TransactionReceipt(ctx, hash)
		}, ethereum.NotFound)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt of %s: %w", hash.Hex(), err)
	}
	tx := &SourceTx{Chain: id, Hash: hash, Receipt: receipt}

	var (
		mu     sync.Mutex
		claims []ResumeResult
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range o.enabled {
		s := o.strategies[r]
		g.Go(func() error {
			got, err := s.Resume(gctx, tx)
			switch {
			case err != nil:
				o.metrics.probe(r, "error")
				o.log.Debug("resume probe failed",
					log.Stringer("route", r),
					log.String("txHash", hash.Hex()),
					log.Err(err),
				)
			case got == nil:
				o.metrics.probe(r, "unclaimed")
			default:
				o.metrics.probe(r, "claimed")
				mu.Lock()
				claims = append(claims, ResumeResult{Route: r, Receipt: got})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	switch len(claims) {
	case 0:
		return nil, nil
	case 1:
		return &claims[0], nil
	default:
		o.metrics.conflict()
		names := make([]string, len(claims))
		for i, c := range claims {
			names[i] = c.Route.String()
		}
		sort.Strings(names)
		o.log.Error("transaction claimed by more than one route",
			log.String("txHash", hash.Hex()),
			log.String("routes", strings.Join(names, ",")),
		)
		return nil, fmt.Errorf("%w: %s claimed by %v", connect.ErrAmbiguousRoute, hash.Hex(), names)
	}
}

// AllSupportedChains is the union of the chains of the enabled routes.
func (o *Operator) AllSupportedChains() []vaa.ChainID {
	chains := set.NewSet[vaa.ChainID](0)
	for _, id := range o.cfg.ChainIDs() {
		for _, r := range o.enabled {
			if o.strategies[r].IsSupportedChain(id) {
				chains.Add(id)
				break
			}
		}
	}
	out := chains.List()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllSupportedSourceTokens lists the token keys some enabled route can send
// from source to dest. Unset chains and an empty destToken do not constrain.
func (o *Operator) AllSupportedSourceTokens(destToken string, source, dest vaa.ChainID) []string {
	return o.tokens(func(s Strategy, key string) bool {
		return o.servesChains(s, source, dest) && s.IsSupportedSourceToken(key, destToken, source, dest)
	})
}

// AllSupportedDestTokens lists the token keys some enabled route can
// deliver for sourceToken.
func (o *Operator) AllSupportedDestTokens(sourceToken string, source, dest vaa.ChainID) []string {
	return o.tokens(func(s Strategy, key string) bool {
		return o.servesChains(s, source, dest) && s.IsSupportedDestToken(key, sourceToken, source, dest)
	})
}

func (o *Operator) servesChains(s Strategy, source, dest vaa.ChainID) bool {
	for _, id := range []vaa.ChainID{source, dest} {
		if id != vaa.ChainIDUnset && !s.IsSupportedChain(id) {
			return false
		}
	}
	return true
}

func (o *Operator) tokens(supported func(Strategy, string) bool) []string {
	keys := set.NewSet[string](0)
	for _, tc := range o.cfg.TokenList() {
		for _, r := range o.enabled {
			if supported(o.strategies[r], tc.Key) {
				keys.Add(tc.Key)
				break
			}
		}
	}
	out := keys.List()
	sort.Strings(out)
	return out
}

// FetchQuoteData fills the live quote data of req for route r.
func (o *Operator) FetchQuoteData(ctx context.Context, r connect.Route, req *TransferRequest) (err error) {
	defer o.observe(r, "fetch_quote", time.Now(), &err)
	s, err := o.GetRoute(r)
	if err != nil {
		return err
	}
	return s.FetchQuoteData(ctx, req)
}

func (o *Operator) ComputeReceiveAmount(r connect.Route, req *TransferRequest) (decimal.Decimal, error) {
	s, err := o.GetRoute(r)
	if err != nil {
		return decimal.Zero, err
	}
	return s.ComputeReceiveAmount(req)
}

func (o *Operator) ComputeReceiveAmountWithFees(r connect.Route, req *TransferRequest) (decimal.Decimal, error) {
	s, err := o.GetRoute(r)
	if err != nil {
		return decimal.Zero, err
	}
	return s.ComputeReceiveAmountWithFees(req)
}

func (o *Operator) NativeGasDropOff(ctx context.Context, r connect.Route, req *TransferRequest) (decimal.Decimal, error) {
	s, err := o.GetRoute(r)
	if err != nil {
		return decimal.Zero, err
	}
	return s.NativeGasDropOff(ctx, req)
}

// Validate runs the full precondition check of route r.
func (o *Operator) Validate(r connect.Route, req *TransferRequest) (err error) {
	defer o.observe(r, "validate", time.Now(), &err)
	s, err := o.GetRoute(r)
	if err != nil {
		return err
	}
	if err := s.Validate(req); err != nil {
		o.log.Error("transfer validation failed",
			log.Stringer("route", r),
			log.String("requestID", uuid.NewString()),
			log.Err(err),
		)
		return err
	}
	return nil
}

// Send submits the transfer through route r and returns the source
// transaction hash.
func (o *Operator) Send(ctx context.Context, r connect.Route, req *TransferRequest, signer Signer) (hash string, err error) {
	defer o.observe(r, "send", time.Now(), &err)
	s, err := o.GetRoute(r)
	if err != nil {
		return "", err
	}
	if req == nil {
		return "", fmt.Errorf("%w: missing request", connect.ErrInvalidRequest)
	}
	requestID := uuid.NewString()
	o.log.Info("sending transfer",
		log.Stringer("route", r),
		log.String("requestID", requestID),
		log.Stringer("sourceChain", req.SourceChain),
		log.Stringer("destChain", req.DestChain),
	)
	hash, err = s.Send(ctx, req, signer)
	if err != nil {
		o.log.Error("transfer failed",
			log.Stringer("route", r),
			log.String("requestID", requestID),
			log.Err(err),
		)
		return "", err
	}
	return hash, nil
}

func (o *Operator) GetPreview(ctx context.Context, r connect.Route, req *TransferRequest) (connect.TransferDisplayData, error) {
	s, err := o.GetRoute(r)
	if err != nil {
		return nil, err
	}
	return s.GetPreview(ctx, req)
}

func (o *Operator) TryFetchRedeemTx(ctx context.Context, receipt *connect.TransferReceipt) (string, error) {
	if receipt == nil {
		return "", errMissingReceipt
	}
	s, err := o.GetRoute(receipt.Route)
	if err != nil {
		return "", err
	}
	return s.TryFetchRedeemTx(ctx, receipt)
}

func (o *Operator) GetTransferSourceInfo(ctx context.Context, receipt *connect.TransferReceipt) (connect.TransferDisplayData, error) {
	if receipt == nil {
		return nil, errMissingReceipt
	}
	s, err := o.GetRoute(receipt.Route)
	if err != nil {
		return nil, err
	}
	return s.GetTransferSourceInfo(ctx, receipt)
}

func (o *Operator) GetTransferDestInfo(ctx context.Context, receipt *connect.TransferReceipt) (*connect.TransferDestInfo, error) {
	if receipt == nil {
		return nil, errMissingReceipt
	}
	s, err := o.GetRoute(receipt.Route)
	if err != nil {
		return nil, err
	}
	return s.GetTransferDestInfo(ctx, receipt)
}

func (o *Operator) GetForeignAsset(r connect.Route, token string, id vaa.ChainID) (string, error) {
	s, err := o.GetRoute(r)
	if err != nil {
		return "", err
	}
	return s.GetForeignAsset(token, id)
}

func (o *Operator) observe(r connect.Route, operation string, start time.Time, err *error) {
	o.metrics.observe(r, operation, start, *err)
}
