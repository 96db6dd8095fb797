// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package routes implements one Strategy per bridging route and the
// Operator that dispatches to them.
package routes

import (
	"context"
	"math/big"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/log"
	"github.com/shopspring/decimal"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/chain"
	"github.com/luxfi/connect/portico"
	"github.com/luxfi/connect/services"
)

// TransferRequest is a transfer as entered by the user. Tokens are config
// token keys and amounts are decimal strings of whole tokens.
type TransferRequest struct {
	SourceChain vaa.ChainID
	DestChain   vaa.ChainID
	SourceToken string
	DestToken   string
	Amount      string
	Sender      string
	Recipient   string
	// ToNativeToken is the part of Amount swapped into destination gas on
	// routes with gas drop-off.
	ToNativeToken string

	// RelayerFee is filled by FetchQuoteData on automatic routes, in the
	// smallest unit of the source token, or of the source gas token for
	// nttRelay.
	RelayerFee *big.Int
	// SwapQuote is filled by FetchQuoteData on swap routes.
	SwapQuote *SwapQuote
}

// SwapQuote is the live quote of a route that swaps
type SwapQuote struct {
	// AmountOut is the expected amount of the destination token.
	AmountOut    decimal.Decimal
	MinAmountOut decimal.Decimal
	// RelayerFee is charged in the destination token.
	RelayerFee decimal.Decimal
	ETA        time.Duration

	Order           *portico.CreateOrderResponse
	TradeParameters *portico.TradeParameters
}

// UnsignedTx is a transaction a route hands to the signer
type UnsignedTx struct {
	Chain       vaa.ChainID
	To          common.Address
	Value       *big.Int
	Data        []byte
	Description string
}

// Signer signs and submits transactions on behalf of the user and returns
// the transaction hash.
type Signer interface {
	SendTransaction(ctx context.Context, tx *UnsignedTx) (string, error)
}

// SourceTx is a source transaction with its already fetched receipt
type SourceTx struct {
	Chain   vaa.ChainID
	Hash    common.Hash
	Receipt *types.Receipt
}

// OrderCreator creates validated Portico orders
type OrderCreator interface {
	CreateOrder(ctx context.Context, req *portico.CreateOrderRequest) (*portico.CreateOrderResponse, *portico.TradeParameters, error)
}

var _ OrderCreator = (*portico.OrderClient)(nil)

// Deps are the collaborators shared by every route. Any may be nil; an
// operation that needs a missing one fails.
type Deps struct {
	Clients  chain.Clients
	Prices   services.PriceSource
	Relayer  services.RelayerFeeSource
	Governor services.Governor
	VAAs     services.VAASource
	Mayan    services.MayanSource
	Portico  OrderCreator
	Metrics  *Metrics
	Log      log.Logger
}

// Strategy is implemented by every route.
type Strategy interface {
	Route() connect.Route

	IsSupportedChain(id vaa.ChainID) bool
	// IsSupportedSourceToken reports whether token can be sent. An empty
	// counterpart or an unset chain is not constrained.
	IsSupportedSourceToken(token, destToken string, source, dest vaa.ChainID) bool
	IsSupportedDestToken(token, sourceToken string, source, dest vaa.ChainID) bool
	// IsRouteSupported is a static capability check, independent of quotes.
	IsRouteSupported(sourceToken, destToken, amount string, source, dest vaa.ChainID) bool

	// FetchQuoteData fills the live data the route quotes from.
	FetchQuoteData(ctx context.Context, req *TransferRequest) error
	// ComputeReceiveAmount is the amount delivered before relayer fees, and
	// ComputeReceiveAmountWithFees the amount the recipient ends up with.
	// Both fail with connect.ErrMissingLiveData until FetchQuoteData ran.
	ComputeReceiveAmount(req *TransferRequest) (decimal.Decimal, error)
	ComputeReceiveAmountWithFees(req *TransferRequest) (decimal.Decimal, error)
	// NativeGasDropOff is the destination gas bought with ToNativeToken.
	NativeGasDropOff(ctx context.Context, req *TransferRequest) (decimal.Decimal, error)

	Validate(req *TransferRequest) error
	Send(ctx context.Context, req *TransferRequest, signer Signer) (string, error)
	GetPreview(ctx context.Context, req *TransferRequest) (connect.TransferDisplayData, error)

	// Resume claims a source transaction by a distinguishing event of the
	// receipt. It returns nil when the transaction is not this route's.
	Resume(ctx context.Context, tx *SourceTx) (*connect.TransferReceipt, error)
	// TryFetchRedeemTx returns the destination transaction, or "" when it
	// is not found in the search window.
	TryFetchRedeemTx(ctx context.Context, r *connect.TransferReceipt) (string, error)
	GetTransferSourceInfo(ctx context.Context, r *connect.TransferReceipt) (connect.TransferDisplayData, error)
	GetTransferDestInfo(ctx context.Context, r *connect.TransferReceipt) (*connect.TransferDestInfo, error)
	GetForeignAsset(token string, id vaa.ChainID) (string, error)
}
