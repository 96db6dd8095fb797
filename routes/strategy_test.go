// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"context"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/chain"
	"github.com/luxfi/connect/config"
	"github.com/luxfi/connect/services"
)

func transferRequest(src, dst, amount string, source, dest vaa.ChainID) *TransferRequest {
	return &TransferRequest{
		SourceChain: source,
		DestChain:   dest,
		SourceToken: src,
		DestToken:   dst,
		Amount:      amount,
		Sender:      sender.Hex(),
		Recipient:   recipient.Hex(),
	}
}

// callArgs checks the selector of data and unpacks its arguments.
func callArgs(t *testing.T, parsed abi.ABI, method string, data []byte) []interface{} {
	t.Helper()
	m, ok := parsed.Methods[method]
	require.True(t, ok, method)
	require.Equal(t, m.ID, data[:4], method)
	args, err := m.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return args
}

func requireApproval(t *testing.T, tx *UnsignedTx, token, spender common.Address, amount *big.Int) {
	t.Helper()
	require.Equal(t, token, tx.To)
	args := callArgs(t, erc20, "approve", tx.Data)
	require.Equal(t, spender, args[0])
	requireAmount(t, amount, args[1])
}

func requireAmount(t *testing.T, want *big.Int, got interface{}) {
	t.Helper()
	v, ok := got.(*big.Int)
	require.True(t, ok, "%T is not an amount", got)
	require.Zero(t, want.Cmp(v), "want %s, got %s", want, v)
}

func universal(a common.Address) [32]byte {
	return [32]byte(chain.FromEVM(a))
}

func TestComputeRequiresLiveData(t *testing.T) {
	cfg := testConfig(t)
	deps := testDeps(&fakeClient{})
	eth, arb := vaa.ChainIDEthereum, vaa.ChainIDArbitrum

	portico, err := NewPorticoRoute(connect.RouteETHBridge, cfg, deps)
	require.NoError(t, err)
	tests := []struct {
		name  string
		route Strategy
		req   *TransferRequest
	}{
		{name: "relay", route: NewRelayRoute(cfg, deps), req: transferRequest("weth", "weth", "1", eth, arb)},
		{name: "cctp relay", route: NewCCTPRelayRoute(cfg, deps), req: transferRequest("usdc", "usdc", "1", eth, arb)},
		{name: "ntt relay", route: NewNttRelayRoute(cfg, deps), req: transferRequest("w", "w", "1", eth, arb)},
		{name: "portico", route: portico, req: transferRequest("eth", "weth", "1", eth, arb)},
		{name: "mayan", route: NewMayanRoute(cfg, deps), req: transferRequest("eth", "usdc", "1", eth, arb)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			_, err := tt.route.ComputeReceiveAmount(tt.req)
			require.ErrorIs(err, connect.ErrMissingLiveData)
			_, err = tt.route.ComputeReceiveAmountWithFees(tt.req)
			require.ErrorIs(err, connect.ErrMissingLiveData)
			require.ErrorIs(tt.route.Validate(tt.req), connect.ErrMissingLiveData)
		})
	}
}

func TestRelayQuote(t *testing.T) {
	require := require.New(t)

	r := NewRelayRoute(testConfig(t), testDeps(&fakeClient{}))
	req := transferRequest("weth", "weth", "1.5", vaa.ChainIDEthereum, vaa.ChainIDArbitrum)
	require.NoError(r.FetchQuoteData(context.Background(), req))
	require.Equal(big.NewInt(1e16), req.RelayerFee)

	out, err := r.ComputeReceiveAmount(req)
	require.NoError(err)
	require.Equal("1.5", out.String())
	out, err = r.ComputeReceiveAmountWithFees(req)
	require.NoError(err)
	require.Equal("1.49", out.String())

	// Gas drop-off comes out of the delivered amount.
	req.ToNativeToken = "0.5"
	out, err = r.ComputeReceiveAmountWithFees(req)
	require.NoError(err)
	require.Equal("0.99", out.String())

	req.RelayerFee = big.NewInt(2e18)
	require.ErrorIs(r.Validate(req), connect.ErrInvalidRequest)
}

func TestBridgeDropsBridgePrecision(t *testing.T) {
	require := require.New(t)

	r := NewBridgeRoute(testConfig(t), testDeps(&fakeClient{}))
	out, err := r.ComputeReceiveAmount(transferRequest("weth", "weth", "1.123456789123456789", vaa.ChainIDEthereum, vaa.ChainIDArbitrum))
	require.NoError(err)
	require.Equal("1.12345678", out.String())
}

func TestNttTrimsAmount(t *testing.T) {
	require := require.New(t)

	r := NewNttManualRoute(testConfig(t), testDeps(&fakeClient{}))
	req := transferRequest("w", "w", "1.123456789123456789", vaa.ChainIDEthereum, vaa.ChainIDArbitrum)
	require.NoError(r.FetchQuoteData(context.Background(), req))
	require.Nil(req.RelayerFee)

	out, err := r.ComputeReceiveAmount(req)
	require.NoError(err)
	require.Equal("1.12345678", out.String())

	req.Amount = "0.000000001"
	require.ErrorIs(r.Validate(req), connect.ErrInvalidRequest)
}

func TestValidate(t *testing.T) {
	r := NewBridgeRoute(testConfig(t), testDeps(&fakeClient{}))
	eth, arb := vaa.ChainIDEthereum, vaa.ChainIDArbitrum

	tests := []struct {
		name    string
		mutate  func(*TransferRequest)
		wantErr error
	}{
		{name: "valid", mutate: func(*TransferRequest) {}},
		{name: "nil request", wantErr: connect.ErrInvalidRequest},
		{name: "missing sender", mutate: func(r *TransferRequest) { r.Sender = "" }, wantErr: connect.ErrInvalidRequest},
		{name: "bad recipient", mutate: func(r *TransferRequest) { r.Recipient = "0x1234" }, wantErr: connect.ErrInvalidRequest},
		{name: "zero amount", mutate: func(r *TransferRequest) { r.Amount = "0" }, wantErr: connect.ErrInvalidRequest},
		{name: "unsupported pair", mutate: func(r *TransferRequest) { r.DestToken = "usdc" }, wantErr: connect.ErrInvalidRequest},
		{name: "gas drop-off", mutate: func(r *TransferRequest) { r.ToNativeToken = "0.1" }, wantErr: connect.ErrNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *TransferRequest
			if tt.mutate != nil {
				req = transferRequest("weth", "weth", "1.5", eth, arb)
				tt.mutate(req)
			}
			err := r.Validate(req)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateBridgeDust(t *testing.T) {
	cfg := testConfig(t)
	deps := testDeps(&fakeClient{})
	eth, arb := vaa.ChainIDEthereum, vaa.ChainIDArbitrum
	tests := []struct {
		name  string
		route Strategy
		token string
	}{
		{name: "bridge", route: NewBridgeRoute(cfg, deps), token: "weth"},
		{name: "tbtc", route: NewTBTCRoute(cfg, deps), token: "tbtc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			req := transferRequest(tt.token, tt.token, "0.00000001", eth, arb)
			require.NoError(tt.route.Validate(req))

			req.Amount = "0.000000001"
			out, err := tt.route.ComputeReceiveAmount(req)
			require.NoError(err)
			require.True(out.IsZero())
			require.ErrorIs(tt.route.Validate(req), connect.ErrInvalidRequest)

			signer := &fakeSigner{}
			_, err = tt.route.Send(context.Background(), req, signer)
			require.ErrorIs(err, connect.ErrInvalidRequest)
			require.Empty(signer.txs)
		})
	}
}

func TestBridgeSendNative(t *testing.T) {
	require := require.New(t)

	cfg := testConfigWith(t, func(c *config.Config) {
		c.Tokens["eth"].ForeignAssets = map[string]string{"arbitrum": contract(arbitrumPrefix, arbETHSlot).Hex()}
	})
	r := NewBridgeRoute(cfg, testDeps(&fakeClient{}))
	signer := &fakeSigner{}
	hash, err := r.Send(context.Background(), transferRequest("eth", "eth", "1.5", vaa.ChainIDEthereum, vaa.ChainIDArbitrum), signer)
	require.NoError(err)
	require.NotEmpty(hash)

	require.Len(signer.txs, 1)
	tx := signer.txs[0]
	require.Equal(contract(ethereumPrefix, tokenBridgeSlot), tx.To)
	requireAmount(t, big.NewInt(15e17), tx.Value)
	args := callArgs(t, tokenBridge, "wrapAndTransferETH", tx.Data)
	require.Equal(uint16(vaa.ChainIDArbitrum), args[0])
	require.Equal(universal(recipient), args[1])
}

func TestBridgeSendToken(t *testing.T) {
	require := require.New(t)

	r := NewBridgeRoute(testConfig(t), testDeps(&fakeClient{}))
	signer := &fakeSigner{}
	_, err := r.Send(context.Background(), transferRequest("weth", "weth", "1.5", vaa.ChainIDEthereum, vaa.ChainIDArbitrum), signer)
	require.NoError(err)

	require.Len(signer.txs, 2)
	weth, tb := contract(ethereumPrefix, wethSlot), contract(ethereumPrefix, tokenBridgeSlot)
	requireApproval(t, signer.txs[0], weth, tb, big.NewInt(15e17))

	tx := signer.txs[1]
	require.Equal(tb, tx.To)
	require.Zero(tx.Value.Sign())
	args := callArgs(t, tokenBridge, "transferTokens", tx.Data)
	require.Equal(weth, args[0])
	requireAmount(t, big.NewInt(15e17), args[1])
	require.Equal(uint16(vaa.ChainIDArbitrum), args[2])
	require.Equal(universal(recipient), args[3])
}

func TestRelaySendWithGasDropOff(t *testing.T) {
	require := require.New(t)

	r := NewRelayRoute(testConfig(t), testDeps(&fakeClient{}))
	req := transferRequest("weth", "weth", "1.5", vaa.ChainIDEthereum, vaa.ChainIDArbitrum)
	req.ToNativeToken = "0.1"
	require.NoError(r.FetchQuoteData(context.Background(), req))

	signer := &fakeSigner{}
	_, err := r.Send(context.Background(), req, signer)
	require.NoError(err)
	require.Len(signer.txs, 2)

	relayer := contract(ethereumPrefix, relayerSlot)
	requireApproval(t, signer.txs[0], contract(ethereumPrefix, wethSlot), relayer, big.NewInt(15e17))
	args := callArgs(t, tokenBridgeRelay, "transferTokensWithRelay", signer.txs[1].Data)
	requireAmount(t, big.NewInt(1e17), args[2])
	require.Equal(uint16(vaa.ChainIDArbitrum), args[3])
}

func TestCCTPManualSend(t *testing.T) {
	require := require.New(t)

	r := NewCCTPManualRoute(testConfig(t), testDeps(&fakeClient{}))
	signer := &fakeSigner{}
	_, err := r.Send(context.Background(), transferRequest("usdc", "usdc", "100", vaa.ChainIDEthereum, vaa.ChainIDArbitrum), signer)
	require.NoError(err)
	require.Len(signer.txs, 2)

	usdc, messenger := contract(ethereumPrefix, usdcSlot), contract(ethereumPrefix, messengerSlot)
	requireApproval(t, signer.txs[0], usdc, messenger, big.NewInt(100e6))

	tx := signer.txs[1]
	require.Equal(messenger, tx.To)
	args := callArgs(t, cctpContracts, "depositForBurn", tx.Data)
	requireAmount(t, big.NewInt(100e6), args[0])
	require.Equal(uint32(3), args[1])
	require.Equal(universal(recipient), args[2])
	require.Equal(usdc, args[3])
}

func TestNttManualSend(t *testing.T) {
	require := require.New(t)

	r := NewNttManualRoute(testConfig(t), testDeps(&fakeClient{}))
	signer := &fakeSigner{}
	_, err := r.Send(context.Background(), transferRequest("w", "w", "1.123456789123456789", vaa.ChainIDEthereum, vaa.ChainIDArbitrum), signer)
	require.NoError(err)
	require.Len(signer.txs, 2)

	manager := contract(ethereumPrefix, managerSlot)
	untrimmed, ok := new(big.Int).SetString("1123456780000000000", 10)
	require.True(ok)
	requireApproval(t, signer.txs[0], contract(ethereumPrefix, wSlot), manager, untrimmed)

	tx := signer.txs[1]
	require.Equal(manager, tx.To)
	require.Zero(tx.Value.Sign())
	args := callArgs(t, nttManager, "transfer", tx.Data)
	requireAmount(t, untrimmed, args[0])
	require.Equal(uint16(vaa.ChainIDArbitrum), args[1])
	require.Equal(universal(recipient), args[2])
	require.Equal(universal(sender), args[3])
	require.Equal(false, args[4])
	require.Equal(skipRelayInstructions, args[5])
}

func TestNttRelaySendPaysInGas(t *testing.T) {
	require := require.New(t)

	r := NewNttRelayRoute(testConfig(t), testDeps(&fakeClient{}))
	req := transferRequest("w", "w", "2", vaa.ChainIDEthereum, vaa.ChainIDArbitrum)
	require.NoError(r.FetchQuoteData(context.Background(), req))

	// The delivery price does not reduce the token amount.
	out, err := r.ComputeReceiveAmountWithFees(req)
	require.NoError(err)
	require.Equal("2", out.String())

	signer := &fakeSigner{}
	_, err = r.Send(context.Background(), req, signer)
	require.NoError(err)
	require.Len(signer.txs, 2)
	tx := signer.txs[1]
	requireAmount(t, big.NewInt(1e16), tx.Value)
	args := callArgs(t, nttManager, "transfer", tx.Data)
	require.Equal(relayInstructions, args[5])
}

func TestTBTCSend(t *testing.T) {
	eth, arb := vaa.ChainIDEthereum, vaa.ChainIDArbitrum
	amount := big.NewInt(2e18)

	t.Run("from native chain", func(t *testing.T) {
		require := require.New(t)

		r := NewTBTCRoute(testConfig(t), testDeps(&fakeClient{}))
		signer := &fakeSigner{}
		_, err := r.Send(context.Background(), transferRequest("tbtc", "tbtc", "2", eth, arb), signer)
		require.NoError(err)
		require.Len(signer.txs, 2)

		tb := contract(ethereumPrefix, tokenBridgeSlot)
		requireApproval(t, signer.txs[0], contract(ethereumPrefix, tbtcSlot), tb, amount)

		tx := signer.txs[1]
		require.Equal(tb, tx.To)
		args := callArgs(t, tokenBridge, "transferTokensWithPayload", tx.Data)
		requireAmount(t, amount, args[1])
		require.Equal(uint16(arb), args[2])
		require.Equal(universal(contract(arbitrumPrefix, gatewaySlot)), args[3])
		payload := universal(recipient)
		require.Equal(payload[:], args[5])
	})

	t.Run("through gateway", func(t *testing.T) {
		require := require.New(t)

		r := NewTBTCRoute(testConfig(t), testDeps(&fakeClient{}))
		signer := &fakeSigner{}
		_, err := r.Send(context.Background(), transferRequest("tbtc", "tbtc", "2", arb, eth), signer)
		require.NoError(err)
		require.Len(signer.txs, 2)

		gateway := contract(arbitrumPrefix, gatewaySlot)
		requireApproval(t, signer.txs[0], contract(arbitrumPrefix, tbtcSlot), gateway, amount)

		tx := signer.txs[1]
		require.Equal(gateway, tx.To)
		args := callArgs(t, tbtcGateway, "sendTbtc", tx.Data)
		requireAmount(t, amount, args[0])
		require.Equal(uint16(eth), args[1])
		require.Equal(universal(recipient), args[2])
	})
}

func TestPorticoSend(t *testing.T) {
	require := require.New(t)

	r, err := NewPorticoRoute(connect.RouteETHBridge, testConfig(t), testDeps(&fakeClient{}))
	require.NoError(err)

	req := transferRequest("eth", "weth", "1.5", vaa.ChainIDEthereum, vaa.ChainIDArbitrum)
	require.NoError(r.FetchQuoteData(context.Background(), req))
	require.NotNil(req.SwapQuote)
	require.Equal("1.49", req.SwapQuote.AmountOut.String())
	require.Equal("0.01", req.SwapQuote.RelayerFee.String())
	// (1.5 * 0.99 - 0.01) * 0.99
	require.Equal("1.46025", req.SwapQuote.MinAmountOut.String())

	out, err := r.ComputeReceiveAmountWithFees(req)
	require.NoError(err)
	require.Equal("1.48", out.String())

	signer := &fakeSigner{}
	_, err = r.Send(context.Background(), req, signer)
	require.NoError(err)

	// Wrapping the gas token needs no approval.
	require.Len(signer.txs, 1)
	tx := signer.txs[0]
	require.Equal(contract(ethereumPrefix, porticoSlot), tx.To)
	requireAmount(t, big.NewInt(15e17), tx.Value)
}

func TestPorticoSendRejectsChangedOrder(t *testing.T) {
	require := require.New(t)

	r, err := NewPorticoRoute(connect.RouteETHBridge, testConfig(t), testDeps(&fakeClient{}))
	require.NoError(err)

	req := transferRequest("weth", "weth", "1.5", vaa.ChainIDEthereum, vaa.ChainIDArbitrum)
	require.NoError(r.FetchQuoteData(context.Background(), req))
	req.SwapQuote.TradeParameters.MinAmountFinish = uint256.NewInt(1)

	signer := &fakeSigner{}
	_, err = r.Send(context.Background(), req, signer)
	require.ErrorIs(err, connect.ErrIntegrityMismatch)
	require.Empty(signer.txs)
}

func TestMayan(t *testing.T) {
	require := require.New(t)

	deps := testDeps(&fakeClient{})
	mayan := &fakeMayan{quote: &services.MayanQuote{
		ExpectedAmountOut: decimal.RequireFromString("2950.5"),
		MinAmountOut:      decimal.RequireFromString("2940"),
		RedeemRelayerFee:  decimal.RequireFromString("1.2"),
		ETASeconds:        60,
	}}
	deps.Mayan = mayan
	r := NewMayanRoute(testConfig(t), deps)

	req := transferRequest("eth", "usdc", "1", vaa.ChainIDEthereum, vaa.ChainIDArbitrum)
	require.NoError(r.FetchQuoteData(context.Background(), req))
	out, err := r.ComputeReceiveAmountWithFees(req)
	require.NoError(err)
	require.Equal("2950.5", out.String())
	require.Equal("1.2", req.SwapQuote.RelayerFee.String())
	require.NoError(r.Validate(req))

	signer := &fakeSigner{}
	_, err = r.Send(context.Background(), req, signer)
	require.ErrorIs(err, connect.ErrNotSupported)
	require.ErrorContains(err, MayanSDK)
	require.Empty(signer.txs)

	receipt := func() *connect.TransferReceipt {
		return &connect.TransferReceipt{
			Route:       connect.RouteMayan,
			State:       connect.TransferSent,
			SourceChain: vaa.ChainIDEthereum,
			DestChain:   vaa.ChainIDArbitrum,
			SourceTx:    "0xabc",
		}
	}

	mayan.swap = &services.MayanSwap{ClientStatus: services.MayanStatusInProgress}
	info, err := r.GetTransferDestInfo(context.Background(), receipt())
	require.NoError(err)
	require.Equal(connect.TransferSent, info.State)

	mayan.swap = &services.MayanSwap{ClientStatus: services.MayanStatusRefunded, RefundTxHash: "0xdead"}
	info, err = r.GetTransferDestInfo(context.Background(), receipt())
	require.NoError(err)
	require.Equal(connect.TransferFailed, info.State)
	require.Empty(info.ReceiveTx)

	mayan.swap = &services.MayanSwap{ClientStatus: services.MayanStatusCompleted, FulfillTxHash: "0xbeef"}
	info, err = r.GetTransferDestInfo(context.Background(), receipt())
	require.NoError(err)
	require.Equal(connect.TransferRedeemed, info.State)
	require.Equal("0xbeef", info.ReceiveTx)
}
