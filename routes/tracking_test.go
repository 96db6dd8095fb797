// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"context"
	"math/big"
	"testing"

	ethereum "github.com/luxfi/geth"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/ids"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/chain"
	"github.com/luxfi/connect/services"
)

// logClient serves logs to the scanner, filtered by address and first topic.
type logClient struct {
	fakeClient
	logs []types.Log
}

func (c *logClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var out []types.Log
	for _, l := range c.logs {
		if l.BlockNumber < q.FromBlock.Uint64() || l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && l.Address != q.Addresses[0] {
			continue
		}
		if len(q.Topics) > 0 && len(l.Topics) > 0 && l.Topics[0] != q.Topics[0][0] {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

type fakePrices map[string]decimal.Decimal

func (p fakePrices) USDPrice(_ context.Context, id string) (decimal.Decimal, error) {
	v, ok := p[id]
	if !ok {
		return decimal.Zero, services.ErrNotFound
	}
	return v, nil
}

type fakeGovernor struct {
	exceeds bool
}

func (g *fakeGovernor) ExceedsLimit(context.Context, vaa.ChainID, decimal.Decimal) (bool, error) {
	return g.exceeds, nil
}

func (*fakeGovernor) IsGoverned(context.Context, vaa.ChainID, vaa.Address) (bool, error) {
	return false, nil
}

func bridgeReceipt() *connect.TransferReceipt {
	return &connect.TransferReceipt{
		Route:       connect.RouteBridge,
		State:       connect.TransferSent,
		SourceChain: vaa.ChainIDEthereum,
		DestChain:   vaa.ChainIDArbitrum,
		SourceTx:    common.HexToHash("0x01").Hex(),
		Recipient:   recipient.Hex(),
		TokenKey:    "weth",
		Amount:      big.NewInt(15e17),
		Emitter:     chain.FromEVM(contract(ethereumPrefix, tokenBridgeSlot)),
		Sequence:    42,
	}
}

func redeemedLog(emitterChain vaa.ChainID, emitter vaa.Address, seq uint64, block uint64, tx string) types.Log {
	return types.Log{
		Address: contract(arbitrumPrefix, tokenBridgeSlot),
		Topics: []common.Hash{
			chain.TokenBridgeRedeemedTopic,
			common.BigToHash(big.NewInt(int64(emitterChain))),
			common.Hash(emitter),
			common.BigToHash(new(big.Int).SetUint64(seq)),
		},
		BlockNumber: block,
		TxHash:      common.HexToHash(tx),
	}
}

func TestBridgeRedeemTx(t *testing.T) {
	r := bridgeReceipt()
	tests := []struct {
		name   string
		logs   []types.Log
		wantTx string
		state  connect.TransferState
	}{
		{
			name:  "not redeemed",
			state: connect.TransferSent,
		},
		{
			name: "other sequence",
			logs: []types.Log{
				redeemedLog(vaa.ChainIDEthereum, r.Emitter, 41, 90, "0xaa"),
			},
			state: connect.TransferSent,
		},
		{
			name: "redeemed",
			logs: []types.Log{
				redeemedLog(vaa.ChainIDEthereum, r.Emitter, 41, 80, "0xaa"),
				redeemedLog(vaa.ChainIDEthereum, r.Emitter, 42, 90, "0xbb"),
			},
			wantTx: common.HexToHash("0xbb").Hex(),
			state:  connect.TransferRedeemed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			route := NewBridgeRoute(testConfig(t), testDeps(&logClient{logs: tt.logs}))
			receipt := bridgeReceipt()

			tx, err := route.TryFetchRedeemTx(context.Background(), receipt)
			require.NoError(err)
			require.Equal(tt.wantTx, tx)

			info, err := route.GetTransferDestInfo(context.Background(), receipt)
			require.NoError(err)
			require.Equal(tt.state, info.State)
			require.Equal(tt.state, receipt.State)
			require.Equal(tt.wantTx, info.ReceiveTx)
			require.Contains(info.DisplayData, connect.DisplayRow{Title: "Destination chain", Value: "arbitrum"})
		})
	}
}

func TestNttQueuedTransfer(t *testing.T) {
	require := require.New(t)

	digest := common.HexToHash("0x5eed")
	queued := types.Log{
		Address:     contract(arbitrumPrefix, managerSlot),
		Topics:      []common.Hash{chain.NttInboundTransferQueuedTopic},
		Data:        digest.Bytes(),
		BlockNumber: 99,
	}
	route := NewNttManualRoute(testConfig(t), testDeps(&logClient{logs: []types.Log{queued}}))
	receipt := &connect.TransferReceipt{
		Route:       connect.RouteNttManual,
		State:       connect.TransferSent,
		SourceChain: vaa.ChainIDEthereum,
		DestChain:   vaa.ChainIDArbitrum,
		TokenKey:    "w",
		MessageID:   ids.ID(digest),
	}

	info, err := route.GetTransferDestInfo(context.Background(), receipt)
	require.NoError(err)
	require.Equal(connect.TransferQueued, info.State)
	require.Empty(info.ReceiveTx)

	redeemed := types.Log{
		Address:     contract(arbitrumPrefix, managerSlot),
		Topics:      []common.Hash{chain.NttTransferRedeemedTopic, digest},
		BlockNumber: 100,
		TxHash:      common.HexToHash("0xcc"),
	}
	route = NewNttManualRoute(testConfig(t), testDeps(&logClient{logs: []types.Log{queued, redeemed}}))
	info, err = route.GetTransferDestInfo(context.Background(), receipt)
	require.NoError(err)
	require.Equal(connect.TransferRedeemed, info.State)
	require.Equal(common.HexToHash("0xcc").Hex(), info.ReceiveTx)
}

func TestGetPreview(t *testing.T) {
	require := require.New(t)

	deps := testDeps(&fakeClient{})
	deps.Prices = fakePrices{"weth": decimal.NewFromInt(3000)}
	deps.Governor = &fakeGovernor{exceeds: true}
	route := NewRelayRoute(testConfig(t), deps)

	req := transferRequest("weth", "weth", "1.5", vaa.ChainIDEthereum, vaa.ChainIDArbitrum)
	_, err := route.GetPreview(context.Background(), req)
	require.ErrorIs(err, connect.ErrMissingLiveData)

	require.NoError(route.FetchQuoteData(context.Background(), req))
	rows, err := route.GetPreview(context.Background(), req)
	require.NoError(err)
	require.Equal(connect.TransferDisplayData{
		{Title: "Amount", Value: "1.5 WETH", ValueUSD: "$4500.00"},
		{Title: "Relayer fee", Value: "0.01 WETH", ValueUSD: "$30.00"},
		{Title: "Receive amount", Value: "1.49 WETH", ValueUSD: "$4470.00"},
		{Title: "Governor", Value: "transfer " + governorDelayNote},
	}, rows)
}

func TestGetTransferSourceInfo(t *testing.T) {
	require := require.New(t)

	route := NewRelayRoute(testConfig(t), testDeps(&fakeClient{}))
	receipt := bridgeReceipt()
	receipt.Route = connect.RouteRelay
	receipt.Sender = sender.Hex()
	receipt.RelayerFee = big.NewInt(1e16)

	rows, err := route.GetTransferSourceInfo(context.Background(), receipt)
	require.NoError(err)
	require.Equal(connect.TransferDisplayData{
		{Title: "Source chain", Value: "ethereum"},
		{Title: "Transaction", Value: receipt.SourceTx},
		{Title: "Sender", Value: sender.Hex()},
		{Title: "Amount", Value: "1.5 WETH"},
		{Title: "Relayer fee", Value: "0.01 WETH"},
	}, rows)
}

func TestNativeGasDropOff(t *testing.T) {
	require := require.New(t)

	deps := testDeps(&fakeClient{})
	deps.Prices = fakePrices{
		"weth":     decimal.NewFromInt(3000),
		"ethereum": decimal.NewFromInt(2000),
	}
	cfg := testConfig(t)
	req := transferRequest("weth", "weth", "1.5", vaa.ChainIDEthereum, vaa.ChainIDArbitrum)
	req.ToNativeToken = "0.1"

	gas, err := NewRelayRoute(cfg, deps).NativeGasDropOff(context.Background(), req)
	require.NoError(err)
	require.True(decimal.RequireFromString("0.15").Equal(gas), gas.String())

	_, err = NewBridgeRoute(cfg, deps).NativeGasDropOff(context.Background(), req)
	require.ErrorIs(err, connect.ErrNotSupported)

	deps.Prices = fakePrices{}
	_, err = NewRelayRoute(cfg, deps).NativeGasDropOff(context.Background(), req)
	require.ErrorIs(err, connect.ErrMissingLiveData)
}

func TestGetForeignAsset(t *testing.T) {
	require := require.New(t)

	route := NewBridgeRoute(testConfig(t), testDeps(&fakeClient{}))

	addr, err := route.GetForeignAsset("usdc", vaa.ChainIDArbitrum)
	require.NoError(err)
	require.Equal(contract(arbitrumPrefix, usdcSlot).Hex(), addr)

	addr, err = route.GetForeignAsset("eth", vaa.ChainIDEthereum)
	require.NoError(err)
	require.Empty(addr)

	_, err = route.GetForeignAsset("eth", vaa.ChainIDArbitrum)
	require.ErrorIs(err, connect.ErrNotSupported)

	_, err = route.GetForeignAsset("doge", vaa.ChainIDArbitrum)
	require.ErrorIs(err, connect.ErrInvalidRequest)
}

func TestSupportedTokens(t *testing.T) {
	cfg := testConfig(t)
	deps := testDeps(&fakeClient{})
	eth, arb := vaa.ChainIDEthereum, vaa.ChainIDArbitrum
	tests := []struct {
		name  string
		route Strategy
		token string
		want  bool
	}{
		{name: "bridge usdc", route: NewBridgeRoute(cfg, deps), token: "usdc", want: true},
		{name: "relay needs relayable", route: NewRelayRoute(cfg, deps), token: "usdc"},
		{name: "relay weth", route: NewRelayRoute(cfg, deps), token: "weth", want: true},
		{name: "cctp usdc", route: NewCCTPManualRoute(cfg, deps), token: "usdc", want: true},
		{name: "cctp weth", route: NewCCTPManualRoute(cfg, deps), token: "weth"},
		{name: "ntt w", route: NewNttManualRoute(cfg, deps), token: "w", want: true},
		{name: "ntt usdc", route: NewNttManualRoute(cfg, deps), token: "usdc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			require.True(tt.route.IsSupportedChain(eth))
			require.Equal(tt.want, tt.route.IsSupportedSourceToken(tt.token, tt.token, eth, arb))
			require.Equal(tt.want, tt.route.IsSupportedDestToken(tt.token, tt.token, eth, arb))
		})
	}
}
