// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
)

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestPriceClient(t *testing.T) {
	require := require.New(t)

	var calls atomic.Int32
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(pricePath, r.URL.Path)
		require.Equal("usd", r.URL.Query().Get("vs_currencies"))
		switch r.URL.Query().Get("ids") {
		case "ethereum":
			_, _ = w.Write([]byte(`{"ethereum":{"usd":3120.55}}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})
	c := NewPriceClient(server.URL, time.Minute, nil, log.NewTestLogger(log.InfoLevel))
	ctx := context.Background()

	price, err := c.USDPrice(ctx, "ethereum")
	require.NoError(err)
	require.True(decimal.RequireFromString("3120.55").Equal(price))

	_, err = c.USDPrice(ctx, "ethereum")
	require.NoError(err)
	require.Equal(int32(1), calls.Load())

	_, err = c.USDPrice(ctx, "unknown")
	require.ErrorIs(err, ErrNotFound)

	_, err = c.USDPrice(ctx, "")
	require.ErrorIs(err, ErrNotFound)
}

func TestRelayerClient(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		expected  string
		expectErr error
	}{
		{
			name:     "fee",
			status:   http.StatusOK,
			body:     `{"fee":"1500000"}`,
			expected: "1500000",
		},
		{
			name:      "negative fee",
			status:    http.StatusOK,
			body:      `{"fee":"-1"}`,
			expectErr: ErrBadResponse,
		},
		{
			name:      "not a number",
			status:    http.StatusOK,
			body:      `{"fee":"0x10"}`,
			expectErr: ErrBadResponse,
		},
		{
			name:      "server error",
			status:    http.StatusInternalServerError,
			body:      `{}`,
			expectErr: ErrBadResponse,
		},
		{
			name:      "unknown pair",
			status:    http.StatusNotFound,
			body:      `{}`,
			expectErr: ErrNotFound,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			server := serve(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(relayerFeePath, r.URL.Path)
				require.Equal("Relay", r.URL.Query().Get("route"))
				require.Equal("2", r.URL.Query().Get("sourceChain"))
				require.Equal("6", r.URL.Query().Get("targetChain"))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			})
			c := NewRelayerClient(server.URL, time.Minute)
			fee, err := c.RelayerFee(context.Background(), FeeQuery{
				Route:  connect.Relay,
				Source: vaa.ChainIDEthereum,
				Dest:   vaa.ChainIDAvalanche,
				Token:  "usdc",
			})
			require.ErrorIs(err, test.expectErr)
			if test.expectErr == nil {
				require.Equal(test.expected, fee.String())
			}
		})
	}
}

func TestGovernorClient(t *testing.T) {
	require := require.New(t)

	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case governorLimitsPath:
			_, _ = w.Write([]byte(`{"data":[
				{"chainId":2,"availableNotional":"1000000","notionalLimit":"5000000","maxTransactionSize":"250000"},
				{"chainId":5,"availableNotional":"100","notionalLimit":"5000000","maxTransactionSize":"0"}
			]}`))
		case governorTokensPath:
			_, _ = w.Write([]byte(`[{"originChainId":2,"originAddress":"0x000000000000000000000000a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := NewGovernorClient(server.URL)
	ctx := context.Background()

	tests := []struct {
		chain    vaa.ChainID
		usd      string
		expected bool
	}{
		{vaa.ChainIDEthereum, "1000", false},
		{vaa.ChainIDEthereum, "250001", true},
		{vaa.ChainIDPolygon, "100", false},
		{vaa.ChainIDPolygon, "100.01", true},
		{vaa.ChainIDSolana, "99999999", false},
	}
	for _, test := range tests {
		exceeds, err := c.ExceedsLimit(ctx, test.chain, decimal.RequireFromString(test.usd))
		require.NoError(err)
		require.Equal(test.expected, exceeds, "%s %s", test.chain, test.usd)
	}

	usdc, err := vaa.StringToAddress("000000000000000000000000a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	require.NoError(err)
	governed, err := c.IsGoverned(ctx, vaa.ChainIDEthereum, usdc)
	require.NoError(err)
	require.True(governed)

	governed, err = c.IsGoverned(ctx, vaa.ChainIDSolana, usdc)
	require.NoError(err)
	require.False(governed)
}

func TestExplorerClient(t *testing.T) {
	require := require.New(t)

	emitter, err := vaa.StringToAddress("0000000000000000000000003ee18b2214aff97000d974cf647e7c347e8fa585")
	require.NoError(err)
	signed := &vaa.VAA{
		Version:          vaa.SupportedVAAVersion,
		Timestamp:        time.Unix(1700000000, 0),
		Nonce:            7,
		Sequence:         42,
		ConsistencyLevel: 1,
		EmitterChain:     vaa.ChainIDEthereum,
		EmitterAddress:   emitter,
		Payload:          []byte{0x01, 0x02},
	}
	raw, err := signed.Marshal()
	require.NoError(err)

	var calls atomic.Int32
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/api/v1/vaas/2/" + emitter.String() + "/42":
			writeJSON(w, map[string]any{"data": map[string]any{"vaa": raw}})
		case "/api/v1/vaas/2/" + emitter.String() + "/43":
			// Points at another message.
			writeJSON(w, map[string]any{"data": map[string]any{"vaa": raw}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := NewExplorerClient(server.URL)
	ctx := context.Background()

	id := MessageID{Chain: vaa.ChainIDEthereum, Emitter: emitter, Sequence: 42}
	v, err := c.SignedVAA(ctx, id)
	require.NoError(err)
	require.NotNil(v)
	require.Equal(uint64(42), v.Sequence)
	require.Equal([]byte{0x01, 0x02}, v.Payload)

	_, err = c.SignedVAA(ctx, id)
	require.NoError(err)
	require.Equal(int32(1), calls.Load())

	v, err = c.SignedVAA(ctx, MessageID{Chain: vaa.ChainIDEthereum, Emitter: emitter, Sequence: 44})
	require.NoError(err)
	require.Nil(v)

	_, err = c.SignedVAA(ctx, MessageID{Chain: vaa.ChainIDEthereum, Emitter: emitter, Sequence: 43})
	require.ErrorIs(err, ErrBadResponse)
}

func TestMayanClient(t *testing.T) {
	require := require.New(t)

	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case mayanQuotePath:
			require.Equal("1.5", r.URL.Query().Get("amountIn"))
			require.Equal("100", r.URL.Query().Get("slippageBps"))
			_, _ = w.Write([]byte(`[
				{"type":"SWIFT","expectedAmountOut":"4600.1","minAmountOut":"4550","etaSeconds":20},
				{"type":"WH","expectedAmountOut":"4610.5","minAmountOut":"4560","etaSeconds":900}
			]`))
		case mayanStatusPath + "0xabc":
			_, _ = w.Write([]byte(`{"sourceTxHash":"0xabc","clientStatus":"COMPLETED","redeemTxHash":"0xdef"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := NewMayanClient(server.URL)
	ctx := context.Background()

	quote, err := c.Quote(ctx, MayanQuoteRequest{
		FromChain:   "ethereum",
		ToChain:     "solana",
		FromToken:   "0x0000000000000000000000000000000000000000",
		ToToken:     "So11111111111111111111111111111111111111112",
		AmountIn:    decimal.RequireFromString("1.5"),
		SlippageBps: 100,
	})
	require.NoError(err)
	require.Equal("WH", quote.Type)
	require.True(decimal.RequireFromString("4610.5").Equal(quote.ExpectedAmountOut))

	_, err = c.Quote(ctx, MayanQuoteRequest{AmountIn: decimal.Zero})
	require.Error(err)

	swap, err := c.Swap(ctx, "0xabc")
	require.NoError(err)
	require.Equal(MayanStatusCompleted, swap.ClientStatus)
	require.Equal("0xdef", swap.DestTxHash())

	_, err = c.Swap(ctx, "0xmissing")
	require.ErrorIs(err, ErrNotFound)
}
