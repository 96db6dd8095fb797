// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package connect

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestParseRoute(t *testing.T) {
	require := require.New(t)

	for _, r := range AllRoutes() {
		got, err := ParseRoute(r.String())
		require.NoError(err)
		require.Equal(r, got)
	}
	got, err := ParseRoute("NTTRELAY")
	require.NoError(err)
	require.Equal(RouteNttRelay, got)

	_, err = ParseRoute("portal")
	require.ErrorIs(err, ErrUnknownRoute)
	require.Equal("unknown", Route(200).String())
}

func TestRouteIsAutomatic(t *testing.T) {
	require := require.New(t)

	require.True(RouteMayan.IsAutomatic())
	require.True(RouteCCTPRelay.IsAutomatic())
	require.False(RouteBridge.IsAutomatic())
	require.False(RouteTBTC.IsAutomatic())
}

func TestTransferReceiptAdvance(t *testing.T) {
	tests := []struct {
		name  string
		from  TransferState
		to    TransferState
		ok    bool
		state TransferState
	}{
		{name: "sent", from: TransferCreated, to: TransferSent, ok: true, state: TransferSent},
		{name: "queued after sent", from: TransferSent, to: TransferQueued, ok: true, state: TransferQueued},
		{name: "queued needs sent", from: TransferCreated, to: TransferQueued, state: TransferCreated},
		{name: "redeemed is terminal", from: TransferRedeemed, to: TransferFailed, state: TransferRedeemed},
		{name: "same state", from: TransferQueued, to: TransferQueued, ok: true, state: TransferQueued},
		{name: "failed from queue", from: TransferQueued, to: TransferFailed, ok: true, state: TransferFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &TransferReceipt{State: tt.from}
			require.Equal(t, tt.ok, r.Advance(tt.to))
			require.Equal(t, tt.state, r.State)
		})
	}
}

func TestAsError(t *testing.T) {
	require := require.New(t)

	require.Nil(AsError(nil))

	wrapped := fmt.Errorf("%w: short buffer", ErrTruncatedPayload)
	ce := AsError(wrapped)
	require.Equal(CodeMalformedInput, ce.Code)
	require.ErrorIs(ce, ErrTruncatedPayload)
	require.Same(ce, AsError(fmt.Errorf("resume: %w", ce)))

	require.Equal(CodeAmbiguousRoute, AsError(ErrAmbiguousRoute).Code)
	require.Equal(CodeUnknown, AsError(errors.New("dial tcp: refused")).Code)
}

func TestAddUint64(t *testing.T) {
	require := require.New(t)

	sum, err := AddUint64(40, 2)
	require.NoError(err)
	require.Equal(uint64(42), sum)

	_, err = AddUint64(math.MaxUint64, 1)
	require.ErrorIs(err, ErrOverflow)
}

func TestEventTopic(t *testing.T) {
	require.Equal(t,
		common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"),
		EventTopic("Transfer(address,address,uint256)"),
	)
}

func TestBytesCodecCopies(t *testing.T) {
	require := require.New(t)

	in := []byte{1, 2, 3}
	out, err := BytesCodec.Unmarshal(in)
	require.NoError(err)
	in[0] = 9
	require.Equal([]byte{1, 2, 3}, out)
}
