// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package routes

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"testing"

	ethereum "github.com/luxfi/geth"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/chain"
	"github.com/luxfi/connect/config"
	"github.com/luxfi/connect/portico"
	"github.com/luxfi/connect/services"
)

const (
	ethereumPrefix byte = 0xe0
	arbitrumPrefix byte = 0xa0
)

// Contract slots of the synthetic deployments.
const (
	coreSlot byte = iota + 1
	tokenBridgeSlot
	relayerSlot
	wormholeRelayerSlot
	messengerSlot
	transmitterSlot
	integrationSlot
	porticoSlot
	gatewaySlot
	forwarderSlot

	wethSlot        byte = 0x21
	usdcSlot        byte = 0x22
	wSlot           byte = 0x23
	tbtcSlot        byte = 0x24
	arbETHSlot      byte = 0x25
	managerSlot     byte = 0x31
	transceiverSlot byte = 0x32
)

var (
	sender    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	recipient = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func contract(prefix, slot byte) common.Address {
	var a common.Address
	a[18] = prefix
	a[19] = slot
	return a
}

func contracts(prefix byte) config.ContractsConfig {
	return config.ContractsConfig{
		CoreBridge:              contract(prefix, coreSlot).Hex(),
		TokenBridge:             contract(prefix, tokenBridgeSlot).Hex(),
		Relayer:                 contract(prefix, relayerSlot).Hex(),
		WormholeRelayer:         contract(prefix, wormholeRelayerSlot).Hex(),
		CCTPTokenMessenger:      contract(prefix, messengerSlot).Hex(),
		CCTPMessageTransmitter:  contract(prefix, transmitterSlot).Hex(),
		CCTPWormholeIntegration: contract(prefix, integrationSlot).Hex(),
		Portico:                 contract(prefix, porticoSlot).Hex(),
		TBTCGateway:             contract(prefix, gatewaySlot).Hex(),
		MayanForwarder:          contract(prefix, forwarderSlot).Hex(),
	}
}

func testConfig(t *testing.T, routes ...string) *config.Config {
	return testConfigWith(t, nil, routes...)
}

// testConfigWith lets mutate adjust the fixture before it is validated.
func testConfigWith(t *testing.T, mutate func(*config.Config), routes ...string) *config.Config {
	if len(routes) == 0 {
		for _, r := range connect.AllRoutes() {
			routes = append(routes, r.String())
		}
	}
	eth, arb := contracts(ethereumPrefix), contracts(arbitrumPrefix)
	// tBTC is native to ethereum, which has no gateway.
	eth.TBTCGateway = ""
	ethDomain, arbDomain := uint32(0), uint32(3)

	foreign := func(slot byte) map[string]string {
		return map[string]string{"arbitrum": contract(arbitrumPrefix, slot).Hex()}
	}
	cfg := &config.Config{
		Routes: routes,
		Chains: map[string]*config.ChainConfig{
			"ethereum": {Platform: "evm", EVMChainID: 1, CCTPDomain: &ethDomain, GasToken: "eth", Contracts: eth},
			"arbitrum": {Platform: "evm", EVMChainID: 42161, CCTPDomain: &arbDomain, GasToken: "eth", Contracts: arb},
		},
		Tokens: map[string]*config.TokenConfig{
			"eth": {Symbol: "ETH", NativeChain: "ethereum", Decimals: 18, Wrapped: "weth", Relayable: true, CoingeckoID: "ethereum"},
			"weth": {
				Symbol: "WETH", NativeChain: "ethereum", Decimals: 18, Relayable: true, CoingeckoID: "weth",
				Address:       contract(ethereumPrefix, wethSlot).Hex(),
				ForeignAssets: foreign(wethSlot),
			},
			"usdc": {
				Symbol: "USDC", NativeChain: "ethereum", Decimals: 6, CCTP: true, CoingeckoID: "usd-coin",
				Address:       contract(ethereumPrefix, usdcSlot).Hex(),
				ForeignAssets: foreign(usdcSlot),
			},
			"w": {
				Symbol: "W", NativeChain: "ethereum", Decimals: 18,
				Address:       contract(ethereumPrefix, wSlot).Hex(),
				ForeignAssets: foreign(wSlot),
				Ntt: &config.NttConfig{
					Managers: map[string]string{
						"ethereum": contract(ethereumPrefix, managerSlot).Hex(),
						"arbitrum": contract(arbitrumPrefix, managerSlot).Hex(),
					},
					Transceivers: map[string]string{
						"ethereum": contract(ethereumPrefix, transceiverSlot).Hex(),
						"arbitrum": contract(arbitrumPrefix, transceiverSlot).Hex(),
					},
				},
			},
			"tbtc": {
				Symbol: "tBTC", NativeChain: "ethereum", Decimals: 18, TBTC: true,
				Address:       contract(ethereumPrefix, tbtcSlot).Hex(),
				ForeignAssets: foreign(tbtcSlot),
			},
		},
		Portico: map[string]*config.PorticoRouteConfig{
			"ethBridge": {CanonicalToken: "weth", Tokens: []string{"eth", "weth"}, FeeTier: 100, SlippageBps: 100},
		},
		Mayan: config.MayanConfig{Chains: []string{"ethereum", "arbitrum"}, Tokens: []string{"eth", "usdc"}},
	}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

type fakeClient struct {
	receipts map[common.Hash]*types.Receipt
}

func (*fakeClient) BlockNumber(context.Context) (uint64, error) {
	return 100, nil
}

func (*fakeClient) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (f *fakeClient) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

type fakeSigner struct {
	mu  sync.Mutex
	txs []*UnsignedTx
}

func (s *fakeSigner) SendTransaction(_ context.Context, tx *UnsignedTx) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return fmt.Sprintf("0x%064x", len(s.txs)), nil
}

type fakeRelayer struct {
	fee *big.Int
	err error
}

func (f *fakeRelayer) RelayerFee(context.Context, services.FeeQuery) (*big.Int, error) {
	return f.fee, f.err
}

type fakeMayan struct {
	quote *services.MayanQuote
	swap  *services.MayanSwap
}

func (f *fakeMayan) Quote(context.Context, services.MayanQuoteRequest) (*services.MayanQuote, error) {
	if f.quote == nil {
		return nil, services.ErrNotFound
	}
	return f.quote, nil
}

func (f *fakeMayan) Swap(context.Context, string) (*services.MayanSwap, error) {
	if f.swap == nil {
		return nil, services.ErrNotFound
	}
	return f.swap, nil
}

// fakeOrderService answers with the start() call the request asks for,
// checked like the real order client does.
type fakeOrderService struct {
	estimatedOut string
}

func (f *fakeOrderService) CreateOrder(_ context.Context, req *portico.CreateOrderRequest) (*portico.CreateOrderResponse, *portico.TradeParameters, error) {
	params, err := req.TradeParameters()
	if err != nil {
		return nil, nil, err
	}
	params.FlagSet.BridgeNonce = 7
	data, err := portico.EncodeStart(params)
	if err != nil {
		return nil, nil, err
	}
	value := "0"
	if req.ShouldWrapNative {
		value = req.StartingTokenAmount
	}
	resp := &portico.CreateOrderResponse{
		TransactionData:    hexutil.Encode(data),
		TransactionTarget:  req.PorticoAddress.Hex(),
		TransactionValue:   value,
		EstimatedAmountOut: f.estimatedOut,
	}
	validated, err := portico.ValidateCreateOrderResponse(resp, req)
	if err != nil {
		return nil, nil, err
	}
	return resp, validated, nil
}

func testDeps(client chain.Client) *Deps {
	return &Deps{
		Clients: chain.Clients{vaa.ChainIDEthereum: client, vaa.ChainIDArbitrum: client},
		Relayer: &fakeRelayer{fee: big.NewInt(1e16)},
		Mayan:   &fakeMayan{},
		Portico: &fakeOrderService{estimatedOut: "1490000000000000000"},
		Log:     log.NewNoOpLogger(),
	}
}

func word(v *big.Int) []byte {
	return common.BigToHash(v).Bytes()
}

func messagePublishedLog(core, emitter common.Address, seq uint64, payload []byte) *types.Log {
	var data []byte
	data = append(data, word(new(big.Int).SetUint64(seq))...)
	data = append(data, word(big.NewInt(0))...)
	data = append(data, word(big.NewInt(128))...)
	data = append(data, word(big.NewInt(1))...)
	data = append(data, word(big.NewInt(int64(len(payload))))...)
	padded := make([]byte, (len(payload)+31)/32*32)
	copy(padded, payload)
	data = append(data, padded...)
	return &types.Log{
		Address: core,
		Topics:  []common.Hash{chain.LogMessagePublishedTopic, common.BytesToHash(emitter.Bytes())},
		Data:    data,
	}
}

type transferFields struct {
	id          uint8
	amount      int64
	origin      common.Address
	originChain vaa.ChainID
	target      common.Address
	targetChain vaa.ChainID
	extra       []byte
	payload     []byte
}

func tokenBridgePayload(f transferFields) []byte {
	buf := []byte{f.id}
	buf = append(buf, word(big.NewInt(f.amount))...)
	origin := chain.FromEVM(f.origin)
	buf = append(buf, origin[:]...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(f.originChain))
	target := chain.FromEVM(f.target)
	buf = append(buf, target[:]...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(f.targetChain))
	if f.extra == nil {
		f.extra = make([]byte, 32)
	}
	buf = append(buf, f.extra...)
	return append(buf, f.payload...)
}

// tokenBridgeLog publishes a token bridge transfer from ethereum.
func tokenBridgeLog(f transferFields) *types.Log {
	return messagePublishedLog(
		contract(ethereumPrefix, coreSlot),
		contract(ethereumPrefix, tokenBridgeSlot),
		42,
		tokenBridgePayload(f),
	)
}

func depositForBurnLog(nonce uint64, amount int64, destDomain uint32) *types.Log {
	var data []byte
	data = append(data, word(big.NewInt(amount))...)
	to := chain.FromEVM(recipient)
	data = append(data, to[:]...)
	data = append(data, word(big.NewInt(int64(destDomain)))...)
	data = append(data, make([]byte, 64)...)
	return &types.Log{
		Address: contract(ethereumPrefix, messengerSlot),
		Topics: []common.Hash{
			chain.DepositForBurnTopic,
			common.BigToHash(new(big.Int).SetUint64(nonce)),
			common.BytesToHash(contract(ethereumPrefix, usdcSlot).Bytes()),
			common.BytesToHash(sender.Bytes()),
		},
		Data: data,
	}
}

func receiptWith(logs ...*types.Log) *types.Receipt {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, Logs: logs}
}
