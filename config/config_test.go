// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
)

const testConfig = `{
  "network": "testnet",
  "chains": {
    "ethereum": {
      "platform": "evm",
      "rpc": "http://localhost:8545",
      "evm-chain-id": 1,
      "cctp-domain": 0,
      "gas-token": "ETH",
      "contracts": {
        "core-bridge": "0x98f3c9e6E3fAce36bAAd05FE09d375Ef1464288B",
        "token-bridge": "0x3ee18B2214AFF97000D974cf647E7C347E8fa585"
      }
    },
    "solana": {
      "platform": "solana",
      "contracts": {
        "core-bridge": "worm2ZoG2kUd4vFXhvjh93UUH596ayRfgQ2MgjNMTth"
      }
    },
    "23": {
      "platform": "evm",
      "max-block-search": 500
    }
  },
  "tokens": {
    "ETH": {"symbol": "ETH", "native-chain": "ethereum", "decimals": 18, "wrapped": "WETH"},
    "WETH": {
      "symbol": "WETH",
      "native-chain": "ethereum",
      "address": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
      "decimals": 18,
      "decimals-by-chain": {"solana": 8},
      "foreign-assets": {"solana": "7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs"}
    }
  },
  "portico": {
    "ethBridge": {"canonical-token": "WETH", "tokens": ["ETH", "WETH"], "fee-tier": 100}
  },
  "services": {"price-ttl": "90s"}
}`

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func loadConfig(t *testing.T, args ...string) (*Config, error) {
	fs := BuildFlagSet()
	require.NoError(t, fs.Parse(args))
	v, err := BuildViper(fs)
	require.NoError(t, err)
	return NewConfig(v)
}

func TestNewConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := loadConfig(t, "--"+ConfigFileKey, writeConfig(t, testConfig))
	require.NoError(err)

	require.Equal("testnet", cfg.Network)
	require.Equal(connect.AllRoutes(), cfg.EnabledRoutes())
	require.Equal(uint64(defaultMaxBlockSearch), cfg.MaxBlockSearch)
	require.Equal(90*time.Second, cfg.Services.PriceTTL)
	require.Equal(defaultRelayerFeeTTL, cfg.Services.RelayerFeeTTL)
	require.Equal([]vaa.ChainID{vaa.ChainIDSolana, vaa.ChainIDEthereum, vaa.ChainIDArbitrum}, cfg.ChainIDs())

	eth, ok := cfg.Chain(vaa.ChainIDEthereum)
	require.True(ok)
	require.True(eth.IsEVM())
	require.NotNil(eth.CCTPDomain)
	require.Equal(uint32(0), *eth.CCTPDomain)
	_, ok = eth.EVMContract(eth.Contracts.TokenBridge)
	require.True(ok)
	_, ok = eth.EVMContract(eth.Contracts.Portico)
	require.False(ok)

	arb, ok := cfg.ChainByName("arbitrum")
	require.True(ok)
	require.Equal(uint64(500), arb.MaxBlockSearch)
	require.Equal(uint64(defaultMaxBlockSearch), eth.MaxBlockSearch)

	weth, ok := cfg.Token("weth")
	require.True(ok)
	require.Equal(uint8(18), weth.DecimalsOn(vaa.ChainIDEthereum))
	require.Equal(uint8(8), weth.DecimalsOn(vaa.ChainIDSolana))
	addr, ok := weth.AddressOn(vaa.ChainIDSolana)
	require.True(ok)
	require.Equal("7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs", addr)
	_, ok = weth.AddressOn(vaa.ChainIDArbitrum)
	require.False(ok)

	found, ok := cfg.TokenByAddress(vaa.ChainIDEthereum, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	require.True(ok)
	require.Equal(weth, found)

	eth2, ok := cfg.Token("ETH")
	require.True(ok)
	require.True(eth2.IsNative())

	pc, ok := cfg.PorticoRoute(connect.RouteETHBridge)
	require.True(ok)
	require.Equal(uint32(defaultSlippageBps), pc.SlippageBps)
}

func TestNewConfigRoutesFlag(t *testing.T) {
	require := require.New(t)

	cfg, err := loadConfig(t,
		"--"+ConfigFileKey, writeConfig(t, testConfig),
		"--"+RoutesKey, "bridge,cctpManual",
	)
	require.NoError(err)
	require.Equal([]connect.Route{connect.RouteBridge, connect.RouteCCTPManual}, cfg.EnabledRoutes())
	require.True(cfg.RouteEnabled(connect.RouteBridge))
	require.False(cfg.RouteEnabled(connect.RouteRelay))
}

func TestNewConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		args []string
	}{
		{
			name: "unknown route",
			body: `{"chains": {}}`,
			args: []string{"--" + RoutesKey, "teleport"},
		},
		{
			name: "unknown chain",
			body: `{"chains": {"atlantis": {"platform": "evm"}}}`,
		},
		{
			name: "unknown platform",
			body: `{"chains": {"ethereum": {"platform": "cosmos"}}}`,
		},
		{
			name: "bad contract address",
			body: `{"chains": {"ethereum": {"platform": "evm", "contracts": {"portico": "0x1234"}}}}`,
		},
		{
			name: "token on unknown chain",
			body: `{"chains": {"ethereum": {"platform": "evm"}}, "tokens": {"usdc": {"native-chain": "base", "decimals": 6}}}`,
		},
		{
			name: "foreign asset on unconfigured chain",
			body: `{"chains": {"ethereum": {"platform": "evm"}}, "tokens": {"eth": {"native-chain": "ethereum", "decimals": 18, "foreign-assets": {"solana": "x"}}}}`,
		},
		{
			name: "portico canonical token missing",
			body: `{"chains": {}, "portico": {"ethBridge": {"canonical-token": "weth"}}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--" + ConfigFileKey, writeConfig(t, tt.body)}, tt.args...)
			_, err := loadConfig(t, args...)
			require.ErrorIs(t, err, errInvalidConfig)
		})
	}
}

func TestBuildViperRequiresConfigFile(t *testing.T) {
	_, err := BuildViper(BuildFlagSet())
	require.Error(t, err)
}
