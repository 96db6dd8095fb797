// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/math/set"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect"
	"github.com/luxfi/connect/chain"
)

const (
	defaultNetwork        = "mainnet"
	defaultLogLevel       = "info"
	defaultMaxBlockSearch = chain.DefaultMaxBlockSearch
	defaultPriceTTL       = 60 * time.Second
	defaultRelayerFeeTTL  = 30 * time.Second
	defaultSlippageBps    = 100

	maxDecimals = 36
)

var errInvalidConfig = errors.New("invalid configuration")

// Config is built once at start-up and passed by pointer to every component.
// It must not be mutated after Validate.
type Config struct {
	Network        string                         `mapstructure:"network" json:"network"`
	LogLevel       string                         `mapstructure:"log-level" json:"log-level"`
	Routes         []string                       `mapstructure:"routes" json:"routes"`
	MaxBlockSearch uint64                         `mapstructure:"max-block-search" json:"max-block-search"`
	Chains         map[string]*ChainConfig        `mapstructure:"chains" json:"chains"`
	Tokens         map[string]*TokenConfig        `mapstructure:"tokens" json:"tokens"`
	Portico        map[string]*PorticoRouteConfig `mapstructure:"portico" json:"portico"`
	Mayan          MayanConfig                    `mapstructure:"mayan" json:"mayan"`
	Services       ServicesConfig                 `mapstructure:"services" json:"services"`

	routes   set.Set[connect.Route]
	chainIDs map[vaa.ChainID]*ChainConfig
	portico  map[connect.Route]*PorticoRouteConfig
}

// ChainConfig describes one chain and the contracts deployed on it
type ChainConfig struct {
	Platform       string          `mapstructure:"platform" json:"platform"`
	RPC            string          `mapstructure:"rpc" json:"rpc"`
	EVMChainID     uint64          `mapstructure:"evm-chain-id" json:"evm-chain-id"`
	MaxBlockSearch uint64          `mapstructure:"max-block-search" json:"max-block-search"`
	CCTPDomain     *uint32         `mapstructure:"cctp-domain" json:"cctp-domain"`
	GasToken       string          `mapstructure:"gas-token" json:"gas-token"`
	Contracts      ContractsConfig `mapstructure:"contracts" json:"contracts"`

	Name     string         `mapstructure:"-" json:"-"`
	ID       vaa.ChainID    `mapstructure:"-" json:"-"`
	platform chain.Platform `mapstructure:"-"`
}

// ContractsConfig holds contract addresses in the chain's native format.
// Empty means not deployed.
type ContractsConfig struct {
	CoreBridge              string `mapstructure:"core-bridge" json:"core-bridge"`
	TokenBridge             string `mapstructure:"token-bridge" json:"token-bridge"`
	Relayer                 string `mapstructure:"relayer" json:"relayer"`
	WormholeRelayer         string `mapstructure:"wormhole-relayer" json:"wormhole-relayer"`
	CCTPTokenMessenger      string `mapstructure:"cctp-token-messenger" json:"cctp-token-messenger"`
	CCTPMessageTransmitter  string `mapstructure:"cctp-message-transmitter" json:"cctp-message-transmitter"`
	CCTPWormholeIntegration string `mapstructure:"cctp-wormhole-integration" json:"cctp-wormhole-integration"`
	Portico                 string `mapstructure:"portico" json:"portico"`
	TBTCGateway             string `mapstructure:"tbtc-gateway" json:"tbtc-gateway"`
	MayanForwarder          string `mapstructure:"mayan-forwarder" json:"mayan-forwarder"`
}

func (c ContractsConfig) all() map[string]string {
	return map[string]string{
		"core-bridge":               c.CoreBridge,
		"token-bridge":              c.TokenBridge,
		"relayer":                   c.Relayer,
		"wormhole-relayer":          c.WormholeRelayer,
		"cctp-token-messenger":      c.CCTPTokenMessenger,
		"cctp-message-transmitter":  c.CCTPMessageTransmitter,
		"cctp-wormhole-integration": c.CCTPWormholeIntegration,
		"portico":                   c.Portico,
		"tbtc-gateway":              c.TBTCGateway,
		"mayan-forwarder":           c.MayanForwarder,
	}
}

// TokenConfig describes a token and where it exists
type TokenConfig struct {
	Symbol          string            `mapstructure:"symbol" json:"symbol"`
	NativeChain     string            `mapstructure:"native-chain" json:"native-chain"`
	Address         string            `mapstructure:"address" json:"address"`
	Decimals        uint8             `mapstructure:"decimals" json:"decimals"`
	DecimalsByChain map[string]uint8  `mapstructure:"decimals-by-chain" json:"decimals-by-chain"`
	ForeignAssets   map[string]string `mapstructure:"foreign-assets" json:"foreign-assets"`
	CoingeckoID     string            `mapstructure:"coingecko-id" json:"coingecko-id"`
	Wrapped         string            `mapstructure:"wrapped" json:"wrapped"`
	CCTP            bool              `mapstructure:"cctp" json:"cctp"`
	TBTC            bool              `mapstructure:"tbtc" json:"tbtc"`
	Relayable       bool              `mapstructure:"relayable" json:"relayable"`
	Ntt             *NttConfig        `mapstructure:"ntt" json:"ntt"`

	Key         string      `mapstructure:"-" json:"-"`
	NativeID    vaa.ChainID `mapstructure:"-" json:"-"`
	decimals    map[vaa.ChainID]uint8
	foreign     map[vaa.ChainID]string
	nttManagers map[vaa.ChainID]string
	nttXcvrs    map[vaa.ChainID]string
}

// NttConfig lists the NTT manager and wormhole transceiver per chain name
type NttConfig struct {
	Managers     map[string]string `mapstructure:"managers" json:"managers"`
	Transceivers map[string]string `mapstructure:"transceivers" json:"transceivers"`
}

// PorticoRouteConfig configures one Portico route
type PorticoRouteConfig struct {
	CanonicalToken string   `mapstructure:"canonical-token" json:"canonical-token"`
	Tokens         []string `mapstructure:"tokens" json:"tokens"`
	FeeTier        uint32   `mapstructure:"fee-tier" json:"fee-tier"`
	SlippageBps    uint32   `mapstructure:"slippage-bps" json:"slippage-bps"`
}

// MayanConfig configures the Mayan route
type MayanConfig struct {
	Chains      []string `mapstructure:"chains" json:"chains"`
	Tokens      []string `mapstructure:"tokens" json:"tokens"`
	SlippageBps uint32   `mapstructure:"slippage-bps" json:"slippage-bps"`

	chains set.Set[vaa.ChainID]
}

// ServicesConfig holds the REST endpoints consumed by the routes
type ServicesConfig struct {
	PriceURL      string        `mapstructure:"price-url" json:"price-url"`
	RelayerURL    string        `mapstructure:"relayer-url" json:"relayer-url"`
	PorticoURL    string        `mapstructure:"portico-url" json:"portico-url"`
	GovernorURL   string        `mapstructure:"governor-url" json:"governor-url"`
	ExplorerURL   string        `mapstructure:"explorer-url" json:"explorer-url"`
	MayanURL      string        `mapstructure:"mayan-url" json:"mayan-url"`
	RedisURL      string        `mapstructure:"redis-url" json:"redis-url"`
	PriceTTL      time.Duration `mapstructure:"price-ttl" json:"price-ttl"`
	RelayerFeeTTL time.Duration `mapstructure:"relayer-fee-ttl" json:"relayer-fee-ttl"`
}

// Validate resolves chain names and route names and checks addresses. It
// must be called once before the config is used.
func (c *Config) Validate() error {
	if c.MaxBlockSearch == 0 {
		c.MaxBlockSearch = defaultMaxBlockSearch
	}
	if c.Services.PriceTTL == 0 {
		c.Services.PriceTTL = defaultPriceTTL
	}
	if c.Services.RelayerFeeTTL == 0 {
		c.Services.RelayerFeeTTL = defaultRelayerFeeTTL
	}

	c.routes = set.NewSet[connect.Route](len(c.Routes))
	for _, name := range c.Routes {
		r, err := connect.ParseRoute(name)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidConfig, err)
		}
		c.routes.Add(r)
	}

	c.chainIDs = make(map[vaa.ChainID]*ChainConfig, len(c.Chains))
	for name, cc := range c.Chains {
		if err := c.validateChain(name, cc); err != nil {
			return err
		}
	}
	tokens := make(map[string]*TokenConfig, len(c.Tokens))
	for key, tc := range c.Tokens {
		tokens[strings.ToLower(key)] = tc
	}
	c.Tokens = tokens
	for key, tc := range c.Tokens {
		if err := c.validateToken(key, tc); err != nil {
			return err
		}
	}

	c.portico = make(map[connect.Route]*PorticoRouteConfig, len(c.Portico))
	for name, pc := range c.Portico {
		r, err := connect.ParseRoute(name)
		if err != nil {
			return fmt.Errorf("%w: portico: %w", errInvalidConfig, err)
		}
		if pc == nil {
			return fmt.Errorf("%w: portico %s is empty", errInvalidConfig, name)
		}
		if _, ok := c.Token(pc.CanonicalToken); !ok {
			return fmt.Errorf("%w: portico %s: unknown canonical token %q", errInvalidConfig, name, pc.CanonicalToken)
		}
		if pc.SlippageBps == 0 {
			pc.SlippageBps = defaultSlippageBps
		}
		c.portico[r] = pc
	}
	if c.Mayan.SlippageBps == 0 {
		c.Mayan.SlippageBps = defaultSlippageBps
	}
	c.Mayan.chains = set.NewSet[vaa.ChainID](len(c.Mayan.Chains))
	for _, name := range c.Mayan.Chains {
		id, err := chain.ParseChain(name)
		if err != nil {
			return fmt.Errorf("%w: mayan: %w", errInvalidConfig, err)
		}
		c.Mayan.chains.Add(id)
	}
	return nil
}

func (c *Config) validateChain(name string, cc *ChainConfig) error {
	if cc == nil {
		return fmt.Errorf("%w: chain %q is empty", errInvalidConfig, name)
	}
	id, err := chain.ParseChain(name)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	if _, dup := c.chainIDs[id]; dup {
		return fmt.Errorf("%w: chain %s configured twice", errInvalidConfig, id)
	}
	platform, err := chain.ParsePlatform(cc.Platform)
	if err != nil {
		return fmt.Errorf("%w: chain %s: %w", errInvalidConfig, name, err)
	}
	for contract, addr := range cc.Contracts.all() {
		if addr == "" {
			continue
		}
		if _, err := chain.UniversalAddress(platform, addr); err != nil {
			return fmt.Errorf("%w: chain %s contract %s: %w", errInvalidConfig, name, contract, err)
		}
	}
	cc.Name = strings.ToLower(name)
	cc.ID = id
	cc.platform = platform
	if cc.MaxBlockSearch == 0 {
		cc.MaxBlockSearch = c.MaxBlockSearch
	}
	c.chainIDs[id] = cc
	return nil
}

func (c *Config) validateToken(key string, tc *TokenConfig) error {
	if tc == nil {
		return fmt.Errorf("%w: token %q is empty", errInvalidConfig, key)
	}
	tc.Key = key
	native, ok := c.ChainByName(tc.NativeChain)
	if !ok {
		return fmt.Errorf("%w: token %s: unknown native chain %q", errInvalidConfig, key, tc.NativeChain)
	}
	if tc.Decimals > maxDecimals {
		return fmt.Errorf("%w: token %s: %d decimals", errInvalidConfig, key, tc.Decimals)
	}
	if tc.Address != "" {
		if _, err := chain.UniversalAddress(native.platform, tc.Address); err != nil {
			return fmt.Errorf("%w: token %s: %w", errInvalidConfig, key, err)
		}
	}
	tc.NativeID = native.ID

	resolve := func(what string, in map[string]string, check bool) (map[vaa.ChainID]string, error) {
		out := make(map[vaa.ChainID]string, len(in))
		for name, addr := range in {
			cc, ok := c.ChainByName(name)
			if !ok {
				return nil, fmt.Errorf("%w: token %s %s: unknown chain %q", errInvalidConfig, key, what, name)
			}
			if check {
				if _, err := chain.UniversalAddress(cc.platform, addr); err != nil {
					return nil, fmt.Errorf("%w: token %s %s on %s: %w", errInvalidConfig, key, what, name, err)
				}
			}
			out[cc.ID] = addr
		}
		return out, nil
	}

	var err error
	if tc.foreign, err = resolve("foreign asset", tc.ForeignAssets, true); err != nil {
		return err
	}
	tc.decimals = make(map[vaa.ChainID]uint8, len(tc.DecimalsByChain))
	for name, d := range tc.DecimalsByChain {
		cc, ok := c.ChainByName(name)
		if !ok {
			return fmt.Errorf("%w: token %s decimals: unknown chain %q", errInvalidConfig, key, name)
		}
		tc.decimals[cc.ID] = d
	}
	if tc.Ntt != nil {
		if tc.nttManagers, err = resolve("ntt manager", tc.Ntt.Managers, true); err != nil {
			return err
		}
		if tc.nttXcvrs, err = resolve("ntt transceiver", tc.Ntt.Transceivers, true); err != nil {
			return err
		}
	}
	return nil
}

// RouteEnabled reports whether r is in the whitelist.
func (c *Config) RouteEnabled(r connect.Route) bool {
	return c.routes.Contains(r)
}

// EnabledRoutes lists the whitelisted routes in declaration order.
func (c *Config) EnabledRoutes() []connect.Route {
	var out []connect.Route
	for _, r := range connect.AllRoutes() {
		if c.routes.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

// Chain returns the configuration of id.
func (c *Config) Chain(id vaa.ChainID) (*ChainConfig, bool) {
	cc, ok := c.chainIDs[id]
	return cc, ok
}

// ChainByName accepts a chain name or numeric id.
func (c *Config) ChainByName(s string) (*ChainConfig, bool) {
	id, err := chain.ParseChain(s)
	if err != nil {
		return nil, false
	}
	return c.Chain(id)
}

// ChainIDs returns the configured chains in ascending id order.
func (c *Config) ChainIDs() []vaa.ChainID {
	out := make([]vaa.ChainID, 0, len(c.chainIDs))
	for id := range c.chainIDs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Token looks up a token by key, case-insensitively.
func (c *Config) Token(key string) (*TokenConfig, bool) {
	tc, ok := c.Tokens[strings.ToLower(key)]
	return tc, ok
}

// TokenList returns every token sorted by key.
func (c *Config) TokenList() []*TokenConfig {
	out := make([]*TokenConfig, 0, len(c.Tokens))
	for _, tc := range c.Tokens {
		out = append(out, tc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// TokenByAddress finds the token whose native or foreign address on id is addr.
func (c *Config) TokenByAddress(id vaa.ChainID, addr string) (*TokenConfig, bool) {
	for _, tc := range c.TokenList() {
		if a, ok := tc.AddressOn(id); ok && strings.EqualFold(a, addr) {
			return tc, true
		}
	}
	return nil, false
}

// PorticoRoute returns the configuration of a Portico route.
func (c *Config) PorticoRoute(r connect.Route) (*PorticoRouteConfig, bool) {
	pc, ok := c.portico[r]
	return pc, ok
}

// MayanChain reports whether Mayan serves id.
func (c *Config) MayanChain(id vaa.ChainID) bool {
	return c.Mayan.chains.Contains(id)
}

// PlatformKind is the resolved platform of the chain
func (cc *ChainConfig) PlatformKind() chain.Platform {
	return cc.platform
}

// IsEVM reports whether the chain runs the EVM.
func (cc *ChainConfig) IsEVM() bool {
	return cc.platform == chain.PlatformEVM
}

// EVMContract returns a contract address, false when it is not deployed or
// the chain is not EVM.
func (cc *ChainConfig) EVMContract(addr string) (common.Address, bool) {
	if addr == "" || !cc.IsEVM() {
		return common.Address{}, false
	}
	return common.HexToAddress(addr), true
}

// IsNative reports whether the token is the gas token of its native chain.
func (tc *TokenConfig) IsNative() bool {
	return tc.Address == ""
}

// AddressOn returns the token's address on id. The gas token has no address
// on its native chain and reports "", true.
func (tc *TokenConfig) AddressOn(id vaa.ChainID) (string, bool) {
	if id == tc.NativeID {
		return tc.Address, true
	}
	addr, ok := tc.foreign[id]
	return addr, ok
}

// DecimalsOn returns the token's decimals on id.
func (tc *TokenConfig) DecimalsOn(id vaa.ChainID) uint8 {
	if d, ok := tc.decimals[id]; ok {
		return d
	}
	return tc.Decimals
}

// NttManager returns the NTT manager address on id.
func (tc *TokenConfig) NttManager(id vaa.ChainID) (string, bool) {
	addr, ok := tc.nttManagers[id]
	return addr, ok
}

// NttTransceiver returns the wormhole transceiver address on id.
func (tc *TokenConfig) NttTransceiver(id vaa.ChainID) (string, bool) {
	addr, ok := tc.nttXcvrs[id]
	return addr, ok
}

// IsNtt reports whether the token moves through NTT.
func (tc *TokenConfig) IsNtt() bool {
	return len(tc.nttManagers) > 0
}
