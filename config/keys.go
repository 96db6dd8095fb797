// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	EnvFileKey    = "env-file"
	HelpKey       = "help"

	// Environment variable prefix, CONNECT_CONFIG_FILE etc.
	EnvPrefix = "connect"

	// Top-level configuration keys
	NetworkKey        = "network"
	LogLevelKey       = "log-level"
	RoutesKey         = "routes"
	MaxBlockSearchKey = "max-block-search"
	ChainsKey         = "chains"
	TokensKey         = "tokens"
	PorticoKey        = "portico"
	MayanKey          = "mayan"

	// Service keys
	PriceURLKey      = "services.price-url"
	RelayerURLKey    = "services.relayer-url"
	PorticoURLKey    = "services.portico-url"
	GovernorURLKey   = "services.governor-url"
	ExplorerURLKey   = "services.explorer-url"
	MayanURLKey      = "services.mayan-url"
	RedisURLKey      = "services.redis-url"
	PriceTTLKey      = "services.price-ttl"
	RelayerFeeTTLKey = "services.relayer-fee-ttl"
)
