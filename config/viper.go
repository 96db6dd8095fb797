// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/luxfi/connect"
)

// NewConfig builds and validates the configuration held by v.
func NewConfig(v *viper.Viper) (*Config, error) {
	cfg, err := BuildConfig(v)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

// BuildFlagSet returns the flags understood by BuildViper.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("connect", pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "path to the JSON or YAML configuration file")
	fs.String(EnvFileKey, "", "optional .env file loaded before the configuration")
	fs.String(LogLevelKey, defaultLogLevel, "log level")
	fs.StringSlice(RoutesKey, nil, "routes to enable, all when empty")
	fs.Uint64(MaxBlockSearchKey, defaultMaxBlockSearch, "blocks searched back when looking for a redeem transaction")
	return fs
}

// BuildViper builds the viper instance. The config file may be provided via
// the command line flag or the CONNECT_CONFIG_FILE environment variable.
// All config keys may be provided via config file or environment variable.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Map flag names to env var names. Flags are capitalized, and hyphens and dots are replaced with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}

	if !v.IsSet(ConfigFileKey) || v.GetString(ConfigFileKey) == "" {
		return nil, fmt.Errorf("config file not set")
	}
	filename := os.ExpandEnv(v.GetString(ConfigFileKey))
	v.SetConfigFile(filename)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	default:
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return v, nil
}

// SetDefaultConfigValues sets the defaults used when a key is absent.
func SetDefaultConfigValues(v *viper.Viper) {
	v.SetDefault(NetworkKey, defaultNetwork)
	v.SetDefault(LogLevelKey, defaultLogLevel)
	v.SetDefault(MaxBlockSearchKey, defaultMaxBlockSearch)
	v.SetDefault(PriceTTLKey, defaultPriceTTL)
	v.SetDefault(RelayerFeeTTLKey, defaultRelayerFeeTTL)

	routes := make([]string, 0, len(connect.AllRoutes()))
	for _, r := range connect.AllRoutes() {
		routes = append(routes, r.String())
	}
	v.SetDefault(RoutesKey, routes)
}

// BuildConfig constructs the config using Viper.
// The following precedence order is used. Each item takes precedence over the item below it:
//  1. Flags
//  2. Environment
//  3. Config file
//  4. Defaults
func BuildConfig(v *viper.Viper) (*Config, error) {
	SetDefaultConfigValues(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal viper config: %w", err)
	}
	// an unset --routes flag shadows the default
	if len(cfg.Routes) == 0 {
		for _, r := range connect.AllRoutes() {
			cfg.Routes = append(cfg.Routes, r.String())
		}
	}
	return &cfg, nil
}
