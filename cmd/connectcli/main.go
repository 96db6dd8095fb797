// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"

	"github.com/luxfi/connect/cache"
	"github.com/luxfi/connect/chain"
	"github.com/luxfi/connect/config"
	"github.com/luxfi/connect/ntt"
	"github.com/luxfi/connect/portico"
	"github.com/luxfi/connect/routes"
	"github.com/luxfi/connect/services"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const dialTimeout = 10 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect - cross-chain transfer route tooling",
	Long: `Connect inspects wormhole bridging routes: it decodes NTT and Portico
payloads, computes NTT digests, lists the configured routes and recovers
transfers from source transactions.`,
	Version:       fmt.Sprintf("%s (built %s)", version, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode NTT and Portico payloads",
}

var decodeNttCmd = &cobra.Command{
	Use:   "ntt <hex>",
	Short: "Decode an NTT native token transfer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := hexutil.Decode(args[0])
		if err != nil {
			return err
		}
		t, err := ntt.ParseNativeTokenTransfer(data)
		if err != nil {
			return err
		}
		printTransfer(cmd.OutOrStdout(), "", t)
		return nil
	},
}

var decodeManagerCmd = &cobra.Command{
	Use:   "manager <hex>",
	Short: "Decode an NTT manager message carrying a token transfer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := hexutil.Decode(args[0])
		if err != nil {
			return err
		}
		m, err := ntt.ParseManagerMessage(data, ntt.NativeTokenTransferCodec)
		if err != nil {
			return err
		}
		printManager(cmd.OutOrStdout(), "", m)
		return nil
	},
}

var decodeTransceiverCmd = &cobra.Command{
	Use:   "transceiver <hex>",
	Short: "Decode a wormhole transceiver message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := hexutil.Decode(args[0])
		if err != nil {
			return err
		}
		m, err := ntt.ParseWormholeTransceiverMessage(data)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Transceiver message (%s):\n", m.Format.Name)
		fmt.Fprintf(w, "  Source manager: 0x%x\n", m.SourceManager)
		fmt.Fprintf(w, "  Recipient manager: 0x%x\n", m.RecipientManager)
		fmt.Fprintf(w, "  Transceiver payload: 0x%x\n", m.TransceiverPayload)
		printManager(w, "  ", m.ManagerPayload)
		return nil
	},
}

var decodePorticoPayloadCmd = &cobra.Command{
	Use:   "portico-payload <hex>",
	Short: "Decode the payload a Portico transfer carries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := hexutil.Decode(args[0])
		if err != nil {
			return err
		}
		p, err := portico.ParsePayload(data)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Portico payload:")
		printFlagSet(w, p.FlagSet)
		fmt.Fprintf(w, "  Final token: %s\n", p.FinalTokenAddress)
		fmt.Fprintf(w, "  Recipient: %s\n", p.RecipientAddress)
		fmt.Fprintf(w, "  Canonical amount: %s\n", p.CanonAssetAmount.Dec())
		fmt.Fprintf(w, "  Min amount finish: %s\n", p.MinAmountFinish.Dec())
		fmt.Fprintf(w, "  Relayer fee: %s\n", p.RelayerFee.Dec())
		return nil
	},
}

var decodeTradeParamsCmd = &cobra.Command{
	Use:   "trade-params <hex>",
	Short: "Decode Portico trade parameters or start() call data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := hexutil.Decode(args[0])
		if err != nil {
			return err
		}
		var p *portico.TradeParameters
		if bytes.HasPrefix(data, portico.StartSelector) {
			p, err = portico.DecodeStart(data)
		} else {
			p, err = portico.ParseTradeParameters(data)
		}
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Trade parameters:")
		printFlagSet(w, p.FlagSet)
		fmt.Fprintf(w, "  Start token: %s\n", p.StartTokenAddress)
		fmt.Fprintf(w, "  Canonical asset: %s\n", p.CanonAssetAddress)
		fmt.Fprintf(w, "  Final token: %s\n", p.FinalTokenAddress)
		fmt.Fprintf(w, "  Recipient: %s\n", p.RecipientAddress)
		fmt.Fprintf(w, "  Destination portico: %s\n", p.DestinationPorticoAddress)
		fmt.Fprintf(w, "  Amount: %s\n", p.AmountSpecified.Dec())
		fmt.Fprintf(w, "  Min amount start: %s\n", p.MinAmountStart.Dec())
		fmt.Fprintf(w, "  Min amount finish: %s\n", p.MinAmountFinish.Dec())
		fmt.Fprintf(w, "  Relayer fee: %s\n", p.RelayerFee.Dec())
		return nil
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest <chain> <hex>",
	Short: "Compute the digest of an NTT manager message sent from chain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := chain.ParseChain(args[0])
		if err != nil {
			return err
		}
		data, err := hexutil.Decode(args[1])
		if err != nil {
			return err
		}
		m, err := ntt.ParseManagerMessage(data, ntt.NativeTokenTransferCodec)
		if err != nil {
			return err
		}
		digest, err := ntt.Digest(source, m, ntt.NativeTokenTransferCodec)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "0x%x\n", digest[:])
		return nil
	},
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the enabled routes and the chains they serve",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		o, err := routes.NewOperator(cfg, &routes.Deps{Log: log.NewNoOpLogger()})
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, r := range o.EnabledRoutes() {
			s, err := o.GetRoute(r)
			if err != nil {
				return err
			}
			var names []string
			for _, id := range cfg.ChainIDs() {
				if s.IsSupportedChain(id) {
					names = append(names, chain.Name(id))
				}
			}
			fmt.Fprintf(w, "%-14s %s\n", r, strings.Join(names, ", "))
		}
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Recover a transfer from its source transaction",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		chainName, _ := cmd.Flags().GetString("chain")
		txHash, _ := cmd.Flags().GetString("tx")
		source, err := chain.ParseChain(chainName)
		if err != nil {
			return err
		}
		hash, err := hexutil.Decode(txHash)
		if err != nil || len(hash) != common.HashLength {
			return fmt.Errorf("invalid transaction hash %q", txHash)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg.LogLevel)
		ctx := cmd.Context()
		deps, closeDeps, err := buildDeps(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeDeps()

		o, err := routes.NewOperator(cfg, deps)
		if err != nil {
			return err
		}
		res, err := o.ResumeFromTx(ctx, source, common.BytesToHash(hash))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if res == nil {
			fmt.Fprintln(w, "No route claims this transaction")
			return nil
		}
		printReceipt(w, res)

		info, err := o.GetTransferDestInfo(ctx, res.Receipt)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "Destination:")
		for _, row := range info.DisplayData {
			fmt.Fprintf(w, "  %s: %s\n", row.Title, row.Value)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().AddFlagSet(config.BuildFlagSet())

	decodeCmd.AddCommand(decodeNttCmd)
	decodeCmd.AddCommand(decodeManagerCmd)
	decodeCmd.AddCommand(decodeTransceiverCmd)
	decodeCmd.AddCommand(decodePorticoPayloadCmd)
	decodeCmd.AddCommand(decodeTradeParamsCmd)

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().StringP("chain", "c", "", "Source chain name or wormhole chain id")
	resumeCmd.Flags().StringP("tx", "t", "", "Source transaction hash")
	resumeCmd.MarkFlagRequired("chain")
	resumeCmd.MarkFlagRequired("tx")
}

// loadConfig reads the .env file, then the configuration named by the flags
// or the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString(config.EnvFileKey)
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	v, err := config.BuildViper(cmd.Flags())
	if err != nil {
		return nil, err
	}
	return config.NewConfig(v)
}

func newLogger(level string) log.Logger {
	if strings.EqualFold(level, "debug") {
		return log.NewTestLogger(log.DebugLevel)
	}
	return log.NewTestLogger(log.InfoLevel)
}

// buildDeps dials the configured EVM rpcs and the REST services. The
// returned func releases them.
func buildDeps(ctx context.Context, cfg *config.Config, logger log.Logger) (*routes.Deps, func(), error) {
	rpcs := make(map[vaa.ChainID]string)
	for _, id := range cfg.ChainIDs() {
		cc, _ := cfg.Chain(id)
		if cc.IsEVM() && cc.RPC != "" {
			rpcs[id] = os.ExpandEnv(cc.RPC)
		}
	}
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	clients, err := chain.Dial(dialCtx, rpcs)
	if err != nil {
		return nil, nil, err
	}

	s := cfg.Services
	var shared *cache.RedisCache[decimal.Decimal]
	if s.RedisURL != "" {
		shared, err = cache.NewRedisCache[decimal.Decimal](os.ExpandEnv(s.RedisURL), "connect:prices:", s.PriceTTL, logger)
		if err != nil {
			return nil, nil, err
		}
	}
	deps := &routes.Deps{Clients: clients, Log: logger}
	if s.PriceURL != "" {
		deps.Prices = services.NewPriceClient(s.PriceURL, s.PriceTTL, shared, logger)
	}
	if s.RelayerURL != "" {
		deps.Relayer = services.NewRelayerClient(s.RelayerURL, s.RelayerFeeTTL)
	}
	if s.GovernorURL != "" {
		deps.Governor = services.NewGovernorClient(s.GovernorURL)
	}
	if s.ExplorerURL != "" {
		deps.VAAs = services.NewExplorerClient(s.ExplorerURL)
	}
	if s.MayanURL != "" {
		deps.Mayan = services.NewMayanClient(s.MayanURL)
	}
	if s.PorticoURL != "" {
		deps.Portico = portico.NewOrderClient(s.PorticoURL, logger)
	}
	release := func() {
		if shared != nil {
			if err := shared.Close(); err != nil {
				logger.Debug("failed to close redis cache", log.Err(err))
			}
		}
	}
	return deps, release, nil
}

func printTransfer(w io.Writer, indent string, t *ntt.NativeTokenTransfer) {
	fmt.Fprintf(w, "%sNative token transfer:\n", indent)
	fmt.Fprintf(w, "%s  Amount: %s\n", indent, t.TrimmedAmount)
	fmt.Fprintf(w, "%s  Source token: %s\n", indent, t.SourceToken)
	fmt.Fprintf(w, "%s  Recipient: %s\n", indent, t.RecipientAddress)
	fmt.Fprintf(w, "%s  Recipient chain: %s\n", indent, t.RecipientChain)
}

func printManager(w io.Writer, indent string, m *ntt.ManagerMessage[*ntt.NativeTokenTransfer]) {
	fmt.Fprintf(w, "%sManager message:\n", indent)
	fmt.Fprintf(w, "%s  ID: 0x%x\n", indent, m.ID)
	fmt.Fprintf(w, "%s  Sender: 0x%x\n", indent, m.Sender)
	printTransfer(w, indent+"  ", m.Payload)
}

func printFlagSet(w io.Writer, f portico.FlagSet) {
	fmt.Fprintf(w, "  Recipient chain: %s\n", f.RecipientChain)
	fmt.Fprintf(w, "  Bridge nonce: %d\n", f.BridgeNonce)
	fmt.Fprintf(w, "  Fee tiers: %d/%d\n", f.FeeTierStart, f.FeeTierFinish)
	fmt.Fprintf(w, "  Wrap native: %t\n", f.ShouldWrapNative)
	fmt.Fprintf(w, "  Unwrap native: %t\n", f.ShouldUnwrapNative)
}

func printReceipt(w io.Writer, res *routes.ResumeResult) {
	r := res.Receipt
	fmt.Fprintf(w, "Route: %s\n", res.Route)
	fmt.Fprintf(w, "  State: %s\n", r.State)
	fmt.Fprintf(w, "  Source: %s %s\n", chain.Name(r.SourceChain), r.SourceTx)
	if r.DestChain != vaa.ChainIDUnset {
		fmt.Fprintf(w, "  Destination chain: %s\n", chain.Name(r.DestChain))
	}
	if r.Recipient != "" {
		fmt.Fprintf(w, "  Recipient: %s\n", r.Recipient)
	}
	if r.TokenKey != "" && r.Amount != nil {
		fmt.Fprintf(w, "  Amount: %s %s\n", r.Amount, r.TokenKey)
	}
	fmt.Fprintf(w, "  Message: %s\n", r.MessageID)
}
