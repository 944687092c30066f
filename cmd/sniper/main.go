package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"basesniper/internal/app"
	"basesniper/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "sniper",
		Short:        "Base new-pool signal bot",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sniper",
		RunE:  runSniper,
	}

	runCmd.Flags().String("chain-wss-endpoint", "", "Base WSS endpoint (required)")
	runCmd.Flags().String("chain-http-endpoint", "https://mainnet.base.org", "Base HTTP endpoint")
	runCmd.Flags().Duration("max-token-age", 180*time.Second, "signal window")
	runCmd.Flags().Float64("max-mcap-usd", 30000, "mcap ceiling")
	runCmd.Flags().Float64("min-liquidity-usd", 3000, "liquidity floor")
	runCmd.Flags().Int("min-buys", 2, "minimum buy count")
	runCmd.Flags().Float64("min-largest-buy-pct", 10, "largest buy as percent of liquidity")
	runCmd.Flags().Int("max-signals-per-hour", 5, "signal rate limit")
	runCmd.Flags().Float64("ignore-liquidity-below", 2000, "liquidity floor, a token whose first on-chain liquidity estimate is below this is untracked")
	runCmd.Flags().Int("max-deployer-tokens-24h", 2, "serial deployer quota")
	runCmd.Flags().Duration("token-ttl", 300*time.Second, "tracker eviction age")
	runCmd.Flags().Bool("dry-run", true, "suppress outbound sends")
	runCmd.Flags().StringSlice("safe-hooks", nil, "V4 hooks allow-list (comma-separated), defaults to the zero address")
	runCmd.Flags().Float64("whale-alert-min-usd", 0, "diagnostic whale-buy log threshold, 0 disables")
	runCmd.Flags().Duration("max-signal-latency", 0, "reject signals slower than this, 0 disables")
	runCmd.Flags().String("journal-dsn", "", "optional Postgres DSN for the signal journal")
	runCmd.Flags().String("output-webhook-url", "", "optional webhook URL for live signal delivery")
	runCmd.Flags().Duration("safety-scan-timeout", 10*time.Second, "bytecode scan RPC timeout")
	runCmd.Flags().Int("enrich-concurrency", 4, "concurrent enrichment fetches")
	runCmd.Flags().Duration("enrich-tick-interval", 2*time.Second, "enrichment loop poll interval")
	runCmd.Flags().Duration("enrich-refresh-every", 10*time.Second, "per-token enrichment refresh interval")
	runCmd.Flags().Duration("tracker-sweep-every", 30*time.Second, "tracker eviction sweep interval")
	runCmd.Flags().Duration("eth-price-refresh", 60*time.Second, "ETH/USD oracle refresh interval")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSniper(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runtime, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer runtime.Close()

	logger.Info("sniper start",
		zap.String("chain_wss_endpoint", cfg.ChainWSSEndpoint),
		zap.Duration("max_token_age", cfg.MaxTokenAge),
		zap.Float64("min_liquidity_usd", cfg.MinLiquidityUSD),
		zap.Float64("max_mcap_usd", cfg.MaxMcapUSD),
		zap.Bool("dry_run", cfg.DryRun),
	)

	runtime.Run(ctx)
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
