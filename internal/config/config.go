// Package config loads runtime configuration from flags, environment
// variables, and an optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every option this system recognizes, loaded from flags, env,
// or config file.
type Config struct {
	ChainWSSEndpoint  string
	ChainHTTPEndpoint string

	MaxTokenAge          time.Duration
	MaxMcapUSD           float64
	MinLiquidityUSD      float64
	MinBuys              int
	MinLargestBuyPct     float64
	MaxSignalsPerHour    int
	IgnoreLiquidityBelow float64
	MaxDeployerTokens24h int
	TokenTTL             time.Duration
	DryRun               bool
	SafeHooks            []string

	// Carried beyond the minimal option surface: whale diagnostics, a
	// latency cutoff, and the optional journal/webhook sinks.
	WhaleAlertMinUSD   float64
	MaxSignalLatency   time.Duration
	JournalDSN         string
	OutputWebhookURL   string
	SafetyScanTimeout  time.Duration
	EnrichConcurrency  int
	EnrichTickInterval time.Duration
	EnrichRefreshEvery time.Duration
	TrackerSweepEvery  time.Duration
	EthPriceRefresh    time.Duration

	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BASESNIPER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-http-endpoint", "https://mainnet.base.org")
	v.SetDefault("max-token-age", 180*time.Second)
	v.SetDefault("max-mcap-usd", 30000.0)
	v.SetDefault("min-liquidity-usd", 3000.0)
	v.SetDefault("min-buys", 2)
	v.SetDefault("min-largest-buy-pct", 10.0)
	v.SetDefault("max-signals-per-hour", 5)
	v.SetDefault("ignore-liquidity-below", 2000.0)
	v.SetDefault("max-deployer-tokens-24h", 2)
	v.SetDefault("token-ttl", 300*time.Second)
	v.SetDefault("dry-run", true)
	v.SetDefault("safe-hooks", []string{"0x0000000000000000000000000000000000000000"})
	v.SetDefault("whale-alert-min-usd", 0.0)
	v.SetDefault("max-signal-latency", 0*time.Second)
	v.SetDefault("safety-scan-timeout", 10*time.Second)
	v.SetDefault("enrich-concurrency", 4)
	v.SetDefault("enrich-tick-interval", 2*time.Second)
	v.SetDefault("enrich-refresh-every", 10*time.Second)
	v.SetDefault("tracker-sweep-every", 30*time.Second)
	v.SetDefault("eth-price-refresh", 60*time.Second)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		ChainWSSEndpoint:  v.GetString("chain-wss-endpoint"),
		ChainHTTPEndpoint: v.GetString("chain-http-endpoint"),

		MaxTokenAge:          v.GetDuration("max-token-age"),
		MaxMcapUSD:           v.GetFloat64("max-mcap-usd"),
		MinLiquidityUSD:      v.GetFloat64("min-liquidity-usd"),
		MinBuys:              v.GetInt("min-buys"),
		MinLargestBuyPct:     v.GetFloat64("min-largest-buy-pct"),
		MaxSignalsPerHour:    v.GetInt("max-signals-per-hour"),
		IgnoreLiquidityBelow: v.GetFloat64("ignore-liquidity-below"),
		MaxDeployerTokens24h: v.GetInt("max-deployer-tokens-24h"),
		TokenTTL:             v.GetDuration("token-ttl"),
		DryRun:               v.GetBool("dry-run"),
		SafeHooks:            getStringSlice(v, "safe-hooks"),

		WhaleAlertMinUSD:   v.GetFloat64("whale-alert-min-usd"),
		MaxSignalLatency:   v.GetDuration("max-signal-latency"),
		JournalDSN:         v.GetString("journal-dsn"),
		OutputWebhookURL:   v.GetString("output-webhook-url"),
		SafetyScanTimeout:  v.GetDuration("safety-scan-timeout"),
		EnrichConcurrency:  v.GetInt("enrich-concurrency"),
		EnrichTickInterval: v.GetDuration("enrich-tick-interval"),
		EnrichRefreshEvery: v.GetDuration("enrich-refresh-every"),
		TrackerSweepEvery:  v.GetDuration("tracker-sweep-every"),
		EthPriceRefresh:    v.GetDuration("eth-price-refresh"),

		LogLevel: v.GetString("log-level"),
	}

	if cfg.ChainWSSEndpoint == "" {
		return Config{}, fmt.Errorf("chain-wss-endpoint is required")
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
