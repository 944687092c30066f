// Package signal evaluates TokenState against the hard-rule conjunction and
// anti-spam gates, emitting at most one signal per token.
package signal

import (
	"time"

	"go.uber.org/zap"

	"basesniper/internal/model"
)

// Config holds the rule thresholds, defaults matching spec.md section 6.
type Config struct {
	MaxTokenAge          time.Duration
	MinLiquidityUSD      float64
	MaxMcapUSD           float64
	MinBuys              int
	MinLargestBuyPct     float64
	MaxDeployerTokens24h int
	MaxSignalsPerHour    int
	MaxSignalLatency     time.Duration // 0 disables the cutoff
}

// Signal is the outbound record enqueued for the Output Sender.
type Signal struct {
	TokenAddress  string
	EmittedAt     time.Time
	DexVersion    model.DexVersion
	AgeSeconds    float64
	Mcap          float64
	LiquidityUSD  float64
	Buys          int
	UniqueBuyers  int
	LargestBuyUSD float64
	LargestBuyPct float64
}

// Engine evaluates the ten-predicate conjunction described in spec.md section
// 4.7. Evaluate must be called while the caller holds the tracker's
// per-token mutation lock (i.e. from inside tracker.Mutate).
type Engine struct {
	cfg       Config
	deployers *DeployerHistory
	limiter   *RateLimiter
	dedup     *DeDupSet
	out       chan<- Signal
	logger    *zap.Logger

	// OnReject, if set, is called for every reject (terminal or not) after
	// state.RejectReason has been updated. It exists so an optional audit
	// sink can observe rejects without the engine importing one directly.
	OnReject func(state *model.TokenState, reason string, terminal bool)
}

// NewEngine wires the anti-spam collaborators and output queue into an Engine.
func NewEngine(cfg Config, deployers *DeployerHistory, limiter *RateLimiter, dedup *DeDupSet, out chan<- Signal, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, deployers: deployers, limiter: limiter, dedup: dedup, out: out, logger: logger}
}

// Evaluate runs the conjunction against state and returns whether a signal
// fired. Terminal rejects mark the token in the DeDupSet so that later
// mutations never re-evaluate it.
func (e *Engine) Evaluate(state *model.TokenState, now time.Time) bool {
	if state.Signaled {
		return false
	}
	if e.dedup.Contains(state.TokenAddress) {
		return false
	}

	age := now.Sub(state.FirstSeen)
	if age > e.cfg.MaxTokenAge {
		e.rejectTerminal(state, "too_old")
		return false
	}

	// Liquidity floor is the most common and least interesting rejection;
	// it is not terminal because liquidity can still grow.
	if state.LiquidityUSD < e.cfg.MinLiquidityUSD {
		return false
	}

	if state.EstimatedMcap > e.cfg.MaxMcapUSD && state.EstimatedMcap > 0 {
		e.reject(state, "mcap_high")
		return false
	}

	if state.TotalBuys < e.cfg.MinBuys {
		return false
	}

	var largestPct float64
	if state.LiquidityUSD > 0 {
		largestPct = state.LargestBuyUSD / state.LiquidityUSD * 100
	}
	if largestPct < e.cfg.MinLargestBuyPct {
		e.reject(state, "weak_buy")
		return false
	}

	switch state.BytecodeSafe {
	case model.SafetyUnsafe:
		e.rejectTerminal(state, "unsafe_bytecode")
		return false
	case model.SafetyUnknown:
		// The engine waits, it does not guess.
		return false
	}

	if state.HoneypotSuspect {
		e.rejectTerminal(state, "honeypot")
		return false
	}

	if !state.DeployerResolved {
		// The engine waits, it does not guess: DeployerResolved only ever
		// flips true once resolveDeployerAndScan has actually run.
		return false
	}
	count := e.deployers.Record(state.Deployer, state.TokenAddress, now)
	if count > e.cfg.MaxDeployerTokens24h {
		e.rejectTerminal(state, "deployer_spam")
		return false
	}

	if !e.limiter.Allow(now) {
		e.reject(state, "rate_limited")
		return false
	}

	latency := now.Sub(state.FirstSeen)
	if e.cfg.MaxSignalLatency > 0 && latency > e.cfg.MaxSignalLatency {
		e.reject(state, "too_slow")
		return false
	}

	state.Signaled = true
	state.SignalTime = now
	state.SignalLatency = latency
	e.limiter.Record(now)
	e.dedup.Add(state.TokenAddress)

	sig := Signal{
		TokenAddress:  state.TokenAddress,
		EmittedAt:     now,
		DexVersion:    state.DexVersion,
		AgeSeconds:    age.Seconds(),
		Mcap:          state.EstimatedMcap,
		LiquidityUSD:  state.LiquidityUSD,
		Buys:          state.TotalBuys,
		UniqueBuyers:  state.UniqueBuyerCount(),
		LargestBuyUSD: state.LargestBuyUSD,
		LargestBuyPct: largestPct,
	}

	select {
	case e.out <- sig:
	default:
		e.logger.Warn("signal queue full, dropping", zap.String("token", state.TokenAddress))
	}

	e.logger.Info("signal fired",
		zap.String("token", state.TokenAddress),
		zap.String("dex", string(state.DexVersion)),
		zap.Float64("age_s", age.Seconds()),
		zap.Float64("mcap", state.EstimatedMcap),
		zap.Float64("liquidity_usd", state.LiquidityUSD),
		zap.Int("buys", state.TotalBuys),
		zap.Int("unique_buyers", state.UniqueBuyerCount()),
		zap.Float64("largest_buy_pct", largestPct),
	)

	return true
}

func (e *Engine) reject(state *model.TokenState, reason string) {
	state.RejectReason = reason
	e.logger.Debug("token rejected", zap.String("token", state.TokenAddress), zap.String("reason", reason))
	if e.OnReject != nil {
		e.OnReject(state, reason, false)
	}
}

func (e *Engine) rejectTerminal(state *model.TokenState, reason string) {
	state.RejectReason = reason
	e.logger.Debug("token rejected", zap.String("token", state.TokenAddress), zap.String("reason", reason))
	e.dedup.Add(state.TokenAddress)
	if e.OnReject != nil {
		e.OnReject(state, reason, true)
	}
}
