package model

import (
	"math/big"
	"time"
)

// DexVersion tags which AMM generation a pool belongs to.
type DexVersion string

const (
	DexV3 DexVersion = "v3"
	DexV4 DexVersion = "v4"
)

// BytecodeSafety is a tri-state verdict that only ever moves unknown -> {safe,unsafe}.
type BytecodeSafety int

const (
	SafetyUnknown BytecodeSafety = iota
	SafetySafe
	SafetyUnsafe
)

func (s BytecodeSafety) String() string {
	switch s {
	case SafetySafe:
		return "safe"
	case SafetyUnsafe:
		return "unsafe"
	default:
		return "unknown"
	}
}

// TokenState is the central per-token record. Counters, the deployer and the
// safety verdict are updated through the narrow methods below; diagnostic and
// scheduling fields (Symbol, Name, SqrtPriceX96, NextEnrichAt) and the
// signal/reject fields are assigned directly. Once an entry is in the
// tracker, every write happens while the caller holds its per-token
// mutation lock.
type TokenState struct {
	TokenAddress     string
	PairAddress      string
	DexVersion       DexVersion
	FirstSeen        time.Time
	BlockFirstSeen   uint64
	Deployer         string
	DeployerResolved bool

	LiquidityUSD  float64
	EstimatedMcap float64
	TotalBuys     int
	TotalSells    int
	UniqueBuyers  map[string]struct{}
	LargestBuyUSD float64
	BuyVolumeUSD  float64

	BytecodeSafe    BytecodeSafety
	HoneypotSuspect bool

	EnrichedAt   time.Time
	NextEnrichAt time.Time

	Signaled      bool
	SignalTime    time.Time
	SignalLatency time.Duration
	RejectReason  string

	Symbol string
	Name   string

	HooksAddress string
	SqrtPriceX96 *big.Int
}

// NewTokenState creates a fresh entry at pool-creation time.
func NewTokenState(token, pair string, dex DexVersion, block uint64, firstSeen time.Time) *TokenState {
	return &TokenState{
		TokenAddress:   token,
		PairAddress:    pair,
		DexVersion:     dex,
		BlockFirstSeen: block,
		FirstSeen:      firstSeen,
		UniqueBuyers:   make(map[string]struct{}),
	}
}

// AgeSeconds returns wall-clock age relative to now.
func (s *TokenState) AgeSeconds(now time.Time) float64 {
	return now.Sub(s.FirstSeen).Seconds()
}

// SetDeployer records the resolved deployer address. It is the only way
// DeployerResolved flips to true, so a zero-value TokenState always reads as
// "not yet resolved" rather than "confirmed no deployer".
func (s *TokenState) SetDeployer(deployer string) {
	s.Deployer = deployer
	s.DeployerResolved = true
}

// RecordBuy folds one buy-side swap into the aggregate counters.
func (s *TokenState) RecordBuy(buyer string, usdValue float64) {
	s.TotalBuys++
	s.BuyVolumeUSD += usdValue
	if usdValue > s.LargestBuyUSD {
		s.LargestBuyUSD = usdValue
	}
	if s.UniqueBuyers == nil {
		s.UniqueBuyers = make(map[string]struct{})
	}
	s.UniqueBuyers[buyer] = struct{}{}
}

// RecordSell folds one sell-side swap into the aggregate counters.
func (s *TokenState) RecordSell() {
	s.TotalSells++
}

// ApplyOnChainEstimate overwrites the on-chain liquidity/mcap estimate. Per
// spec.md section 3, liquidity_usd/estimated_mcap track the most recent of
// the on-chain estimate and the enrichment value, so any positive refresh
// (chain or enrichment) simply wins.
func (s *TokenState) ApplyOnChainEstimate(liquidityUSD, mcapUSD float64) {
	if liquidityUSD > 0 {
		s.LiquidityUSD = liquidityUSD
	}
	if mcapUSD > 0 {
		s.EstimatedMcap = mcapUSD
	}
}

// ApplyEnrichment overwrites fields from a successful REST poll and returns
// whether the honeypot-suspect terminal condition newly triggered.
func (s *TokenState) ApplyEnrichment(now time.Time, mcapUSD, liquidityUSD float64, buyTxns, sellTxns int) bool {
	if mcapUSD > 0 {
		s.EstimatedMcap = mcapUSD
	}
	if liquidityUSD > 0 {
		s.LiquidityUSD = liquidityUSD
	}
	s.EnrichedAt = now
	if sellTxns == 0 && buyTxns > 5 && !s.HoneypotSuspect {
		s.HoneypotSuspect = true
		return true
	}
	return false
}

// SetBytecodeSafety performs the one-way unknown->{safe,unsafe} transition.
// A call after the verdict is already set is a no-op, preserving the
// "transitions are one-way" invariant.
func (s *TokenState) SetBytecodeSafety(verdict BytecodeSafety) {
	if s.BytecodeSafe != SafetyUnknown {
		return
	}
	s.BytecodeSafe = verdict
}

// UniqueBuyerCount reports len(unique_buyers) without leaking the map.
func (s *TokenState) UniqueBuyerCount() int {
	return len(s.UniqueBuyers)
}
