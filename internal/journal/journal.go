// Package journal writes an audit trail of every fired signal and of
// terminal rejects (some reasons always, the rest sampled) to Postgres. It is diagnostic only: nothing here ever
// feeds back into the tracker, the signal engine, or the anti-spam gates.
// A process restart always starts with empty runtime state regardless of
// what the journal holds.
package journal

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"basesniper/internal/model"
	"basesniper/internal/signal"
)

// Journal is a Postgres-backed append-only log. A nil *Journal is valid and
// every method becomes a no-op, so wiring a journal is optional.
type Journal struct {
	pool          *pgxpool.Pool
	rejectCounter atomic.Uint64
}

// New connects to dsn and returns a Journal. An empty dsn is not an error:
// it signals "no journal configured" and New returns (nil, nil).
func New(ctx context.Context, dsn string) (*Journal, error) {
	if dsn == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect journal db: %w", err)
	}
	return &Journal{pool: pool}, nil
}

// Close releases the pool. Safe to call on a nil Journal.
func (j *Journal) Close() {
	if j == nil || j.pool == nil {
		return
	}
	j.pool.Close()
}

// RecordSignal appends a fired signal to the journal.
func (j *Journal) RecordSignal(ctx context.Context, sig signal.Signal) error {
	if j == nil || j.pool == nil {
		return nil
	}
	_, err := j.pool.Exec(ctx, `
		INSERT INTO signal_journal (
			token_address, dex_version, emitted_at, age_seconds, mcap_usd, liquidity_usd,
			buys, unique_buyers, largest_buy_usd, largest_buy_pct, reject_reason, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULL,now())
	`,
		sig.TokenAddress, string(sig.DexVersion), sig.EmittedAt, sig.AgeSeconds, sig.Mcap, sig.LiquidityUSD,
		sig.Buys, sig.UniqueBuyers, sig.LargestBuyUSD, sig.LargestBuyPct,
	)
	return err
}

// alwaysLogReasons mirrors the reject reasons worth keeping in full; a
// reject with any other reason is sampled to keep the table from filling
// with high-volume noise from tokens nobody will ever look at again.
var alwaysLogReasons = map[string]struct{}{
	"rate_limited":    {},
	"deployer_spam":   {},
	"honeypot":        {},
	"unsafe_bytecode": {},
}

// sampleEvery rejects are journaled once out of this many, except for the
// always-log reasons above.
const sampleEvery = 20

// shouldRecordReject decides whether this particular reject is worth a row,
// applying the always-log allowlist and the sampling counter.
func (j *Journal) shouldRecordReject(reason string) bool {
	if _, always := alwaysLogReasons[reason]; always {
		return true
	}
	count := j.rejectCounter.Add(1)
	return count%sampleEvery == 0
}

// RecordReject appends a terminal reject to the journal, sampling the
// high-volume reasons.
func (j *Journal) RecordReject(ctx context.Context, state *model.TokenState, now time.Time) error {
	if j == nil || j.pool == nil {
		return nil
	}

	if !j.shouldRecordReject(state.RejectReason) {
		return nil
	}

	_, err := j.pool.Exec(ctx, `
		INSERT INTO signal_journal (
			token_address, dex_version, emitted_at, age_seconds, mcap_usd, liquidity_usd,
			buys, unique_buyers, largest_buy_usd, largest_buy_pct, reject_reason, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,0,$9,now())
	`,
		state.TokenAddress, string(state.DexVersion), now, state.AgeSeconds(now), state.EstimatedMcap, state.LiquidityUSD,
		state.TotalBuys, state.UniqueBuyerCount(), state.RejectReason,
	)
	return err
}

// Schema is the DDL the operator runs once before pointing a deployment at
// a journal DSN. It isn't applied automatically: pgxpool assumes the schema
// already exists, matching how the rest of the stack treats migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS signal_journal (
	id               BIGSERIAL PRIMARY KEY,
	token_address    TEXT NOT NULL,
	dex_version      TEXT NOT NULL,
	emitted_at       TIMESTAMPTZ NOT NULL,
	age_seconds      DOUBLE PRECISION NOT NULL,
	mcap_usd         DOUBLE PRECISION NOT NULL,
	liquidity_usd    DOUBLE PRECISION NOT NULL,
	buys             INTEGER NOT NULL,
	unique_buyers    INTEGER NOT NULL,
	largest_buy_usd  DOUBLE PRECISION NOT NULL,
	largest_buy_pct  DOUBLE PRECISION NOT NULL,
	reject_reason    TEXT,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS signal_journal_token_idx ON signal_journal (token_address);
`
