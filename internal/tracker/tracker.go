// Package tracker holds the in-memory, TTL-bounded index of observed tokens.
package tracker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"basesniper/internal/model"
)

type entry struct {
	mu    sync.Mutex
	state *model.TokenState
}

// Tracker is the single source of truth for TokenState. All access goes
// through Mutate/View/IterActive rather than by capturing TokenState
// pointers across dispatches.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	logger  *zap.Logger
}

// New builds a Tracker with the given eviction TTL.
func New(ttl time.Duration, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		entries: make(map[string]*entry),
		ttl:     ttl,
		logger:  logger,
	}
}

// Upsert returns the existing entry for token, or creates one via initFn.
// Re-creation never overwrites an existing entry.
func (t *Tracker) Upsert(token string, initFn func() *model.TokenState) *model.TokenState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[token]; ok {
		return e.state
	}
	e := &entry{state: initFn()}
	t.entries[token] = e
	return e.state
}

// Mutate runs fn against the token's state under its per-entry lock. Returns
// false if the token is unknown (evicted or never created). If fn leaves the
// entry violating total_buys >= unique_buyers (or a negative buy count), the
// violation is logged and the entry is evicted.
func (t *Tracker) Mutate(token string, fn func(*model.TokenState)) bool {
	t.mu.RLock()
	e, ok := t.entries[token]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	fn(e.state)
	violated := e.state.TotalBuys < 0 || e.state.TotalBuys < e.state.UniqueBuyerCount()
	e.mu.Unlock()
	if violated {
		t.logger.Error("tracker invariant violated, evicting token", zap.String("token", token))
		t.Evict(token)
	}
	return true
}

// View returns a shallow snapshot of a token's state for diagnostics. The
// returned value must not be mutated; use Mutate for writes.
func (t *Tracker) View(token string) (model.TokenState, bool) {
	t.mu.RLock()
	e, ok := t.entries[token]
	t.mu.RUnlock()
	if !ok {
		return model.TokenState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.state, true
}

// Evict removes a single token, e.g. once it's confirmed to fall below the
// ignore-liquidity-below admission floor. Reports whether it was present.
func (t *Tracker) Evict(token string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[token]; !ok {
		return false
	}
	delete(t.entries, token)
	return true
}

// IterActive returns the tokens not yet signaled, for the enrichment loop.
func (t *Tracker) IterActive() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.entries))
	for token, e := range t.entries {
		e.mu.Lock()
		signaled := e.state.Signaled
		e.mu.Unlock()
		if !signaled {
			out = append(out, token)
		}
	}
	return out
}

// Sweep removes entries older than the TTL. The map lock is held for the
// full pass, and an entry whose per-entry lock is held by an in-flight
// Mutate is skipped until the next sweep, so a signal in progress is never
// evicted mid-write.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for token, e := range t.entries {
		if now.Sub(e.state.FirstSeen) > t.ttl {
			if !e.mu.TryLock() {
				continue
			}
			delete(t.entries, token)
			e.mu.Unlock()
			evicted++
		}
	}
	if evicted > 0 {
		t.logger.Debug("swept stale tokens", zap.Int("count", evicted))
	}
	return evicted
}

// ActiveCount reports the number of tracked tokens, signaled or not.
func (t *Tracker) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
