package enrich

import (
	"context"
	"time"

	"go.uber.org/zap"

	"basesniper/internal/model"
	"basesniper/internal/signal"
	"basesniper/internal/tracker"
)

const fetchBudget = 8 * time.Second

// Loop periodically polls the enrichment API for every tracked token that
// is due for a refresh, applies the result, and re-runs the signal engine
// under the same per-token lock.
type Loop struct {
	client   *Client
	oracle   *EthPriceOracle
	tracker  *tracker.Tracker
	engine   *signal.Engine
	logger   *zap.Logger

	tickInterval time.Duration
	fetchEvery   time.Duration
	sem          chan struct{}
}

// NewLoop builds an enrichment Loop. concurrency bounds how many fetches may
// be in flight at once, protecting the upstream API from a burst of
// newly-tracked tokens.
func NewLoop(client *Client, oracle *EthPriceOracle, tr *tracker.Tracker, engine *signal.Engine, concurrency int, tickInterval, fetchEvery time.Duration, logger *zap.Logger) *Loop {
	if concurrency <= 0 {
		concurrency = 4
	}
	if tickInterval <= 0 {
		tickInterval = 2 * time.Second
	}
	if fetchEvery <= 0 {
		fetchEvery = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		client:       client,
		oracle:       oracle,
		tracker:      tr,
		engine:       engine,
		logger:       logger,
		tickInterval: tickInterval,
		fetchEvery:   fetchEvery,
		sem:          make(chan struct{}, concurrency),
	}
}

// Run drives the poll loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	now := time.Now()
	for _, token := range l.tracker.IterActive() {
		state, ok := l.tracker.View(token)
		if !ok || state.Signaled {
			continue
		}
		if !state.NextEnrichAt.IsZero() && state.NextEnrichAt.After(now) {
			continue
		}

		select {
		case l.sem <- struct{}{}:
		default:
			// Concurrency cap reached this tick; the token stays eligible
			// and will be picked up on the next tick.
			continue
		}

		go func(token string) {
			defer func() { <-l.sem }()
			l.fetchAndApply(ctx, token)
		}(token)
	}
}

func (l *Loop) fetchAndApply(ctx context.Context, token string) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchBudget)
	defer cancel()

	pairs, err := l.fetchWithRetry(fetchCtx, token)
	now := time.Now()

	if err != nil {
		next := now.Add(10 * time.Second)
		if IsClientError(err) {
			next = now.Add(30 * time.Second)
		}
		l.logger.Debug("enrichment fetch failed", zap.String("token", token), zap.Error(err))
		l.tracker.Mutate(token, func(s *model.TokenState) { s.NextEnrichAt = next })
		return
	}

	best, ok := BestPair(pairs)
	if !ok {
		l.tracker.Mutate(token, func(s *model.TokenState) { s.NextEnrichAt = now.Add(30 * time.Second) })
		return
	}

	l.tracker.Mutate(token, func(s *model.TokenState) {
		s.ApplyEnrichment(now, best.FDV, best.Liquidity.USD, best.Txns.H1.Buys, best.Txns.H1.Sells)
		s.NextEnrichAt = now.Add(l.fetchEvery)
		l.engine.Evaluate(s, now)
	})
}

func (l *Loop) fetchWithRetry(ctx context.Context, token string) ([]Pair, error) {
	delay := 500 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < 4; attempt++ {
		pairs, err := l.client.GetTokenPairs(ctx, "base", token)
		if err == nil {
			return pairs, nil
		}
		lastErr = err
		if IsClientError(err) {
			return nil, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return nil, lastErr
}
