package enrich

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"basesniper/internal/dex"
)

const defaultRefreshInterval = 60 * time.Second

// EthPriceOracle keeps a rolling ETH/USD price by periodically quoting WETH
// against its most liquid USD-stable pairing. It is read far more often
// than it refreshes, so Price() is lock-free.
type EthPriceOracle struct {
	client   *Client
	interval time.Duration
	logger   *zap.Logger

	price atomic.Value // float64
}

// NewEthPriceOracle builds an oracle around client, refreshing every
// interval (defaulting to 60s).
func NewEthPriceOracle(client *Client, interval time.Duration, logger *zap.Logger) *EthPriceOracle {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &EthPriceOracle{client: client, interval: interval, logger: logger}
	o.price.Store(float64(0))
	return o
}

// Price returns the last known ETH/USD price, or 0 before the first
// successful refresh.
func (o *EthPriceOracle) Price() float64 {
	return o.price.Load().(float64)
}

// Run refreshes the price on a ticker until ctx is cancelled. A failed
// refresh just keeps the previous price and tries again next tick.
func (o *EthPriceOracle) Run(ctx context.Context) {
	o.refresh(ctx)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.refresh(ctx)
		}
	}
}

func (o *EthPriceOracle) refresh(ctx context.Context) {
	pairs, err := o.client.GetTokenPairs(ctx, "base", dex.WETH)
	if err != nil {
		o.logger.Debug("eth price refresh failed", zap.Error(err))
		return
	}

	best, ok := BestPair(pairs)
	if !ok {
		return
	}
	price, err := strconv.ParseFloat(best.PriceUSD, 64)
	if err != nil || price <= 0 {
		return
	}
	o.price.Store(price)
	o.logger.Debug("eth price refreshed", zap.Float64("usd", price))
}
