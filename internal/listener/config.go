package listener

import (
	"math/big"
	"time"
)

// Config bundles the knobs both the V3 and V4 listeners need.
type Config struct {
	ChainID              *big.Int
	WhaleAlertMinUSD     float64
	SafetyScanTimeout    time.Duration
	SafeHooks            map[string]struct{} // V4 hooks allow-list; nil means dex.DefaultSafeHooks
	IgnoreLiquidityBelow float64             // admission floor: untrack a pool once its on-chain liquidity estimate comes in below this
}
