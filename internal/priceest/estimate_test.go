package priceest

import (
	"math"
	"math/big"
	"testing"
)

func sqrtPriceX96FromRatio(ratio float64) *big.Int {
	// sqrtPriceX96 = sqrt(ratio) * 2^96
	sqrtRatio := new(big.Float).SetFloat64(math.Sqrt(ratio))
	scaled := new(big.Float).Mul(sqrtRatio, q96)
	out, _ := scaled.Int(nil)
	return out
}

func TestEstimateMcapEthAsToken0(t *testing.T) {
	// token1-per-token0(ETH) = 1,000,000 tokens per ETH -> token costs 1e-6 ETH.
	sqrtPriceX96 := sqrtPriceX96FromRatio(1_000_000)
	mcap := EstimateMcap(sqrtPriceX96, true, 3000)

	// token price in USD = 3000 * 1e-6 = 0.003, mcap = 0.003 * 1e9 = 3,000,000
	if mcap < 2_900_000 || mcap > 3_100_000 {
		t.Fatalf("mcap out of expected range: %f", mcap)
	}
}

func TestEstimateMcapEthAsToken1(t *testing.T) {
	// token0-per... ratio is ETH-per-token0 directly: 0.002 ETH per token.
	sqrtPriceX96 := sqrtPriceX96FromRatio(0.002)
	mcap := EstimateMcap(sqrtPriceX96, false, 3000)

	// token price USD = 0.002 * 3000 = 6, mcap = 6e9
	if mcap < 5.9e9 || mcap > 6.1e9 {
		t.Fatalf("mcap out of expected range: %f", mcap)
	}
}

func TestEstimateMcapZeroInputsAreSafe(t *testing.T) {
	if got := EstimateMcap(nil, true, 3000); got != 0 {
		t.Fatalf("expected 0 for nil sqrtPrice, got %f", got)
	}
	if got := EstimateMcap(big.NewInt(1), true, 0); got != 0 {
		t.Fatalf("expected 0 for zero eth price, got %f", got)
	}
}

func TestEstimateLiquidityUSDPositive(t *testing.T) {
	sqrtPriceX96 := sqrtPriceX96FromRatio(1.0)
	liquidity := new(big.Int).Mul(big.NewInt(1e9), big.NewInt(1e9)) // arbitrary large L

	usd := EstimateLiquidityUSD(liquidity, sqrtPriceX96, 3000)
	if usd <= 0 {
		t.Fatalf("expected positive liquidity estimate, got %f", usd)
	}
}

func TestEstimateLiquidityUSDZeroInputsAreSafe(t *testing.T) {
	if got := EstimateLiquidityUSD(nil, big.NewInt(1), 3000); got != 0 {
		t.Fatalf("expected 0 for nil liquidity, got %f", got)
	}
	if got := EstimateLiquidityUSD(big.NewInt(1), nil, 3000); got != 0 {
		t.Fatalf("expected 0 for nil sqrtPrice, got %f", got)
	}
}
