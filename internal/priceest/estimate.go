// Package priceest derives rough USD mcap and liquidity figures straight
// from a pool's sqrtPriceX96/liquidity without any off-chain price feed
// beyond the current ETH/USD rate. The numbers are heuristics meant to
// gate a signal within seconds of pool creation, not a quote.
package priceest

import (
	"math/big"
)

// q96 is 2^96, the fixed-point base of Uniswap's sqrtPriceX96 encoding.
var q96 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))

// assumedSupply is the flat token-supply assumption used for every mcap
// estimate: most Base memecoins launch with a 1e9 fixed supply, and we have
// no on-chain way to know the real figure before a Signal fires.
const assumedSupply = 1_000_000_000

const weiPerEth = 1e18

// priceRatio returns token1-per-token0 as a big.Float, derived from
// sqrtPriceX96 with no decimal adjustment (raw integer units).
func priceRatio(sqrtPriceX96 *big.Int) *big.Float {
	sqrtPrice := new(big.Float).Quo(new(big.Float).SetInt(sqrtPriceX96), q96)
	return new(big.Float).Mul(sqrtPrice, sqrtPrice)
}

// EstimateMcap returns an estimated USD market cap for the non-ETH side of
// the pool, assuming assumedSupply tokens outstanding. ethIsToken0 reports
// which side of the pool carries ETH/WETH.
func EstimateMcap(sqrtPriceX96 *big.Int, ethIsToken0 bool, ethPriceUSD float64) float64 {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 || ethPriceUSD <= 0 {
		return 0
	}

	ratio := priceRatio(sqrtPriceX96)

	var tokenPriceInEth *big.Float
	if ethIsToken0 {
		// ratio is token1-per-token0(ETH): invert to get ETH-per-token1.
		if ratio.Sign() == 0 {
			return 0
		}
		tokenPriceInEth = new(big.Float).Quo(big.NewFloat(1), ratio)
	} else {
		// token0 is the target token, token1 is ETH: ratio is already
		// ETH-per-token0.
		tokenPriceInEth = ratio
	}

	tokenPriceUSD := new(big.Float).Mul(tokenPriceInEth, big.NewFloat(ethPriceUSD))
	mcap := new(big.Float).Mul(tokenPriceUSD, big.NewFloat(assumedSupply))

	out, _ := mcap.Float64()
	if out < 0 {
		return 0
	}
	return out
}

// EstimateLiquidityUSD returns a rough USD value for the pool's ETH-side
// liquidity, approximated as 2x the ETH reserve implied by L and
// sqrtPriceX96 (a standard constant-product-style doubling, since a
// balanced pool holds roughly equal USD value on each side).
func EstimateLiquidityUSD(liquidity, sqrtPriceX96 *big.Int, ethPriceUSD float64) float64 {
	if liquidity == nil || liquidity.Sign() == 0 || sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 || ethPriceUSD <= 0 {
		return 0
	}

	sqrtPrice := new(big.Float).Quo(new(big.Float).SetInt(sqrtPriceX96), q96)
	if sqrtPrice.Sign() == 0 {
		return 0
	}

	ethReserveWei := new(big.Float).Quo(new(big.Float).SetInt(liquidity), sqrtPrice)
	ethReserve := new(big.Float).Quo(ethReserveWei, big.NewFloat(weiPerEth))

	liquidityUSD := new(big.Float).Mul(ethReserve, big.NewFloat(2*ethPriceUSD))
	out, _ := liquidityUSD.Float64()
	if out < 0 {
		return 0
	}
	return out
}
