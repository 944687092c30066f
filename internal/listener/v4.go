package listener

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"basesniper/internal/dex"
	"basesniper/internal/enrich"
	"basesniper/internal/model"
	"basesniper/internal/priceest"
	"basesniper/internal/safety"
	"basesniper/internal/signal"
	"basesniper/internal/tracker"
)

type v4PoolInfo struct {
	token       string
	ethIsToken0 bool
}

// V4Listener turns Initialize/Swap events off the singleton PoolManager into
// TokenState updates.
type V4Listener struct {
	decoder   *dex.V4PoolManagerDecoder
	client    TxByHashClient
	scanner   *safety.Scanner
	oracle    *enrich.EthPriceOracle
	tracker   *tracker.Tracker
	engine    *signal.Engine
	logger    *zap.Logger
	cfg       Config
	metaCache *dex.TokenMetaCache

	mu    sync.RWMutex
	pools map[string]v4PoolInfo // poolID (lowercase hex) -> info
}

// NewV4Listener wires a V4Listener. metaCache may be nil to disable
// caching; callers wanting to share one cache across both listeners should
// pass the same instance to NewV3Listener too.
func NewV4Listener(client TxByHashClient, scanner *safety.Scanner, oracle *enrich.EthPriceOracle, tr *tracker.Tracker, engine *signal.Engine, metaCache *dex.TokenMetaCache, cfg Config, logger *zap.Logger) (*V4Listener, error) {
	decoder, err := dex.NewV4PoolManagerDecoder()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &V4Listener{
		decoder:   decoder,
		client:    client,
		scanner:   scanner,
		oracle:    oracle,
		tracker:   tr,
		engine:    engine,
		logger:    logger,
		cfg:       cfg,
		metaCache: metaCache,
		pools:     make(map[string]v4PoolInfo),
	}, nil
}

// Run consumes Initialize and Swap logs until ctx is cancelled.
func (l *V4Listener) Run(ctx context.Context, initLogs <-chan types.Log, swapLogs <-chan types.Log) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case logEntry := <-initLogs:
				l.handleInitialize(ctx, logEntry)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case logEntry := <-swapLogs:
				l.handleSwap(ctx, logEntry)
			}
		}
	}()
	wg.Wait()
}

func (l *V4Listener) handleInitialize(ctx context.Context, logEntry types.Log) {
	event, err := l.decoder.DecodeInitialize(&logEntry)
	if err != nil {
		l.logger.Debug("decode Initialize failed", zap.Error(err))
		return
	}

	hookSet := l.cfg.SafeHooks
	if hookSet == nil {
		hookSet = dex.DefaultSafeHooks
	}
	if _, ok := hookSet[strings.ToLower(event.Hooks)]; !ok {
		l.logger.Debug("pool skipped: hooks not allow-listed", zap.String("pool_id", event.PoolID), zap.String("hooks", event.Hooks))
		return
	}

	var token string
	var ethIsToken0 bool
	switch {
	case dex.IsEthSide(event.Currency0):
		ethIsToken0 = true
		token = event.Currency1
	case dex.IsEthSide(event.Currency1):
		ethIsToken0 = false
		token = event.Currency0
	default:
		l.logger.Debug("pool skipped: no ETH side", zap.String("pool_id", event.PoolID))
		return
	}

	poolKey := strings.ToLower(event.PoolID)
	l.mu.Lock()
	l.pools[poolKey] = v4PoolInfo{token: token, ethIsToken0: ethIsToken0}
	l.mu.Unlock()

	sqrtPrice, ok := new(big.Int).SetString(event.SqrtPriceX96, 10)
	if !ok {
		sqrtPrice = big.NewInt(0)
	}

	firstSeen := time.Now()
	state := l.tracker.Upsert(strings.ToLower(token), func() *model.TokenState {
		s := model.NewTokenState(strings.ToLower(token), poolKey, model.DexV4, logEntry.BlockNumber, firstSeen)
		s.HooksAddress = event.Hooks
		s.SqrtPriceX96 = sqrtPrice
		s.EstimatedMcap = priceest.EstimateMcap(sqrtPrice, ethIsToken0, l.oracle.Price())
		return s
	})

	go l.resolveDeployerAndScan(ctx, token, logEntry.TxHash)
	_ = state
}

func (l *V4Listener) resolveDeployerAndScan(ctx context.Context, token string, txHash common.Hash) {
	deployer, err := resolveDeployer(ctx, l.client, l.cfg.ChainID, txHash)
	if err != nil {
		l.logger.Debug("deployer resolution failed", zap.String("token", token), zap.Error(err))
	} else {
		l.tracker.Mutate(strings.ToLower(token), func(s *model.TokenState) {
			s.SetDeployer(deployer)
		})
	}

	meta, err := dex.FetchTokenMeta(ctx, l.client, l.metaCache, common.HexToAddress(token), l.logger)
	if err != nil {
		l.logger.Debug("token metadata fetch failed", zap.String("token", token), zap.Error(err))
	} else {
		l.tracker.Mutate(strings.ToLower(token), func(s *model.TokenState) {
			s.Symbol = meta.Symbol
			s.Name = meta.Name
		})
	}

	verdict, err := l.scanner.Scan(ctx, common.HexToAddress(token))
	if err != nil {
		l.logger.Debug("bytecode scan failed", zap.String("token", token), zap.Error(err))
		return
	}
	l.tracker.Mutate(strings.ToLower(token), func(s *model.TokenState) {
		s.SetBytecodeSafety(verdict)
		l.engine.Evaluate(s, time.Now())
	})
}

func (l *V4Listener) handleSwap(ctx context.Context, logEntry types.Log) {
	event, err := l.decoder.DecodeSwap(&logEntry)
	if err != nil {
		l.logger.Debug("decode Swap failed", zap.Error(err))
		return
	}

	poolKey := strings.ToLower(event.PoolID)
	l.mu.RLock()
	info, ok := l.pools[poolKey]
	l.mu.RUnlock()
	if !ok {
		return
	}

	amount0, _ := new(big.Int).SetString(event.Amount0, 10)
	amount1, _ := new(big.Int).SetString(event.Amount1, 10)
	sqrtPrice, _ := new(big.Int).SetString(event.SqrtPriceX96, 10)
	liquidity, _ := new(big.Int).SetString(event.Liquidity, 10)

	var ethRaw, tokenRaw *big.Int
	if info.ethIsToken0 {
		ethRaw, tokenRaw = amount0, amount1
	} else {
		ethRaw, tokenRaw = amount1, amount0
	}
	if ethRaw == nil || tokenRaw == nil {
		return
	}

	isBuy := tokenRaw.Sign() < 0

	ethValue := new(big.Float).Quo(new(big.Float).SetInt(new(big.Int).Abs(ethRaw)), big.NewFloat(1e18))
	ethPrice := l.oracle.Price()
	usdValue, _ := new(big.Float).Mul(ethValue, big.NewFloat(ethPrice)).Float64()

	// Buyer attribution for V4 pools is the swap's sender, per this
	// system's admission rules.
	buyer := event.Sender

	liquidityUSD := priceest.EstimateLiquidityUSD(liquidity, sqrtPrice, ethPrice)
	if liquidityUSD > 0 && liquidityUSD < l.cfg.IgnoreLiquidityBelow {
		l.untrack(poolKey, info.token)
		l.logger.Debug("token untracked: below ignore-liquidity-below floor",
			zap.String("token", info.token), zap.Float64("liquidity_usd", liquidityUSD))
		return
	}

	now := time.Now()
	l.tracker.Mutate(strings.ToLower(info.token), func(s *model.TokenState) {
		if isBuy {
			s.RecordBuy(buyer, usdValue)
			maybeAlertWhale(l.logger, l.cfg.WhaleAlertMinUSD, info.token, buyer, usdValue)
		} else {
			s.RecordSell()
		}
		s.SqrtPriceX96 = sqrtPrice
		mcap := priceest.EstimateMcap(sqrtPrice, info.ethIsToken0, ethPrice)
		s.ApplyOnChainEstimate(liquidityUSD, mcap)
		l.engine.Evaluate(s, now)
	})
}

// untrack drops a pool that's proven to be below the ignore-liquidity-below
// admission floor: it's the live-data counterpart of "skip tracking
// entirely" from the admission floor, applied as soon as liquidity is first
// observable (Initialize never carries a liquidity figure).
func (l *V4Listener) untrack(poolKey, token string) {
	l.mu.Lock()
	delete(l.pools, poolKey)
	l.mu.Unlock()
	l.tracker.Evict(strings.ToLower(token))
}
