package listener

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
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

type v3PoolInfo struct {
	token       string
	ethIsToken0 bool
}

// V3Listener turns Uniswap V3 PoolCreated (factory-scoped) and Swap
// (pool-scoped, subscribed across every pool address at once) events into
// TokenState updates.
type V3Listener struct {
	factoryDecoder *dex.V3FactoryDecoder
	client         TxByHashClient
	scanner        *safety.Scanner
	oracle         *enrich.EthPriceOracle
	tracker        *tracker.Tracker
	engine         *signal.Engine
	logger         *zap.Logger
	cfg            Config // shared threshold/timeout knobs
	metaCache      *dex.TokenMetaCache

	mu    sync.RWMutex
	pools map[string]v3PoolInfo // pool address (lowercase hex) -> info

	swapTopic0 common.Hash
}

// NewV3Listener wires a V3Listener. metaCache may be nil to disable
// caching; callers wanting to share one cache across both listeners should
// pass the same instance to NewV4Listener too.
func NewV3Listener(client TxByHashClient, scanner *safety.Scanner, oracle *enrich.EthPriceOracle, tr *tracker.Tracker, engine *signal.Engine, metaCache *dex.TokenMetaCache, cfg Config, logger *zap.Logger) (*V3Listener, error) {
	factoryDecoder, err := dex.NewV3FactoryDecoder()
	if err != nil {
		return nil, err
	}
	poolABI, err := dex.V3PoolABI()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &V3Listener{
		factoryDecoder: factoryDecoder,
		client:         client,
		scanner:        scanner,
		oracle:         oracle,
		tracker:        tr,
		engine:         engine,
		logger:         logger,
		cfg:            cfg,
		metaCache:      metaCache,
		pools:          make(map[string]v3PoolInfo),
		swapTopic0:     poolABI.Events["Swap"].ID,
	}, nil
}

// SwapTopic0 returns the pool Swap event signature, for building the
// unfiltered-address subscription query that spans every V3 pool at once.
func (l *V3Listener) SwapTopic0() common.Hash {
	return l.swapTopic0
}

// Run consumes PoolCreated and global Swap logs until ctx is cancelled.
func (l *V3Listener) Run(ctx context.Context, poolCreatedLogs <-chan types.Log, swapLogs <-chan types.Log) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case logEntry := <-poolCreatedLogs:
				l.handlePoolCreated(ctx, logEntry)
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

func (l *V3Listener) handlePoolCreated(ctx context.Context, logEntry types.Log) {
	event, err := l.factoryDecoder.DecodePoolCreated(&logEntry)
	if err != nil {
		l.logger.Debug("decode PoolCreated failed", zap.Error(err))
		return
	}

	var token string
	var ethIsToken0 bool
	switch {
	case dex.IsEthSide(event.Token0):
		ethIsToken0 = true
		token = event.Token1
	case dex.IsEthSide(event.Token1):
		ethIsToken0 = false
		token = event.Token0
	default:
		l.logger.Debug("pool skipped: no ETH side", zap.String("pool", event.Pool))
		return
	}

	poolKey := strings.ToLower(event.Pool)
	l.mu.Lock()
	l.pools[poolKey] = v3PoolInfo{token: token, ethIsToken0: ethIsToken0}
	l.mu.Unlock()

	firstSeen := time.Now()
	l.tracker.Upsert(strings.ToLower(token), func() *model.TokenState {
		return model.NewTokenState(strings.ToLower(token), poolKey, model.DexV3, logEntry.BlockNumber, firstSeen)
	})

	go l.resolveDeployerAndScan(ctx, token, logEntry.TxHash)
}

func (l *V3Listener) resolveDeployerAndScan(ctx context.Context, token string, txHash common.Hash) {
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

func (l *V3Listener) handleSwap(ctx context.Context, logEntry types.Log) {
	poolKey := strings.ToLower(logEntry.Address.Hex())
	l.mu.RLock()
	info, ok := l.pools[poolKey]
	l.mu.RUnlock()
	if !ok {
		// Swap on a pool we never admitted (no ETH side, or we haven't
		// seen its PoolCreated yet); not our concern.
		return
	}

	poolABI, err := dex.V3PoolABI()
	if err != nil {
		return
	}
	swapEvent := poolABI.Events["Swap"]
	if len(logEntry.Topics) != 3 {
		return
	}

	var indexedArgs abi.Arguments
	for _, arg := range swapEvent.Inputs {
		if arg.Indexed {
			indexedArgs = append(indexedArgs, arg)
		}
	}

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArgs, logEntry.Topics[1:]); err != nil {
		l.logger.Debug("parse V3 swap topics failed", zap.Error(err))
		return
	}

	values, err := swapEvent.Inputs.NonIndexed().Unpack(logEntry.Data)
	if err != nil || len(values) != 5 {
		l.logger.Debug("unpack V3 swap failed", zap.Error(err))
		return
	}

	amount0, _ := values[0].(*big.Int)
	amount1, _ := values[1].(*big.Int)
	sqrtPrice, _ := values[2].(*big.Int)
	liquidity, _ := values[3].(*big.Int)

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

	// Buyer attribution for V3 pools is the swap's recipient, per this
	// system's admission rules (the asymmetry with V4's sender is
	// intentional, not a bug: see the accompanying design notes).
	buyer := indexed.Recipient.Hex()

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
// observable (PoolCreated/Initialize never carry a liquidity figure).
func (l *V3Listener) untrack(poolKey, token string) {
	l.mu.Lock()
	delete(l.pools, poolKey)
	l.mu.Unlock()
	l.tracker.Evict(strings.ToLower(token))
}
