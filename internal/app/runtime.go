// Package app wires the chain client, listeners, enrichment loop, signal
// engine, and output sinks into one running process.
package app

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"basesniper/internal/chain"
	"basesniper/internal/config"
	"basesniper/internal/dex"
	"basesniper/internal/enrich"
	"basesniper/internal/journal"
	"basesniper/internal/listener"
	"basesniper/internal/model"
	"basesniper/internal/output"
	"basesniper/internal/safety"
	"basesniper/internal/signal"
	"basesniper/internal/tracker"
)

// baseChainID is fixed: this system only ever watches Base mainnet.
var baseChainID = big.NewInt(8453)

// Runtime holds every collaborator wired together for one run.
type Runtime struct {
	cfg    config.Config
	logger *zap.Logger

	chainClient *chain.Client
	stream      *chain.Stream
	tracker     *tracker.Tracker
	engine      *signal.Engine
	oracle      *enrich.EthPriceOracle
	enrichLoop  *enrich.Loop
	scanner     *safety.Scanner
	v3Listener  *listener.V3Listener
	v4Listener  *listener.V4Listener
	sender      output.Sender
	journal     *journal.Journal

	signals chan signal.Signal
}

// New builds a Runtime from cfg. It dials the chain client and, if
// configured, the journal's Postgres pool; neither starts doing work until
// Run is called.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Runtime, error) {
	chainClient, err := chain.NewClient(ctx, cfg.ChainWSSEndpoint)
	if err != nil {
		return nil, err
	}

	j, err := journal.New(ctx, cfg.JournalDSN)
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	tr := tracker.New(cfg.TokenTTL, logger)

	signals := make(chan signal.Signal, 32)
	engineCfg := signal.Config{
		MaxTokenAge:          cfg.MaxTokenAge,
		MinLiquidityUSD:      cfg.MinLiquidityUSD,
		MaxMcapUSD:           cfg.MaxMcapUSD,
		MinBuys:              cfg.MinBuys,
		MinLargestBuyPct:     cfg.MinLargestBuyPct,
		MaxDeployerTokens24h: cfg.MaxDeployerTokens24h,
		MaxSignalsPerHour:    cfg.MaxSignalsPerHour,
		MaxSignalLatency:     cfg.MaxSignalLatency,
	}
	deployers := signal.NewDeployerHistory(24 * time.Hour)
	limiter := signal.NewRateLimiter(cfg.MaxSignalsPerHour, time.Hour)
	dedup := signal.NewDeDupSet()
	engine := signal.NewEngine(engineCfg, deployers, limiter, dedup, signals, logger)
	engine.OnReject = func(state *model.TokenState, reason string, terminal bool) {
		if !terminal {
			return
		}
		if err := j.RecordReject(ctx, state, time.Now()); err != nil {
			logger.Debug("journal record reject failed", zap.Error(err))
		}
	}

	scanner := safety.NewScanner(chainClient, cfg.SafetyScanTimeout, logger)

	enrichClient := enrich.NewClient()
	oracle := enrich.NewEthPriceOracle(enrichClient, cfg.EthPriceRefresh, logger)
	enrichLoop := enrich.NewLoop(enrichClient, oracle, tr, engine, cfg.EnrichConcurrency, cfg.EnrichTickInterval, cfg.EnrichRefreshEvery, logger)

	listenerCfg := listener.Config{
		ChainID:              baseChainID,
		WhaleAlertMinUSD:     cfg.WhaleAlertMinUSD,
		SafetyScanTimeout:    cfg.SafetyScanTimeout,
		SafeHooks:            dex.BuildHookSet(cfg.SafeHooks),
		IgnoreLiquidityBelow: cfg.IgnoreLiquidityBelow,
	}

	metaCache := dex.NewTokenMetaCache()

	v3Listener, err := listener.NewV3Listener(chainClient, scanner, oracle, tr, engine, metaCache, listenerCfg, logger)
	if err != nil {
		chainClient.Close()
		return nil, err
	}
	v4Listener, err := listener.NewV4Listener(chainClient, scanner, oracle, tr, engine, metaCache, listenerCfg, logger)
	if err != nil {
		chainClient.Close()
		return nil, err
	}

	var sender output.Sender
	if cfg.DryRun || cfg.OutputWebhookURL == "" {
		sender = output.NewLoggerSender(logger)
	} else {
		sender = output.NewWebhookSender(cfg.OutputWebhookURL, logger)
	}

	return &Runtime{
		cfg:         cfg,
		logger:      logger,
		chainClient: chainClient,
		stream:      chain.NewStream(chainClient, logger),
		tracker:     tr,
		engine:      engine,
		oracle:      oracle,
		enrichLoop:  enrichLoop,
		scanner:     scanner,
		v3Listener:  v3Listener,
		v4Listener:  v4Listener,
		sender:      sender,
		journal:     j,
		signals:     signals,
	}, nil
}

// Close releases the chain connection and journal pool.
func (r *Runtime) Close() {
	r.chainClient.Close()
	r.journal.Close()
}

// Run starts every subscription, the enrichment loop, the price oracle, the
// output dispatcher, and the tracker sweep, blocking until ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) {
	v3FactoryAddr := common.HexToAddress(dex.V3Factory)
	v4PoolManagerAddr := common.HexToAddress(dex.V4PoolManager)

	v3PoolCreated := make(chan types.Log, 256)
	v3Swaps := make(chan types.Log, 1024)
	v4Init := make(chan types.Log, 256)
	v4Swaps := make(chan types.Log, 1024)

	v3FactoryABI, err := dex.V3FactoryABI()
	if err != nil {
		r.logger.Error("load v3 factory abi", zap.Error(err))
		return
	}
	v4ABI, err := dex.V4PoolManagerABI()
	if err != nil {
		r.logger.Error("load v4 pool manager abi", zap.Error(err))
		return
	}

	go r.stream.Run(ctx, "v3-pool-created", ethereum.FilterQuery{
		Addresses: []common.Address{v3FactoryAddr},
		Topics:    [][]common.Hash{{v3FactoryABI.Events["PoolCreated"].ID}},
	}, v3PoolCreated)

	// V3 Swap events come from every individual pool contract; there is no
	// single address to scope this subscription to, so it filters on
	// topic0 alone and pool membership is checked in-process.
	go r.stream.Run(ctx, "v3-swap", ethereum.FilterQuery{
		Topics: [][]common.Hash{{r.v3Listener.SwapTopic0()}},
	}, v3Swaps)

	go r.stream.Run(ctx, "v4-initialize", ethereum.FilterQuery{
		Addresses: []common.Address{v4PoolManagerAddr},
		Topics:    [][]common.Hash{{v4ABI.Events["Initialize"].ID}},
	}, v4Init)

	go r.stream.Run(ctx, "v4-swap", ethereum.FilterQuery{
		Addresses: []common.Address{v4PoolManagerAddr},
		Topics:    [][]common.Hash{{v4ABI.Events["Swap"].ID}},
	}, v4Swaps)

	go r.v3Listener.Run(ctx, v3PoolCreated, v3Swaps)
	go r.v4Listener.Run(ctx, v4Init, v4Swaps)
	go r.oracle.Run(ctx)
	go r.enrichLoop.Run(ctx)
	go r.runSweeper(ctx)
	go r.dispatchSignals(ctx)

	<-ctx.Done()
}

func (r *Runtime) runSweeper(ctx context.Context) {
	interval := r.cfg.TrackerSweepEvery
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tracker.Sweep(time.Now())
		}
	}
}

func (r *Runtime) dispatchSignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-r.signals:
			if err := r.sender.Send(ctx, sig); err != nil {
				r.logger.Warn("output send failed", zap.String("token", sig.TokenAddress), zap.Error(err))
			}
			if err := r.journal.RecordSignal(ctx, sig); err != nil {
				r.logger.Debug("journal record signal failed", zap.Error(err))
			}
		}
	}
}
