package listener

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"basesniper/internal/dex"
	"basesniper/internal/enrich"
	"basesniper/internal/safety"
	"basesniper/internal/signal"
	"basesniper/internal/tracker"
)

func buildLog(address common.Address, topic0 common.Hash, indexed []common.Hash, data []byte) types.Log {
	topics := append([]common.Hash{topic0}, indexed...)
	return types.Log{Address: address, Topics: topics, Data: data}
}

// fakeChainClient stubs the deployer-resolution and ERC20-metadata RPCs so
// listener tests never touch the network; both calls are allowed to fail,
// since the listener treats either failure as non-fatal.
type fakeChainClient struct{}

func (f *fakeChainClient) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	tx := types.NewTransaction(0, common.HexToAddress("0x1"), big.NewInt(0), 21000, big.NewInt(1), nil)
	return tx, false, nil
}

func (f *fakeChainClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, errNoCode
}

var errNoCode = errors.New("no contract code configured for this test")

type fakeCodeReader struct {
	code []byte
}

func (f *fakeCodeReader) CodeAt(ctx context.Context, address common.Address, blockNumber *big.Int) ([]byte, error) {
	return f.code, nil
}

func newPermissiveEngine() (*signal.Engine, chan signal.Signal) {
	out := make(chan signal.Signal, 8)
	engine := signal.NewEngine(signal.Config{
		MaxTokenAge:          time.Hour,
		MinLiquidityUSD:      0,
		MaxMcapUSD:           1e12,
		MinBuys:              0,
		MinLargestBuyPct:     0,
		MaxDeployerTokens24h: 100,
		MaxSignalsPerHour:    100,
	}, signal.NewDeployerHistory(24*time.Hour), signal.NewRateLimiter(100, time.Hour), signal.NewDeDupSet(), out, zap.NewNop())
	return engine, out
}

func newTestV4Listener(t *testing.T) (*V4Listener, *tracker.Tracker) {
	t.Helper()
	tr := tracker.New(5*time.Minute, zap.NewNop())
	engine, _ := newPermissiveEngine()

	safeCode, _ := hex.DecodeString("60806040")
	scanner := safety.NewScanner(&fakeCodeReader{code: safeCode}, time.Second, zap.NewNop())
	oracle := enrich.NewEthPriceOracle(enrich.NewClient(), time.Hour, zap.NewNop())

	l, err := NewV4Listener(&fakeChainClient{}, scanner, oracle, tr, engine, dex.NewTokenMetaCache(), Config{ChainID: big.NewInt(8453)}, zap.NewNop())
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	return l, tr
}

func TestV4HandleInitializeTracksTokenWithEthSide(t *testing.T) {
	l, tr := newTestV4Listener(t)

	poolManagerABI, err := dex.V4PoolManagerABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}

	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	hooks := common.HexToAddress(dex.ETHNative)
	poolID := common.HexToHash("0x01")

	data, err := poolManagerABI.Events["Initialize"].Inputs.NonIndexed().Pack(
		big.NewInt(3000), big.NewInt(60), hooks, bigIntFromString("79228162514264337593543950336"), big.NewInt(10),
	)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	logEntry := buildLog(common.HexToAddress(dex.V4PoolManager), l.decoder.InitializeTopic0(), []common.Hash{
		poolID,
		common.BytesToHash(common.HexToAddress(dex.ETHNative).Bytes()),
		common.BytesToHash(token.Bytes()),
	}, data)

	l.handleInitialize(context.Background(), logEntry)

	state, ok := tr.View(tokenKey(token))
	if !ok {
		t.Fatalf("expected token to be tracked")
	}
	if state.DexVersion != "v4" {
		t.Fatalf("expected v4 dex version, got %v", state.DexVersion)
	}
	// The test oracle never refreshes, so its ETH/USD price is 0 and the
	// USD mcap estimate stays 0 until a price is known.
	if state.EstimatedMcap != 0 {
		t.Fatalf("expected no mcap estimate without an ETH/USD price, got %v", state.EstimatedMcap)
	}
}

func TestV4HandleInitializeSkipsUnsafeHooks(t *testing.T) {
	l, tr := newTestV4Listener(t)

	poolManagerABI, err := dex.V4PoolManagerABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}

	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	hooks := common.HexToAddress("0x9999999999999999999999999999999999999999")
	poolID := common.HexToHash("0x03")

	data, err := poolManagerABI.Events["Initialize"].Inputs.NonIndexed().Pack(
		big.NewInt(3000), big.NewInt(60), hooks, bigIntFromString("79228162514264337593543950336"), big.NewInt(10),
	)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	logEntry := buildLog(common.HexToAddress(dex.V4PoolManager), l.decoder.InitializeTopic0(), []common.Hash{
		poolID,
		common.BytesToHash(common.HexToAddress(dex.ETHNative).Bytes()),
		common.BytesToHash(token.Bytes()),
	}, data)

	l.handleInitialize(context.Background(), logEntry)

	if _, ok := tr.View(tokenKey(token)); ok {
		t.Fatalf("expected a pool with unlisted hooks to be skipped")
	}
}

func TestV4HandleSwapRecordsBuy(t *testing.T) {
	l, tr := newTestV4Listener(t)

	poolManagerABI, err := dex.V4PoolManagerABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}

	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	hooks := common.HexToAddress(dex.ETHNative)
	poolID := common.HexToHash("0x01")

	initData, err := poolManagerABI.Events["Initialize"].Inputs.NonIndexed().Pack(
		big.NewInt(3000), big.NewInt(60), hooks, bigIntFromString("79228162514264337593543950336"), big.NewInt(10),
	)
	if err != nil {
		t.Fatalf("pack init: %v", err)
	}
	initLog := buildLog(common.HexToAddress(dex.V4PoolManager), l.decoder.InitializeTopic0(), []common.Hash{
		poolID,
		common.BytesToHash(common.HexToAddress(dex.ETHNative).Bytes()),
		common.BytesToHash(token.Bytes()),
	}, initData)
	l.handleInitialize(context.Background(), initLog)

	sender := common.HexToAddress("0x4444444444444444444444444444444444444444")
	// Token side went negative (the pool paid out tokens): this is a buy.
	swapData, err := poolManagerABI.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(1e15), big.NewInt(-1000), bigIntFromString("79228162514264337593543950336"), big.NewInt(5000), big.NewInt(1), big.NewInt(3000),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}
	swapLog := buildLog(common.HexToAddress(dex.V4PoolManager), l.decoder.SwapTopic0(), []common.Hash{
		poolID,
		common.BytesToHash(sender.Bytes()),
	}, swapData)

	l.handleSwap(context.Background(), swapLog)

	state, ok := tr.View(tokenKey(token))
	if !ok {
		t.Fatalf("expected token to be tracked")
	}
	if state.TotalBuys != 1 {
		t.Fatalf("expected one recorded buy, got %d", state.TotalBuys)
	}
	if _, ok := state.UniqueBuyers[sender.Hex()]; !ok {
		t.Fatalf("expected sender to be recorded as the buyer (V4 attribution)")
	}
}

func tokenKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
