package listener

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"basesniper/internal/dex"
	"basesniper/internal/enrich"
	"basesniper/internal/safety"
	"basesniper/internal/tracker"
)

func newTestV3Listener(t *testing.T) (*V3Listener, *tracker.Tracker) {
	t.Helper()
	tr := tracker.New(5*time.Minute, zap.NewNop())
	engine, _ := newPermissiveEngine()

	safeCode, _ := hex.DecodeString("60806040")
	scanner := safety.NewScanner(&fakeCodeReader{code: safeCode}, time.Second, zap.NewNop())
	oracle := enrich.NewEthPriceOracle(enrich.NewClient(), time.Hour, zap.NewNop())

	l, err := NewV3Listener(&fakeChainClient{}, scanner, oracle, tr, engine, dex.NewTokenMetaCache(), Config{ChainID: big.NewInt(8453)}, zap.NewNop())
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	return l, tr
}

func TestV3HandlePoolCreatedTracksEthSideToken(t *testing.T) {
	l, tr := newTestV3Listener(t)

	factoryABI, err := dex.V3FactoryABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}

	weth := common.HexToAddress(dex.WETH)
	token := common.HexToAddress("0x1234567890123456789012345678901234567890")
	pool := common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	fee := big.NewInt(3000)

	data, err := factoryABI.Events["PoolCreated"].Inputs.NonIndexed().Pack(big.NewInt(60), pool)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	logEntry := buildLog(common.HexToAddress(dex.V3Factory), l.factoryDecoder.Topic0(), []common.Hash{
		common.BytesToHash(weth.Bytes()),
		common.BytesToHash(token.Bytes()),
		common.BigToHash(fee),
	}, data)

	l.handlePoolCreated(context.Background(), logEntry)

	state, ok := tr.View(tokenKey(token))
	if !ok {
		t.Fatalf("expected token to be tracked")
	}
	if state.DexVersion != "v3" {
		t.Fatalf("expected v3 dex version, got %v", state.DexVersion)
	}
	if state.PairAddress != tokenKey(pool) {
		t.Fatalf("expected pair address %s, got %s", tokenKey(pool), state.PairAddress)
	}
}

func TestV3HandlePoolCreatedSkipsNonEthPair(t *testing.T) {
	l, tr := newTestV3Listener(t)

	factoryABI, err := dex.V3FactoryABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}

	tokenA := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB := common.HexToAddress("0x2222222222222222222222222222222222222222")
	pool := common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")

	data, err := factoryABI.Events["PoolCreated"].Inputs.NonIndexed().Pack(big.NewInt(60), pool)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	logEntry := buildLog(common.HexToAddress(dex.V3Factory), l.factoryDecoder.Topic0(), []common.Hash{
		common.BytesToHash(tokenA.Bytes()),
		common.BytesToHash(tokenB.Bytes()),
		common.BigToHash(big.NewInt(3000)),
	}, data)

	l.handlePoolCreated(context.Background(), logEntry)

	if _, ok := tr.View(tokenKey(tokenA)); ok {
		t.Fatalf("expected neither-side-WETH pool to be skipped")
	}
	if _, ok := tr.View(tokenKey(tokenB)); ok {
		t.Fatalf("expected neither-side-WETH pool to be skipped")
	}
}

func TestV3HandleSwapAttributesBuyerAsRecipient(t *testing.T) {
	l, tr := newTestV3Listener(t)

	factoryABI, err := dex.V3FactoryABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	poolABI, err := dex.V3PoolABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}

	weth := common.HexToAddress(dex.WETH)
	token := common.HexToAddress("0x1234567890123456789012345678901234567890")
	pool := common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")

	createData, err := factoryABI.Events["PoolCreated"].Inputs.NonIndexed().Pack(big.NewInt(60), pool)
	if err != nil {
		t.Fatalf("pack created: %v", err)
	}
	createdLog := buildLog(common.HexToAddress(dex.V3Factory), l.factoryDecoder.Topic0(), []common.Hash{
		common.BytesToHash(weth.Bytes()),
		common.BytesToHash(token.Bytes()),
		common.BigToHash(big.NewInt(3000)),
	}, createData)
	l.handlePoolCreated(context.Background(), createdLog)

	sender := common.HexToAddress("0x5555555555555555555555555555555555555555")
	recipient := common.HexToAddress("0x6666666666666666666666666666666666666666")

	// token0 is WETH in this pool, so a positive amount0/negative amount1
	// means the pool paid out tokens: a buy.
	swapData, err := poolABI.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(1e15), big.NewInt(-1000), bigIntFromString("79228162514264337593543950336"), big.NewInt(5000), big.NewInt(1),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}
	swapLog := buildLog(pool, l.SwapTopic0(), []common.Hash{
		common.BytesToHash(sender.Bytes()),
		common.BytesToHash(recipient.Bytes()),
	}, swapData)

	l.handleSwap(context.Background(), swapLog)

	state, ok := tr.View(tokenKey(token))
	if !ok {
		t.Fatalf("expected token to be tracked")
	}
	if state.TotalBuys != 1 {
		t.Fatalf("expected one recorded buy, got %d", state.TotalBuys)
	}
	if _, ok := state.UniqueBuyers[recipient.Hex()]; !ok {
		t.Fatalf("expected recipient to be recorded as the buyer (V3 attribution)")
	}
	if _, ok := state.UniqueBuyers[sender.Hex()]; ok {
		t.Fatalf("sender should not be credited as the buyer for a V3 swap")
	}
}
