package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestV4PoolManagerDecoderInitialize(t *testing.T) {
	poolManagerABI, err := V4PoolManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewV4PoolManagerDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	poolID := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	currency0 := common.HexToAddress(ETHNative)
	currency1 := common.HexToAddress("0x2222222222222222222222222222222222222222")
	hooks := common.HexToAddress(ETHNative)

	data, err := poolManagerABI.Events["Initialize"].Inputs.NonIndexed().Pack(
		big.NewInt(3000),
		big.NewInt(60),
		hooks,
		bigIntFromString("79228162514264337593543950336"),
		big.NewInt(10),
	)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	log := buildTypedLog(common.HexToAddress(V4PoolManager), decoder.InitializeTopic0(), []common.Hash{
		poolID,
		common.BytesToHash(currency0.Bytes()),
		common.BytesToHash(currency1.Bytes()),
	}, data)

	event, err := decoder.DecodeInitialize(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Currency0 != currency0.Hex() || event.Currency1 != currency1.Hex() {
		t.Fatalf("currency mismatch: %+v", event)
	}
	if event.Fee != 3000 || event.TickSpacing != 60 {
		t.Fatalf("fee/tick mismatch: %+v", event)
	}
	if event.Hooks != hooks.Hex() {
		t.Fatalf("hooks mismatch: %s", event.Hooks)
	}
	if !IsSafeHook(event.Hooks) {
		t.Fatalf("expected zero-address hooks to be on the safe list")
	}
}

func TestV4PoolManagerDecoderSwap(t *testing.T) {
	poolManagerABI, err := V4PoolManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewV4PoolManagerDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	poolID := common.HexToHash("0x3333333333333333333333333333333333333333333333333333333333333333")
	sender := common.HexToAddress("0x4444444444444444444444444444444444444444")

	data, err := poolManagerABI.Events["Swap"].Inputs.NonIndexed().Pack(
		big.NewInt(-500),
		big.NewInt(1000),
		big.NewInt(123456789),
		big.NewInt(987654321),
		big.NewInt(-42),
		big.NewInt(3000),
	)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	log := buildTypedLog(common.HexToAddress(V4PoolManager), decoder.SwapTopic0(), []common.Hash{
		poolID,
		common.BytesToHash(sender.Bytes()),
	}, data)

	event, err := decoder.DecodeSwap(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Sender != sender.Hex() {
		t.Fatalf("sender mismatch: %s", event.Sender)
	}
	if event.Amount0 != "-500" || event.Amount1 != "1000" {
		t.Fatalf("amounts mismatch: %+v", event)
	}
	if event.Tick != -42 {
		t.Fatalf("tick mismatch: %d", event.Tick)
	}
	if event.Fee != 3000 {
		t.Fatalf("fee mismatch: %d", event.Fee)
	}
}
