package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func buildTypedLog(address common.Address, topic0 common.Hash, indexed []common.Hash, data []byte) *types.Log {
	topics := append([]common.Hash{topic0}, indexed...)
	return &types.Log{Address: address, Topics: topics, Data: data}
}

func TestV3FactoryDecoderPoolCreated(t *testing.T) {
	factoryABI, err := V3FactoryABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewV3FactoryDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	token0 := common.HexToAddress(WETH)
	token1 := common.HexToAddress("0x1234567890123456789012345678901234567890")
	pool := common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	fee := big.NewInt(3000)

	data, err := factoryABI.Events["PoolCreated"].Inputs.NonIndexed().Pack(big.NewInt(60), pool)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	feeTopic := common.BigToHash(fee)
	log := buildTypedLog(common.HexToAddress(V3Factory), decoder.Topic0(), []common.Hash{
		common.BytesToHash(token0.Bytes()),
		common.BytesToHash(token1.Bytes()),
		feeTopic,
	}, data)

	event, err := decoder.DecodePoolCreated(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Token0 != token0.Hex() || event.Token1 != token1.Hex() {
		t.Fatalf("token mismatch: %+v", event)
	}
	if event.Fee != 3000 {
		t.Fatalf("fee mismatch: %d", event.Fee)
	}
	if event.TickSpacing != 60 {
		t.Fatalf("tick spacing mismatch: %d", event.TickSpacing)
	}
	if event.Pool != pool.Hex() {
		t.Fatalf("pool mismatch: %s", event.Pool)
	}
}
