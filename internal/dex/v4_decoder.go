package dex

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"basesniper/internal/model"
)

// V4PoolManagerDecoder decodes events off the singleton V4 PoolManager.
type V4PoolManagerDecoder struct {
	poolManagerABI abi.ABI
	initialize     abi.Event
	swap           abi.Event
}

// NewV4PoolManagerDecoder builds a decoder around the PoolManager ABI.
func NewV4PoolManagerDecoder() (*V4PoolManagerDecoder, error) {
	poolManagerABI, err := V4PoolManagerABI()
	if err != nil {
		return nil, err
	}
	return &V4PoolManagerDecoder{
		poolManagerABI: poolManagerABI,
		initialize:     poolManagerABI.Events["Initialize"],
		swap:           poolManagerABI.Events["Swap"],
	}, nil
}

// InitializeTopic0 returns the Initialize event signature hash.
func (d *V4PoolManagerDecoder) InitializeTopic0() common.Hash {
	return d.initialize.ID
}

// SwapTopic0 returns the Swap event signature hash.
func (d *V4PoolManagerDecoder) SwapTopic0() common.Hash {
	return d.swap.ID
}

// DecodeInitialize unpacks a raw log into V4InitializeEventData.
func (d *V4PoolManagerDecoder) DecodeInitialize(log *types.Log) (model.V4InitializeEventData, error) {
	event := d.initialize
	if len(log.Topics) != 4 {
		return model.V4InitializeEventData{}, fmt.Errorf("expected 4 topics, got %d", len(log.Topics))
	}

	var indexed struct {
		ID        [32]byte
		Currency0 common.Address
		Currency1 common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), log.Topics[1:]); err != nil {
		return model.V4InitializeEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.V4InitializeEventData{}, fmt.Errorf("unpack Initialize: %w", err)
	}
	if len(values) != 5 {
		return model.V4InitializeEventData{}, fmt.Errorf("unexpected Initialize values: %d", len(values))
	}

	feeBig, err := asBigInt(values[0])
	if err != nil {
		return model.V4InitializeEventData{}, err
	}
	tickSpacingBig, err := asBigInt(values[1])
	if err != nil {
		return model.V4InitializeEventData{}, err
	}
	tickSpacing, err := int24FromBig(tickSpacingBig)
	if err != nil {
		return model.V4InitializeEventData{}, err
	}
	hooks, err := asAddress(values[2])
	if err != nil {
		return model.V4InitializeEventData{}, err
	}
	sqrtPrice, err := asBigInt(values[3])
	if err != nil {
		return model.V4InitializeEventData{}, err
	}
	tickBig, err := asBigInt(values[4])
	if err != nil {
		return model.V4InitializeEventData{}, err
	}
	tick, err := int24FromBig(tickBig)
	if err != nil {
		return model.V4InitializeEventData{}, err
	}

	return model.V4InitializeEventData{
		PoolID:       common.Hash(indexed.ID).Hex(),
		Currency0:    indexed.Currency0.Hex(),
		Currency1:    indexed.Currency1.Hex(),
		Fee:          uint32(feeBig.Uint64()),
		TickSpacing:  tickSpacing,
		Hooks:        hooks.Hex(),
		SqrtPriceX96: sqrtPrice.String(),
		Tick:         tick,
	}, nil
}

// DecodeSwap unpacks a raw log into V4SwapEventData.
func (d *V4PoolManagerDecoder) DecodeSwap(log *types.Log) (model.V4SwapEventData, error) {
	event := d.swap
	if len(log.Topics) != 3 {
		return model.V4SwapEventData{}, fmt.Errorf("expected 3 topics, got %d", len(log.Topics))
	}

	var indexed struct {
		ID     [32]byte
		Sender common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), log.Topics[1:]); err != nil {
		return model.V4SwapEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.V4SwapEventData{}, fmt.Errorf("unpack Swap: %w", err)
	}
	if len(values) != 6 {
		return model.V4SwapEventData{}, fmt.Errorf("unexpected Swap values: %d", len(values))
	}

	amount0, err := asBigInt(values[0])
	if err != nil {
		return model.V4SwapEventData{}, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return model.V4SwapEventData{}, err
	}
	sqrtPrice, err := asBigInt(values[2])
	if err != nil {
		return model.V4SwapEventData{}, err
	}
	liquidity, err := asBigInt(values[3])
	if err != nil {
		return model.V4SwapEventData{}, err
	}
	tickBig, err := asBigInt(values[4])
	if err != nil {
		return model.V4SwapEventData{}, err
	}
	tick, err := int24FromBig(tickBig)
	if err != nil {
		return model.V4SwapEventData{}, err
	}
	feeBig, err := asBigInt(values[5])
	if err != nil {
		return model.V4SwapEventData{}, err
	}

	return model.V4SwapEventData{
		PoolID:       common.Hash(indexed.ID).Hex(),
		Sender:       indexed.Sender.Hex(),
		Amount0:      amount0.String(),
		Amount1:      amount1.String(),
		SqrtPriceX96: sqrtPrice.String(),
		Liquidity:    liquidity.String(),
		Tick:         tick,
		Fee:          uint32(feeBig.Uint64()),
	}, nil
}
