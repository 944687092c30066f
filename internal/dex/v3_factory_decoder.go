package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"basesniper/internal/model"
)

// V3FactoryDecoder decodes PoolCreated events off the Uniswap V3 factory.
type V3FactoryDecoder struct {
	factoryABI  abi.ABI
	poolCreated abi.Event
}

// NewV3FactoryDecoder builds a decoder around the factory ABI.
func NewV3FactoryDecoder() (*V3FactoryDecoder, error) {
	factoryABI, err := V3FactoryABI()
	if err != nil {
		return nil, err
	}
	return &V3FactoryDecoder{factoryABI: factoryABI, poolCreated: factoryABI.Events["PoolCreated"]}, nil
}

// Topic0 returns the PoolCreated event signature hash.
func (d *V3FactoryDecoder) Topic0() common.Hash {
	return d.poolCreated.ID
}

// DecodePoolCreated unpacks a raw log into PoolCreatedEventData.
func (d *V3FactoryDecoder) DecodePoolCreated(log *types.Log) (model.PoolCreatedEventData, error) {
	event := d.poolCreated
	if len(log.Topics) != 4 {
		return model.PoolCreatedEventData{}, fmt.Errorf("expected 4 topics, got %d", len(log.Topics))
	}

	var indexed struct {
		Token0 common.Address
		Token1 common.Address
		Fee    *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), log.Topics[1:]); err != nil {
		return model.PoolCreatedEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.PoolCreatedEventData{}, fmt.Errorf("unpack PoolCreated: %w", err)
	}
	if len(values) != 2 {
		return model.PoolCreatedEventData{}, fmt.Errorf("unexpected PoolCreated values: %d", len(values))
	}

	tickSpacingBig, err := asBigInt(values[0])
	if err != nil {
		return model.PoolCreatedEventData{}, err
	}
	tickSpacing, err := int24FromBig(tickSpacingBig)
	if err != nil {
		return model.PoolCreatedEventData{}, err
	}
	pool, err := asAddress(values[1])
	if err != nil {
		return model.PoolCreatedEventData{}, err
	}

	return model.PoolCreatedEventData{
		Token0:      indexed.Token0.Hex(),
		Token1:      indexed.Token1.Hex(),
		Fee:         uint32(indexed.Fee.Uint64()),
		TickSpacing: tickSpacing,
		Pool:        pool.Hex(),
	}, nil
}
