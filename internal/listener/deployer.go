// Package listener turns raw factory/pool-manager logs into TokenState
// updates and drives the signal engine off them.
package listener

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"basesniper/internal/chain"
)

// TxByHashClient is the chain dependency both listeners need: recovering a
// pool's deployer from its creation transaction, and calling ERC20 methods
// to fill in a token's symbol/name.
type TxByHashClient interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// resolveDeployer recovers the sender of the pool-creation transaction as a
// pragmatic stand-in for "who deployed this token." It costs one extra RPC
// call per pool but needs no receipt lookup: the signer can recover the
// sender straight from the transaction's signature.
func resolveDeployer(ctx context.Context, client TxByHashClient, chainID *big.Int, txHash common.Hash) (string, error) {
	var tx *types.Transaction
	err := chain.WithRetry(ctx, 2, 200*time.Millisecond, func(ctx context.Context) error {
		fetched, _, fetchErr := client.TransactionByHash(ctx, txHash)
		if fetchErr != nil {
			return fetchErr
		}
		tx = fetched
		return nil
	})
	if err != nil {
		return "", err
	}
	signer := types.LatestSignerForChainID(chainID)
	sender, err := types.Sender(signer, tx)
	if err != nil {
		return "", err
	}
	return sender.Hex(), nil
}
