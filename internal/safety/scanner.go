// Package safety performs a best-effort bytecode scan for owner-controlled
// rug machinery: mint/blacklist/tax selectors and minimal-proxy preludes
// that hide the real logic behind an unscanned implementation contract.
package safety

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"basesniper/internal/chain"
	"basesniper/internal/dex"
	"basesniper/internal/model"
)

// ChainCodeReader is the subset of chain.Client the scanner calls against.
type ChainCodeReader interface {
	CodeAt(ctx context.Context, address common.Address, blockNumber *big.Int) ([]byte, error)
}

// Scanner inspects a token's deployed bytecode for dangerous selectors and
// proxy patterns. It never blocks the caller beyond its configured timeout;
// on any failure the verdict stays unknown rather than being guessed.
type Scanner struct {
	reader  ChainCodeReader
	timeout time.Duration
	logger  *zap.Logger
}

// NewScanner builds a Scanner with the given per-call timeout.
func NewScanner(reader ChainCodeReader, timeout time.Duration, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Scanner{reader: reader, timeout: timeout, logger: logger}
}

// Scan fetches the bytecode at token and returns a safety verdict. A failed
// or timed-out fetch returns model.SafetyUnknown with an error, which the
// caller should treat as "try again later" rather than unsafe.
func (s *Scanner) Scan(ctx context.Context, token common.Address) (model.BytecodeSafety, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var code []byte
	err := chain.WithRetry(ctx, 2, 200*time.Millisecond, func(ctx context.Context) error {
		fetched, fetchErr := s.reader.CodeAt(ctx, token, nil)
		if fetchErr != nil {
			return fetchErr
		}
		code = fetched
		return nil
	})
	if err != nil {
		s.logger.Debug("bytecode fetch failed", zap.String("token", token.Hex()), zap.Error(err))
		return model.SafetyUnknown, err
	}
	if len(code) == 0 {
		// No code at all at the supposed token address: either it hasn't
		// deployed yet or it self-destructed. Either way, unsafe to touch.
		return model.SafetyUnsafe, nil
	}

	return classify(code), nil
}

// classify applies the hard "any critical pattern -> unsafe" rule: a single
// dangerous selector or proxy prelude is enough to reject, no scoring.
func classify(code []byte) model.BytecodeSafety {
	hexCode := hex.EncodeToString(code)

	for selector := range dex.DangerousSelectors {
		if strings.Contains(hexCode, selector) {
			return model.SafetyUnsafe
		}
	}
	for _, pattern := range dex.ProxyPatterns {
		if strings.Contains(hexCode, pattern) {
			return model.SafetyUnsafe
		}
	}
	return model.SafetySafe
}
