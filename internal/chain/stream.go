package chain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Stream keeps a live log subscription alive for the lifetime of ctx,
// reconnecting with exponential backoff whenever the underlying
// websocket subscription errors out or closes.
type Stream struct {
	client *Client
	logger *zap.Logger

	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewStream builds a Stream against an already-dialed Client.
func NewStream(client *Client, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		client:    client,
		logger:    logger,
		baseDelay: time.Second,
		maxDelay:  30 * time.Second,
	}
}

// Run subscribes to query and forwards every log to out until ctx is
// cancelled. It never returns on its own except when ctx is done; transport
// failures are logged and retried with backoff.
func (s *Stream) Run(ctx context.Context, name string, query ethereum.FilterQuery, out chan<- types.Log) {
	nextDelay := backoffSequence(s.baseDelay, s.maxDelay)

	for {
		if ctx.Err() != nil {
			return
		}

		logs := make(chan types.Log, 256)
		sub, err := s.client.SubscribeFilterLogs(ctx, query, logs)
		if err != nil {
			s.logger.Warn("subscribe failed, retrying", zap.String("stream", name), zap.Error(err))
			if !s.sleep(ctx, nextDelay()) {
				return
			}
			continue
		}

		s.logger.Info("subscription established", zap.String("stream", name))
		// A successful connection resets backoff: the next drop starts
		// reconnecting from baseDelay again rather than from wherever the
		// previous retry sequence left off.
		nextDelay = backoffSequence(s.baseDelay, s.maxDelay)

		if !s.drain(ctx, sub, logs, out, name) {
			return
		}
	}
}

// drain forwards logs to out until the subscription errors, closes, or ctx
// is cancelled. Returns false when the caller should stop entirely (ctx
// done), true when it should reconnect.
func (s *Stream) drain(ctx context.Context, sub ethereum.Subscription, logs chan types.Log, out chan<- types.Log, name string) bool {
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return false
		case err := <-sub.Err():
			s.logger.Warn("subscription dropped, reconnecting", zap.String("stream", name), zap.Error(err))
			return true
		case logEntry := <-logs:
			select {
			case out <- logEntry:
			case <-ctx.Done():
				return false
			}
		}
	}
}

func (s *Stream) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
