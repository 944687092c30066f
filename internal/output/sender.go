// Package output ships fired signals to whatever's listening: a log line in
// dry-run mode, or a webhook in live mode. No MTProto/Telegram client exists
// anywhere in the reference corpus, so the live sender speaks plain
// HTTP POST/JSON, matching the one place the corpus itself falls back to
// net/http for outbound messaging.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"basesniper/internal/signal"
)

// Sender ships a fired Signal somewhere. Send must not block the caller
// indefinitely; implementations should respect ctx.
type Sender interface {
	Send(ctx context.Context, sig signal.Signal) error
}

// LoggerSender is the dry-run default: it writes the signal at info level
// and never touches the network.
type LoggerSender struct {
	logger *zap.Logger
}

// NewLoggerSender builds a LoggerSender.
func NewLoggerSender(logger *zap.Logger) *LoggerSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggerSender{logger: logger}
}

// Send logs sig and always succeeds.
func (s *LoggerSender) Send(ctx context.Context, sig signal.Signal) error {
	s.logger.Info("dry-run signal",
		zap.String("token", sig.TokenAddress),
		zap.String("dex", string(sig.DexVersion)),
		zap.Float64("mcap", sig.Mcap),
		zap.Float64("liquidity_usd", sig.LiquidityUSD),
		zap.Int("buys", sig.Buys),
		zap.Int("unique_buyers", sig.UniqueBuyers),
		zap.Float64("largest_buy_pct", sig.LargestBuyPct),
	)
	return nil
}

// WebhookPayload is the JSON body posted to a live webhook.
type WebhookPayload struct {
	TokenAddress  string  `json:"token_address"`
	Dex           string  `json:"dex"`
	EmittedAt     string  `json:"emitted_at"`
	AgeSeconds    float64 `json:"age_seconds"`
	Mcap          float64 `json:"mcap_usd"`
	LiquidityUSD  float64 `json:"liquidity_usd"`
	Buys          int     `json:"buys"`
	UniqueBuyers  int     `json:"unique_buyers"`
	LargestBuyUSD float64 `json:"largest_buy_usd"`
	LargestBuyPct float64 `json:"largest_buy_pct"`
}

// WebhookSender POSTs each signal as JSON to a fixed URL. Delivery is
// at-most-once: a failed POST is logged and dropped rather than retried, so a
// downstream executor that already received the signal never sees it twice.
type WebhookSender struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookSender builds a WebhookSender posting to url.
func NewWebhookSender(url string, logger *zap.Logger) *WebhookSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookSender{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Send POSTs sig as JSON once. A failure is logged and dropped, never retried.
func (s *WebhookSender) Send(ctx context.Context, sig signal.Signal) error {
	payload := WebhookPayload{
		TokenAddress:  sig.TokenAddress,
		Dex:           string(sig.DexVersion),
		EmittedAt:     sig.EmittedAt.UTC().Format(time.RFC3339),
		AgeSeconds:    sig.AgeSeconds,
		Mcap:          sig.Mcap,
		LiquidityUSD:  sig.LiquidityUSD,
		Buys:          sig.Buys,
		UniqueBuyers:  sig.UniqueBuyers,
		LargestBuyUSD: sig.LargestBuyUSD,
		LargestBuyPct: sig.LargestBuyPct,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	if err := s.post(ctx, body); err != nil {
		s.logger.Warn("webhook send failed, dropping", zap.Error(err))
		return err
	}
	return nil
}

func (s *WebhookSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("received non-2xx response: %s", resp.Status)
	}
	return nil
}
