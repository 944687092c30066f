// Package enrich fetches off-chain liquidity/mcap/volume figures from a
// DexScreener-style REST API and tracks a rolling ETH/USD price.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	defaultBaseURL       = "https://api.dexscreener.com"
	defaultHTTPTimeout   = 5 * time.Second
	minRequestInterval   = 300 * time.Millisecond
)

// TxnCount is one window's buy/sell counts in a DexScreener pair payload.
type TxnCount struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// Pair is a single trading pair entry from the /tokens/v1 response.
type Pair struct {
	ChainID   string `json:"chainId"`
	PairAddr  string `json:"pairAddress"`
	PriceUSD  string `json:"priceUsd"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	FDV  float64 `json:"fdv"`
	Txns struct {
		H1 TxnCount `json:"h1"`
	} `json:"txns"`
}

// Client is a self-throttling DexScreener REST client: callers may fire
// requests as fast as they want, the client itself enforces a minimum gap
// between outbound requests so a burst of newly-tracked tokens doesn't trip
// the API's rate limit.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu       sync.Mutex
	lastCall time.Time
}

// NewClient builds a Client against the default DexScreener host.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:    defaultBaseURL,
	}
}

// GetTokenPairs fetches every known trading pair for tokenAddress on chain.
// A non-2xx response is surfaced as a *StatusError so callers can tell
// "token not indexed yet" apart from a transient network failure.
func (c *Client) GetTokenPairs(ctx context.Context, chain, tokenAddress string) ([]Pair, error) {
	c.throttle()

	url := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, chain, tokenAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var pairs []Pair
	if err := json.NewDecoder(resp.Body).Decode(&pairs); err != nil {
		return nil, fmt.Errorf("decode dexscreener response: %w", err)
	}
	return pairs, nil
}

func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := minRequestInterval - time.Since(c.lastCall); wait > 0 {
		time.Sleep(wait)
	}
	c.lastCall = time.Now()
}

// StatusError reports a non-2xx HTTP response from the enrichment API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dexscreener returned status %d", e.Code)
}

// IsClientError reports whether the failure is a 4xx (token not indexed,
// bad request) as opposed to a transient 5xx/network error.
func IsClientError(err error) bool {
	statusErr, ok := err.(*StatusError)
	return ok && statusErr.Code >= 400 && statusErr.Code < 500
}

// BestPair picks the highest-liquidity pair out of a token's listings,
// which is the one most representative of its real market.
func BestPair(pairs []Pair) (Pair, bool) {
	var best Pair
	found := false
	for _, p := range pairs {
		if !found || p.Liquidity.USD > best.Liquidity.USD {
			best = p
			found = true
		}
	}
	return best, found
}
