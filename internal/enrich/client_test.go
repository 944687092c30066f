package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetTokenPairsDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"chainId":"base","pairAddress":"0xpool","priceUsd":"0.001","liquidity":{"usd":5000},"fdv":12000,"txns":{"h1":{"buys":3,"sells":0}}}]`))
	}))
	defer server.Close()

	client := NewClient()
	client.baseURL = server.URL

	pairs, err := client.GetTokenPairs(context.Background(), "base", "0xtoken")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	if pairs[0].Liquidity.USD != 5000 || pairs[0].FDV != 12000 {
		t.Fatalf("unexpected pair: %+v", pairs[0])
	}
}

func TestGetTokenPairsSurfacesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient()
	client.baseURL = server.URL

	_, err := client.GetTokenPairs(context.Background(), "base", "0xtoken")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !IsClientError(err) {
		t.Fatalf("expected a client error for 404, got %v", err)
	}
}

func TestBestPairPicksHighestLiquidity(t *testing.T) {
	pairs := []Pair{
		{PairAddr: "low", Liquidity: struct {
			USD float64 `json:"usd"`
		}{USD: 100}},
		{PairAddr: "high", Liquidity: struct {
			USD float64 `json:"usd"`
		}{USD: 5000}},
	}
	best, ok := BestPair(pairs)
	if !ok || best.PairAddr != "high" {
		t.Fatalf("expected high-liquidity pair to win, got %+v", best)
	}
}
