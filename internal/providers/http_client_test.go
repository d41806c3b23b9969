package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestHTTPClient_TokenPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/token/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"price_usd":"0.00125"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	price, err := client.TokenPrice(context.Background())
	if err != nil {
		t.Fatalf("TokenPrice: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.00125")) {
		t.Errorf("expected 0.00125, got %s", price)
	}
}

func TestHTTPClient_PoolBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"balance_usd":"1500.50"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	balance, err := client.PoolBalance(context.Background())
	if err != nil {
		t.Fatalf("PoolBalance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("1500.50")) {
		t.Errorf("expected 1500.50, got %s", balance)
	}
}

// testWallet is 32 zero bytes in base58, a canonical on-curve address.
const testWallet = "11111111111111111111111111111111"

func TestHTTPClient_HolderBalances(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"holders":[
			{"wallet":"` + testWallet + `","balance":"250.5"}
		]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	holders, err := client.HolderBalances(context.Background())
	if err != nil {
		t.Fatalf("HolderBalances: %v", err)
	}
	if len(holders) != 1 {
		t.Fatalf("expected 1 holder, got %d", len(holders))
	}
	if holders[0].Wallet != testWallet {
		t.Errorf("expected %s, got %s", testWallet, holders[0].Wallet)
	}
	if !holders[0].Balance.Equal(decimal.RequireFromString("250.5")) {
		t.Errorf("expected balance 250.5, got %s", holders[0].Balance)
	}
}

func TestHTTPClient_HolderBalancesDropsMalformedWallets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"holders":[
			{"wallet":"` + testWallet + `","balance":"1000"},
			{"wallet":"not-base58-0OIl","balance":"500"},
			{"wallet":"abc","balance":"250"}
		]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	holders, err := client.HolderBalances(context.Background())
	if err != nil {
		t.Fatalf("HolderBalances: %v", err)
	}
	if len(holders) != 1 {
		t.Fatalf("expected malformed wallets dropped, got %d holders", len(holders))
	}
	if holders[0].Wallet != testWallet {
		t.Errorf("expected %s to survive, got %s", testWallet, holders[0].Wallet)
	}
}

func TestHTTPClient_WalletEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/wallets/wallet-a/events" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("since") == "" {
			t.Error("expected since query parameter")
		}
		w.Write([]byte(`{"events":[
			{"wallet":"wallet-a","tx_signature":"sig1","event_index":0,
			 "kind":"ACQUISITION","quantity":"100","unit_price_usd":"0.002",
			 "timestamp_ms":1700000000000}
		]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	events, err := client.WalletEvents(context.Background(), "wallet-a", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("WalletEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.TxSignature != "sig1" || e.EventIndex != 0 {
		t.Errorf("unexpected dedup key %s/%d", e.TxSignature, e.EventIndex)
	}
	if !e.IsQualifyingBuy() {
		t.Error("expected qualifying buy")
	}
	if e.TimestampMs != 1700000000000 {
		t.Errorf("expected timestamp 1700000000000, got %d", e.TimestampMs)
	}
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"price_usd":"1"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(time.Millisecond))

	price, err := client.TokenPrice(context.Background())
	if err != nil {
		t.Fatalf("TokenPrice: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", price)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestHTTPClient_MaxRetriesExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond))

	_, err := client.TokenPrice(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestHTTPClient_NegativePriceRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"price_usd":"-1"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	if _, err := client.TokenPrice(context.Background()); err == nil {
		t.Fatal("expected error for negative price")
	}
}

func TestHTTPClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(10),
		WithRetryDelay(50*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.TokenPrice(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
