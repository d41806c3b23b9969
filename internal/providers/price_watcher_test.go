package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func priceFeedServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}

		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestPriceWatcher_CachesLatestPrice(t *testing.T) {
	server := priceFeedServer(t, []string{
		`{"type":"price","price_usd":"0.002","timestamp_ms":1700000000000}`,
		`{"type":"price","price_usd":"0.001","timestamp_ms":1700000001000}`,
	})
	defer server.Close()

	watcher, err := NewPriceWatcher(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewPriceWatcher: %v", err)
	}
	defer watcher.Close()

	// Wait for both messages to land
	deadline := time.Now().Add(2 * time.Second)
	want := decimal.RequireFromString("0.001")
	for {
		obs, ok := watcher.Latest()
		if ok && obs.Price.Equal(want) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for price, have %v ok=%v", obs.Price, ok)
		}
		time.Sleep(10 * time.Millisecond)
	}

	price, err := watcher.TokenPrice(context.Background())
	if err != nil {
		t.Fatalf("TokenPrice: %v", err)
	}
	if !price.Equal(want) {
		t.Errorf("expected 0.001, got %s", price)
	}
}

func TestPriceWatcher_NoPriceYet(t *testing.T) {
	server := priceFeedServer(t, nil)
	defer server.Close()

	watcher, err := NewPriceWatcher(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewPriceWatcher: %v", err)
	}
	defer watcher.Close()

	if _, err := watcher.TokenPrice(context.Background()); !errors.Is(err, ErrNoPrice) {
		t.Errorf("expected ErrNoPrice, got %v", err)
	}
}

func TestPriceWatcher_StalePrice(t *testing.T) {
	server := priceFeedServer(t, []string{
		`{"type":"price","price_usd":"0.002"}`,
	})
	defer server.Close()

	config := DefaultPriceWatcherConfig()
	config.MaxPriceAge = time.Minute

	watcher, err := NewPriceWatcher(context.Background(), wsURL(server), &config)
	if err != nil {
		t.Fatalf("NewPriceWatcher: %v", err)
	}
	defer watcher.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := watcher.Latest(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for price")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Move the clock past MaxPriceAge
	watcher.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	if _, err := watcher.TokenPrice(context.Background()); !errors.Is(err, ErrStalePrice) {
		t.Errorf("expected ErrStalePrice, got %v", err)
	}
}

func TestPriceWatcher_IgnoresMalformedMessages(t *testing.T) {
	server := priceFeedServer(t, []string{
		`not json`,
		`{"type":"heartbeat"}`,
		`{"type":"price","price_usd":"-5"}`,
		`{"type":"price","price_usd":"0.003","timestamp_ms":1700000000000}`,
	})
	defer server.Close()

	watcher, err := NewPriceWatcher(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewPriceWatcher: %v", err)
	}
	defer watcher.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		obs, ok := watcher.Latest()
		if ok {
			if !obs.Price.Equal(decimal.RequireFromString("0.003")) {
				t.Errorf("expected 0.003, got %s", obs.Price)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for price")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPriceWatcher_Close(t *testing.T) {
	server := priceFeedServer(t, nil)
	defer server.Close()

	watcher, err := NewPriceWatcher(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewPriceWatcher: %v", err)
	}

	if err := watcher.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	// Double close should be safe
	if err := watcher.Close(); err != nil {
		t.Errorf("double Close: %v", err)
	}
}
