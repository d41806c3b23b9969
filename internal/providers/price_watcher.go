package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// PriceWatcherConfig configures the streaming price watcher.
type PriceWatcherConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// MaxPriceAge is how old a cached observation may be before
	// TokenPrice reports it as stale.
	MaxPriceAge time.Duration
}

// DefaultPriceWatcherConfig returns default watcher configuration.
func DefaultPriceWatcherConfig() PriceWatcherConfig {
	return PriceWatcherConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxPriceAge:       2 * time.Minute,
	}
}

// PriceWatcher maintains a streaming connection to the indexer's price
// feed and caches the latest observation. It satisfies PriceSource so
// the cycle runner can read prices without a per-cycle HTTP round trip.
type PriceWatcher struct {
	endpoint string
	config   PriceWatcherConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	latest   PriceObservation
	latestMu sync.RWMutex
	seen     atomic.Bool

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool

	now func() time.Time
}

var _ PriceSource = (*PriceWatcher)(nil)

// NewPriceWatcher connects to the price feed and starts watching.
func NewPriceWatcher(ctx context.Context, endpoint string, config *PriceWatcherConfig) (*PriceWatcher, error) {
	cfg := DefaultPriceWatcherConfig()
	if config != nil {
		cfg = *config
	}

	w := &PriceWatcher{
		endpoint: endpoint,
		config:   cfg,
		done:     make(chan struct{}),
		now:      time.Now,
	}

	if err := w.connect(ctx); err != nil {
		return nil, err
	}

	w.wg.Add(1)
	go w.readLoop()

	w.wg.Add(1)
	go w.pingLoop()

	return w, nil
}

// connect establishes the WebSocket connection.
func (w *PriceWatcher) connect(ctx context.Context) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	w.conn = conn
	return nil
}

// TokenPrice returns the latest cached price. It does not block on the
// feed: if no observation arrived yet it returns ErrNoPrice, and if the
// cached one exceeds MaxPriceAge it returns ErrStalePrice.
func (w *PriceWatcher) TokenPrice(ctx context.Context) (decimal.Decimal, error) {
	if !w.seen.Load() {
		return decimal.Zero, ErrNoPrice
	}

	w.latestMu.RLock()
	obs := w.latest
	w.latestMu.RUnlock()

	if w.config.MaxPriceAge > 0 && w.now().Sub(obs.ObservedAt) > w.config.MaxPriceAge {
		return decimal.Zero, fmt.Errorf("%w: observed at %s", ErrStalePrice, obs.ObservedAt.Format(time.RFC3339))
	}
	return obs.Price, nil
}

// Latest returns the most recent observation and whether one exists.
func (w *PriceWatcher) Latest() (PriceObservation, bool) {
	if !w.seen.Load() {
		return PriceObservation{}, false
	}
	w.latestMu.RLock()
	defer w.latestMu.RUnlock()
	return w.latest, true
}

// Close closes the connection and stops the watcher.
func (w *PriceWatcher) Close() error {
	if w.closed.Swap(true) {
		return nil // Already closed
	}

	close(w.done)

	w.connMu.Lock()
	if w.conn != nil {
		w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		w.conn.Close()
	}
	w.connMu.Unlock()

	w.wg.Wait()
	return nil
}

// readLoop reads feed messages and refreshes the cache.
func (w *PriceWatcher) readLoop() {
	defer w.wg.Done()

	reconnectDelay := w.config.ReconnectDelay

	for !w.closed.Load() {
		w.connMu.Lock()
		conn := w.conn
		w.connMu.Unlock()

		if conn == nil {
			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(w.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if w.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !w.reconnecting.Swap(true) {
				go w.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > w.config.MaxReconnectDelay {
				reconnectDelay = w.config.MaxReconnectDelay
			}

			select {
			case <-w.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = w.config.ReconnectDelay

		w.handleMessage(message)
	}
}

// reconnect waits out the backoff delay and re-dials.
func (w *PriceWatcher) reconnect(delay time.Duration) {
	defer w.reconnecting.Store(false)

	if w.closed.Load() {
		return
	}

	select {
	case <-w.done:
		return
	case <-time.After(delay):
	}

	w.connMu.Lock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Failure here is fine: the next read error retries with a longer delay.
	w.connect(ctx)
}

// priceMessage is the feed wire format.
type priceMessage struct {
	Type        string          `json:"type"`
	PriceUSD    decimal.Decimal `json:"price_usd"`
	TimestampMs int64           `json:"timestamp_ms"`
}

// handleMessage parses a feed message and updates the cache.
func (w *PriceWatcher) handleMessage(message []byte) {
	var msg priceMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Type != "price" || msg.PriceUSD.IsNegative() {
		return
	}

	observedAt := w.now()
	if msg.TimestampMs > 0 {
		observedAt = time.UnixMilli(msg.TimestampMs)
	}

	w.latestMu.Lock()
	w.latest = PriceObservation{Price: msg.PriceUSD, ObservedAt: observedAt}
	w.latestMu.Unlock()
	w.seen.Store(true)
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (w *PriceWatcher) pingLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.connMu.Lock()
			if w.conn != nil {
				w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout))
				if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			w.connMu.Unlock()
		}
	}
}
