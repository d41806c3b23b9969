package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"lossmine/internal/domain"
	"lossmine/internal/wallet"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient reads market state from an indexer REST API.
type HTTPClient struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new indexer API client.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ MarketSource   = (*HTTPClient)(nil)
	_ ActivitySource = (*HTTPClient)(nil)
)

// get performs a GET with retries and exponential backoff.
func (c *HTTPClient) get(ctx context.Context, path string, result interface{}) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		if result != nil {
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}

		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// TokenPrice returns the current token price in USD.
func (c *HTTPClient) TokenPrice(ctx context.Context) (decimal.Decimal, error) {
	var result struct {
		Price decimal.Decimal `json:"price_usd"`
	}
	if err := c.get(ctx, "/v1/token/price", &result); err != nil {
		return decimal.Zero, err
	}
	if result.Price.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %s", result.Price)
	}
	return result.Price, nil
}

// PoolBalance returns the current reward pool balance in USD.
func (c *HTTPClient) PoolBalance(ctx context.Context) (decimal.Decimal, error) {
	var result struct {
		Balance decimal.Decimal `json:"balance_usd"`
	}
	if err := c.get(ctx, "/v1/pool/balance", &result); err != nil {
		return decimal.Zero, err
	}
	if result.Balance.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative pool balance %s", result.Balance)
	}
	return result.Balance, nil
}

// HolderBalances returns the current holder set with balances.
func (c *HTTPClient) HolderBalances(ctx context.Context) ([]HolderBalance, error) {
	var result struct {
		Holders []struct {
			Wallet  string          `json:"wallet"`
			Balance decimal.Decimal `json:"balance"`
		} `json:"holders"`
	}
	if err := c.get(ctx, "/v1/token/holders", &result); err != nil {
		return nil, err
	}

	holders := make([]HolderBalance, 0, len(result.Holders))
	for _, h := range result.Holders {
		// Rows with malformed addresses are dropped here so no holder
		// state is ever created for them downstream.
		if err := wallet.Validate(h.Wallet); err != nil {
			continue
		}
		holders = append(holders, HolderBalance{Wallet: h.Wallet, Balance: h.Balance})
	}
	return holders, nil
}

// walletEventJSON is the indexer wire format for a token flow event.
type walletEventJSON struct {
	Wallet       string          `json:"wallet"`
	TxSignature  string          `json:"tx_signature"`
	EventIndex   int             `json:"event_index"`
	Kind         string          `json:"kind"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPriceUSD decimal.Decimal `json:"unit_price_usd"`
	TimestampMs  int64           `json:"timestamp_ms"`
}

// WalletEvents returns a wallet's token flow events at or after since.
func (c *HTTPClient) WalletEvents(ctx context.Context, wallet string, since time.Time) ([]domain.AcquisitionEvent, error) {
	path := fmt.Sprintf("/v1/wallets/%s/events?since=%s",
		url.PathEscape(wallet), url.QueryEscape(since.UTC().Format(time.RFC3339)))

	var result struct {
		Events []walletEventJSON `json:"events"`
	}
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}

	events := make([]domain.AcquisitionEvent, 0, len(result.Events))
	for _, e := range result.Events {
		events = append(events, domain.AcquisitionEvent{
			Wallet:      e.Wallet,
			TxSignature: e.TxSignature,
			EventIndex:  e.EventIndex,
			Kind:        domain.EventKind(e.Kind),
			Quantity:    e.Quantity,
			UnitPrice:   e.UnitPriceUSD,
			TimestampMs: e.TimestampMs,
		})
	}
	return events, nil
}
