// Package stub provides in-memory providers for testing.
package stub

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"lossmine/internal/domain"
	"lossmine/internal/providers"
)

// Market implements providers.MarketSource and providers.ActivitySource
// from fixed in-memory data.
type Market struct {
	mu sync.Mutex

	Price   decimal.Decimal
	Pool    decimal.Decimal
	Holders []providers.HolderBalance
	Events  map[string][]domain.AcquisitionEvent

	// Err, when set, is returned by every call.
	Err error

	// Calls counts total source calls, for breaker and fan-out tests.
	Calls int
}

// NewMarket creates an empty stub market.
func NewMarket() *Market {
	return &Market{
		Events: make(map[string][]domain.AcquisitionEvent),
	}
}

var (
	_ providers.MarketSource   = (*Market)(nil)
	_ providers.ActivitySource = (*Market)(nil)
)

func (m *Market) record() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.Err
}

// CallCount returns the number of source calls so far.
func (m *Market) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// TokenPrice returns the configured price.
func (m *Market) TokenPrice(_ context.Context) (decimal.Decimal, error) {
	if err := m.record(); err != nil {
		return decimal.Zero, err
	}
	return m.Price, nil
}

// PoolBalance returns the configured pool balance.
func (m *Market) PoolBalance(_ context.Context) (decimal.Decimal, error) {
	if err := m.record(); err != nil {
		return decimal.Zero, err
	}
	return m.Pool, nil
}

// HolderBalances returns the configured holder set.
func (m *Market) HolderBalances(_ context.Context) ([]providers.HolderBalance, error) {
	if err := m.record(); err != nil {
		return nil, err
	}
	out := make([]providers.HolderBalance, len(m.Holders))
	copy(out, m.Holders)
	return out, nil
}

// WalletEvents returns the configured events at or after since.
func (m *Market) WalletEvents(_ context.Context, wallet string, since time.Time) ([]domain.AcquisitionEvent, error) {
	if err := m.record(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	events := m.Events[wallet]
	m.mu.Unlock()

	sinceMs := since.UnixMilli()
	out := make([]domain.AcquisitionEvent, 0, len(events))
	for _, e := range events {
		if e.TimestampMs >= sinceMs {
			out = append(out, e)
		}
	}
	return out, nil
}
