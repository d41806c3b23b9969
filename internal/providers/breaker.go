package providers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker around an upstream source.
type BreakerConfig struct {
	// Name identifies the breaker in errors and state callbacks.
	Name string
	// ConsecutiveFailures is how many failures in a row trip the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// OnStateChange is called on breaker transitions. Optional.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns default breaker settings.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:                name,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// BreakerSource wraps a MarketSource with a circuit breaker so a dead
// indexer fails fast instead of stalling every cycle on retries.
type BreakerSource struct {
	inner MarketSource
	cb    *gobreaker.CircuitBreaker
}

var _ MarketSource = (*BreakerSource)(nil)

// NewBreakerSource wraps inner with a circuit breaker.
func NewBreakerSource(inner MarketSource, config BreakerConfig) *BreakerSource {
	failures := config.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}

	settings := gobreaker.Settings{
		Name:    config.Name,
		Timeout: config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: config.OnStateChange,
	}

	return &BreakerSource{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

// State returns the breaker's current state.
func (s *BreakerSource) State() gobreaker.State {
	return s.cb.State()
}

func (s *BreakerSource) TokenPrice(ctx context.Context) (decimal.Decimal, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.TokenPrice(ctx)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return res.(decimal.Decimal), nil
}

func (s *BreakerSource) PoolBalance(ctx context.Context) (decimal.Decimal, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.PoolBalance(ctx)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return res.(decimal.Decimal), nil
}

func (s *BreakerSource) HolderBalances(ctx context.Context) ([]HolderBalance, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.HolderBalances(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]HolderBalance), nil
}
