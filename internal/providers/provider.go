// Package providers defines data sources the contest engine reads market
// state from: token price, reward pool balance, the holder set, and
// per-wallet acquisition activity.
package providers

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"lossmine/internal/domain"
)

// Provider errors.
var (
	// ErrStalePrice indicates the cached price is older than the allowed age.
	ErrStalePrice = errors.New("price is stale")
	// ErrNoPrice indicates no price observation has been received yet.
	ErrNoPrice = errors.New("no price available")
)

// HolderBalance is one wallet's current token balance.
type HolderBalance struct {
	Wallet  string
	Balance decimal.Decimal
}

// PriceSource provides the current token price in USD.
type PriceSource interface {
	TokenPrice(ctx context.Context) (decimal.Decimal, error)
}

// PoolSource provides the current reward pool balance in USD.
type PoolSource interface {
	PoolBalance(ctx context.Context) (decimal.Decimal, error)
}

// HolderSource provides the current holder set with balances.
type HolderSource interface {
	HolderBalances(ctx context.Context) ([]HolderBalance, error)
}

// ActivitySource provides per-wallet token flow events since a point in time.
type ActivitySource interface {
	WalletEvents(ctx context.Context, wallet string, since time.Time) ([]domain.AcquisitionEvent, error)
}

// MarketSource combines the per-cycle market reads.
type MarketSource interface {
	PriceSource
	PoolSource
	HolderSource
}

// PriceObservation is a timestamped price sample.
type PriceObservation struct {
	Price      decimal.Decimal
	ObservedAt time.Time
}
