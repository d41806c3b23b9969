package domain

import (
	"github.com/shopspring/decimal"
)

// RankedHolder is one holder's cycle-scoped evaluation result. Produced
// fresh every cycle and persisted only inside a Snapshot.
type RankedHolder struct {
	Wallet       string
	Balance      decimal.Decimal
	CostBasis    *decimal.Decimal
	CurrentPrice decimal.Decimal

	// DrawdownPct is the percentage change from cost basis to current
	// price; negative values denote loss. Zero when no cost basis.
	DrawdownPct decimal.Decimal

	// LossUsd is the unrealized loss in pool currency, floored at zero.
	LossUsd decimal.Decimal

	// Rank is the 1-based dense rank among eligible holders, 0 when
	// ineligible.
	Rank int

	Eligible         bool
	IneligibleReason string
}
