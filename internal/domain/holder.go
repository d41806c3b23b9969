package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holder represents one tracked token-holding wallet and the state that
// survives across competition cycles. Corresponds to holders table in
// PostgreSQL.
type Holder struct {
	Wallet  string          // PRIMARY KEY, base58 wallet address
	Balance decimal.Decimal // current token quantity, never negative

	// CostBasis is the volume-weighted average acquisition price, or nil
	// when no qualifying acquisition exists. Never a zero sentinel.
	CostBasis *decimal.Decimal

	// VWAP totals as of the most recent cost-basis reset; events after
	// the reset layer on top at evaluation time. Zero until a reset.
	TotalAcquired   decimal.Decimal // Σ quantity over qualifying acquisitions
	TotalCostAmount decimal.Decimal // Σ quantity×unit_price over the same set

	// LastWinCycle is the cycle number of the most recent win, nil if the
	// wallet has never won.
	LastWinCycle *int64

	// CostBasisResetAt is when the cost basis was last reset by a win.
	// Activity checks (disposal, outbound transfer, hold duration) are
	// scoped to this point, zero time if never reset.
	CostBasisResetAt time.Time

	// Last computed verdict, cached for observability only. Never an
	// input to the next evaluation.
	Eligible         bool
	IneligibleReason string

	UpdatedAt time.Time
}

// SetCostBasis stores a cost basis, rejecting the zero sentinel.
func (h *Holder) SetCostBasis(cb decimal.Decimal) {
	if cb.IsZero() {
		h.CostBasis = nil
		return
	}
	v := cb
	h.CostBasis = &v
}

// HasCostBasis reports whether a qualifying cost basis exists.
func (h *Holder) HasCostBasis() bool {
	return h.CostBasis != nil && h.CostBasis.IsPositive()
}
