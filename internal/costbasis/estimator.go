// Package costbasis computes a wallet's volume-weighted average
// acquisition price, the reference price loss is measured against.
package costbasis

import (
	"github.com/shopspring/decimal"

	"lossmine/internal/domain"
)

// Totals are the running VWAP accumulators for a wallet.
type Totals struct {
	Quantity   decimal.Decimal // Σ quantity over qualifying buys
	CostAmount decimal.Decimal // Σ quantity×unit_price over the same set
}

// Accumulate folds events into VWAP totals. Only acquisition events with
// strictly positive quantity qualify; disposals and transfers are
// ignored. Event order does not matter.
func Accumulate(events []*domain.AcquisitionEvent) Totals {
	var t Totals
	for _, e := range events {
		if e == nil || !e.IsQualifyingBuy() {
			continue
		}
		if e.UnitPrice.IsNegative() {
			continue
		}
		t.Quantity = t.Quantity.Add(e.Quantity)
		t.CostAmount = t.CostAmount.Add(e.Quantity.Mul(e.UnitPrice))
	}
	return t
}

// VWAP divides the accumulated cost by the accumulated quantity, once.
// Returns ok=false when no qualifying quantity exists: "no cost basis"
// is a distinct outcome from a zero price and must never be conflated,
// since a zero basis would make every price look like pure gain.
func (t Totals) VWAP() (decimal.Decimal, bool) {
	if !t.Quantity.IsPositive() {
		return decimal.Decimal{}, false
	}
	return t.CostAmount.DivRound(t.Quantity, 18), true
}

// Estimate computes the cost basis for a wallet's event history in one
// call. Accumulates in full precision and divides at the end; it never
// averages partial averages.
func Estimate(events []*domain.AcquisitionEvent) (decimal.Decimal, bool) {
	return Accumulate(events).VWAP()
}
