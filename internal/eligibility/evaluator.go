// Package eligibility decides whether a holder may compete in a cycle.
// The rule chain is an explicit ordered list so the "first failing rule
// is the reported reason" contract is visible and testable rather than
// buried in control flow.
package eligibility

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// rule pairs a rejection reason with its predicate. Predicates are
// evaluated in slice order against the derived evaluation state; the
// first returning true rejects the holder.
type rule struct {
	reason string
	reject func(*state) bool
}

// state carries Input plus the figures derived once before the chain
// runs.
type state struct {
	Input

	hasCostBasis    bool
	drawdownPct     decimal.Decimal
	lossUsd         decimal.Decimal
	eligibleBalance decimal.Decimal
}

// chain is the complete ordered rule set. Gaming-resistance filters come
// before the balance/loss checks; order determines which single reason
// is surfaced when several would fail at once.
var chain = []rule{
	{ReasonInvalidBalance, func(s *state) bool {
		return s.Balance.IsNegative()
	}},
	{ReasonSoldTokens, func(s *state) bool {
		return s.HasDisposal
	}},
	{ReasonTransferredOut, func(s *state) bool {
		return s.HasOutboundTransfer
	}},
	{ReasonHoldDuration, func(s *state) bool {
		if s.Params.MinHoldDuration <= 0 || s.FirstAcquisitionAt.IsZero() {
			return false
		}
		return s.Now.Sub(s.FirstAcquisitionAt) < s.Params.MinHoldDuration
	}},
	{ReasonInsufficientHold, func(s *state) bool {
		return s.Balance.LessThan(s.Params.MinimumHolding)
	}},
	{ReasonNoBuyHistory, func(s *state) bool {
		return !s.hasCostBasis
	}},
	{ReasonInProfit, func(s *state) bool {
		// Equality counts as not underwater.
		return !s.drawdownPct.IsNegative()
	}},
	{ReasonLossBelowThreshold, func(s *state) bool {
		threshold := s.PoolBalance.Mul(s.Params.MinLossThresholdPct).Div(hundred)
		return s.lossUsd.LessThan(threshold)
	}},
	{ReasonWinnerCooldown, func(s *state) bool {
		// A winner sits out exactly one subsequent cycle.
		return s.LastWinCycle != nil && *s.LastWinCycle >= s.CurrentCycle-1
	}},
	{ReasonCooldownActive, func(s *state) bool {
		return s.HasActiveDisqualification
	}},
}

// Evaluate runs the rule chain over one holder. Pure: no I/O, no side
// effects, callers persist the resulting verdict themselves.
func Evaluate(in Input) Verdict {
	s := &state{Input: in}

	s.hasCostBasis = in.CostBasis != nil && in.CostBasis.IsPositive()
	s.drawdownPct = Drawdown(in.CostBasis, in.CurrentPrice)
	s.eligibleBalance = in.Balance
	if in.TotalAcquired.LessThan(s.eligibleBalance) {
		// Loss never covers tokens the wallet never bought.
		s.eligibleBalance = in.TotalAcquired
	}
	if s.eligibleBalance.IsNegative() {
		s.eligibleBalance = decimal.Zero
	}
	s.lossUsd = Loss(in.CostBasis, in.CurrentPrice, s.eligibleBalance)

	v := Verdict{
		DrawdownPct:     s.drawdownPct,
		LossUsd:         s.lossUsd,
		EligibleBalance: s.eligibleBalance,
	}

	for _, r := range chain {
		if r.reject(s) {
			v.Reason = r.reason
			return v
		}
	}

	v.Eligible = true
	return v
}

// Drawdown is the percentage change from cost basis to current price.
// Defined as zero when the basis is absent or zero: a neutral result,
// since the no-basis case is rejected separately.
func Drawdown(costBasis *decimal.Decimal, price decimal.Decimal) decimal.Decimal {
	if costBasis == nil || !costBasis.IsPositive() {
		return decimal.Zero
	}
	return price.Sub(*costBasis).Mul(hundred).Div(*costBasis)
}

// Loss is the unrealized loss in pool currency over the eligible
// balance, floored at zero. A holder in profit contributes zero loss,
// never a negative one.
func Loss(costBasis *decimal.Decimal, price, eligibleBalance decimal.Decimal) decimal.Decimal {
	if costBasis == nil || !costBasis.IsPositive() {
		return decimal.Zero
	}
	if !price.LessThan(*costBasis) {
		return decimal.Zero
	}
	return costBasis.Sub(price).Mul(eligibleBalance)
}
