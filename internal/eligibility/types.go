package eligibility

import (
	"time"

	"github.com/shopspring/decimal"

	"lossmine/internal/domain"
)

// Rejection reasons, surfaced verbatim as Holder.IneligibleReason. The
// first failing rule in chain order is the one reported.
const (
	ReasonInvalidBalance     = "Invalid balance"
	ReasonSoldTokens         = "Sold tokens"
	ReasonTransferredOut     = "Transferred out"
	ReasonHoldDuration       = "Hold duration not met"
	ReasonInsufficientHold   = "Insufficient balance"
	ReasonNoBuyHistory       = "No buy history"
	ReasonInProfit           = "In profit"
	ReasonLossBelowThreshold = "Loss below threshold"
	ReasonWinnerCooldown     = "Winner cooldown"
	ReasonCooldownActive     = "Cooldown active"
)

// Input is everything one evaluation consumes. All values are resolved
// by the caller before the call; the evaluator performs no I/O.
type Input struct {
	Wallet  string
	Balance decimal.Decimal

	// CostBasis is the persisted basis for past winners (reset at win
	// time) or the freshly estimated VWAP for everyone else. The caller
	// owns that distinction; the evaluator treats the value as given.
	CostBasis *decimal.Decimal

	// TotalAcquired caps the balance the loss is computed against,
	// closing the transfer-in exploit.
	TotalAcquired decimal.Decimal

	LastWinCycle *int64

	// On-chain activity signals, scoped to the most recent cost-basis
	// reset where richer history is available.
	HasDisposal         bool
	HasOutboundTransfer bool
	FirstAcquisitionAt  time.Time // zero when no qualifying acquisition

	// HasActiveDisqualification is true when an unexpired
	// DisqualificationWindow covers Now.
	HasActiveDisqualification bool

	CurrentPrice decimal.Decimal
	PoolBalance  decimal.Decimal
	CurrentCycle int64
	Now          time.Time

	Params domain.ContestParams
}

// Verdict is the evaluation outcome plus the derived figures the caller
// reuses for ranking.
type Verdict struct {
	Eligible bool
	Reason   string // empty when eligible

	DrawdownPct     decimal.Decimal
	LossUsd         decimal.Decimal
	EligibleBalance decimal.Decimal
}
