package domain

import (
	"github.com/shopspring/decimal"
)

// Payout status codes. On-chain settlement is an external concern;
// records are created pending and flipped by the settler.
const (
	PayoutStatusPending = "PENDING"
	PayoutStatusSent    = "SENT"
	PayoutStatusFailed  = "FAILED"
)

// PayoutRecord is one winner's share of one cycle's pool. At most one
// set of records may exist per cycle, enforced by a precondition check
// before creation in addition to the (cycle, rank) uniqueness constraint.
// Corresponds to payout_records table in PostgreSQL.
type PayoutRecord struct {
	PayoutID    string // deterministic hash of (cycle, rank, wallet)
	Cycle       int64
	Rank        int // 1..3
	Wallet      string
	Amount      decimal.Decimal
	Status      string
	CreatedAtMs int64
}
