package domain

import (
	"github.com/shopspring/decimal"
)

// Snapshot is the immutable record of one competition cycle. Created
// exactly once per cycle number and never mutated afterwards.
// Corresponds to snapshots table in PostgreSQL.
type Snapshot struct {
	Cycle         int64 // monotonically increasing, unique
	TimestampMs   int64
	TokenPrice    decimal.Decimal
	PoolBalance   decimal.Decimal
	TotalHolders  int
	EligibleCount int

	// TopHolders is the bounded, rank-ascending list of ranked holders
	// retained for the cycle.
	TopHolders []RankedHolder
}

// Winner returns the ranked holder at the given rank (1-based), or nil
// when no such rank exists in the snapshot.
func (s *Snapshot) Winner(rank int) *RankedHolder {
	for i := range s.TopHolders {
		if s.TopHolders[i].Rank == rank && s.TopHolders[i].Eligible {
			return &s.TopHolders[i]
		}
	}
	return nil
}
