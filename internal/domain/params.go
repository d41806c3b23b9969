package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ContestParams are the tunable rules of the competition. Loaded once at
// startup and passed by value into the engine; the engine never reads
// global state.
type ContestParams struct {
	// MinimumHolding is the smallest balance allowed to compete.
	MinimumHolding decimal.Decimal

	// MinLossThresholdPct gates entry: a holder's loss must be at least
	// this percentage of the pool balance.
	MinLossThresholdPct decimal.Decimal

	// MinHoldDuration is the minimum time since the first qualifying
	// acquisition (relative to the most recent cost-basis reset).
	MinHoldDuration time.Duration

	// WinnerCooldown is the wall-clock disqualification window opened on
	// a win, in addition to the one-cycle lastWinCycle ban.
	WinnerCooldown time.Duration

	// Split is the pool share per rank, ranks 1..len(Split). Must sum to
	// exactly 1.
	Split []decimal.Decimal

	// TopN bounds the ranked-holder list retained in a snapshot.
	TopN int
}

// DefaultSplit is the 80/15/5 three-winner split.
func DefaultSplit() []decimal.Decimal {
	return []decimal.Decimal{
		decimal.RequireFromString("0.80"),
		decimal.RequireFromString("0.15"),
		decimal.RequireFromString("0.05"),
	}
}

// Validate rejects parameter sets that would make the contest undefined.
// A bad split is a configuration error, never a runtime one.
func (p ContestParams) Validate() error {
	if p.MinimumHolding.IsNegative() {
		return fmt.Errorf("minimum holding must be non-negative, got %s", p.MinimumHolding)
	}
	if p.MinLossThresholdPct.IsNegative() {
		return fmt.Errorf("min loss threshold pct must be non-negative, got %s", p.MinLossThresholdPct)
	}
	if len(p.Split) == 0 {
		return fmt.Errorf("payout split must have at least one rank")
	}
	sum := decimal.Zero
	for i, share := range p.Split {
		if share.IsNegative() {
			return fmt.Errorf("split share for rank %d is negative: %s", i+1, share)
		}
		sum = sum.Add(share)
	}
	if !sum.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("payout split must sum to 1, got %s", sum)
	}
	if p.TopN <= 0 {
		return fmt.Errorf("top N must be positive, got %d", p.TopN)
	}
	return nil
}
