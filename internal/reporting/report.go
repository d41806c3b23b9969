// Package reporting renders a settled cycle as a human-readable report.
package reporting

import "time"

// Report is one cycle's leaderboard and payout summary.
type Report struct {
	GeneratedAt time.Time

	// Cycle metadata
	Cycle         int64
	SettledAtMs   int64
	TokenPrice    string
	PoolBalance   string
	TotalHolders  int
	EligibleCount int

	// Leaderboard rows, rank ascending.
	Leaderboard []LeaderboardRow

	// Payouts for the cycle, rank ascending. Empty when the cycle was
	// skipped.
	Payouts []PayoutRow

	// Rejections histogram across the retained holder rows, sorted by
	// count descending then reason.
	Rejections []RejectionRow
}

// LeaderboardRow is one ranked holder in the report.
type LeaderboardRow struct {
	Rank        int
	Wallet      string
	Balance     string
	CostBasis   string // "-" when absent
	DrawdownPct string
	LossUsd     string
}

// PayoutRow is one winner's payout in the report.
type PayoutRow struct {
	Rank     int
	Wallet   string
	Amount   string
	Status   string
	PayoutID string
}

// RejectionRow aggregates one ineligibility reason.
type RejectionRow struct {
	Reason string
	Count  int
}
