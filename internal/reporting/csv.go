package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the leaderboard as CSV string.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("cycle,rank,wallet,balance,cost_basis,drawdown_pct,loss_usd\n")

	// Rows
	for _, row := range r.Leaderboard {
		sb.WriteString(fmt.Sprintf("%d,%d,%s,%s,%s,%s,%s\n",
			r.Cycle,
			row.Rank,
			row.Wallet,
			row.Balance,
			row.CostBasis,
			row.DrawdownPct,
			row.LossUsd,
		))
	}

	return sb.String()
}
