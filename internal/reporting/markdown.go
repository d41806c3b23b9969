package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Cycle %d Report\n\n", r.Cycle))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Settled: %s\n\n", time.UnixMilli(r.SettledAtMs).UTC().Format(time.RFC3339)))

	// Cycle Summary
	sb.WriteString("## Cycle Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Token Price (USD) | %s |\n", r.TokenPrice))
	sb.WriteString(fmt.Sprintf("| Pool Balance (USD) | %s |\n", r.PoolBalance))
	sb.WriteString(fmt.Sprintf("| Total Holders | %d |\n", r.TotalHolders))
	sb.WriteString(fmt.Sprintf("| Eligible Holders | %d |\n", r.EligibleCount))
	sb.WriteString("\n")

	// Leaderboard
	sb.WriteString("## Leaderboard\n\n")
	if len(r.Leaderboard) > 0 {
		sb.WriteString("| Rank | Wallet | Balance | Cost Basis | Drawdown % | Loss (USD) |\n")
		sb.WriteString("|------|--------|---------|------------|------------|------------|\n")
		for _, row := range r.Leaderboard {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
				row.Rank, row.Wallet, row.Balance, row.CostBasis,
				row.DrawdownPct, row.LossUsd))
		}
	} else {
		sb.WriteString("No eligible holders this cycle.\n")
	}
	sb.WriteString("\n")

	// Payouts
	sb.WriteString("## Payouts\n\n")
	if len(r.Payouts) > 0 {
		sb.WriteString("| Rank | Wallet | Amount (USD) | Status | Payout ID |\n")
		sb.WriteString("|------|--------|--------------|--------|-----------|\n")
		for _, p := range r.Payouts {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
				p.Rank, p.Wallet, p.Amount, p.Status, p.PayoutID))
		}
	} else {
		sb.WriteString("No payouts: the pool carried over.\n")
	}
	sb.WriteString("\n")

	// Rejections
	sb.WriteString("## Rejections\n\n")
	if len(r.Rejections) > 0 {
		sb.WriteString("| Reason | Holders |\n")
		sb.WriteString("|--------|--------|\n")
		for _, rej := range r.Rejections {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", rej.Reason, rej.Count))
		}
	} else {
		sb.WriteString("No rejections among retained rows.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
