// Package ranking totally orders a cycle's eligible holders by loss
// severity.
package ranking

import (
	"sort"

	"lossmine/internal/domain"
)

// Rank filters to eligible holders and returns them densely ranked from
// 1. Ordering: drawdownPct ASC (deepest loss percentage first), then
// lossUsd DESC (larger dollar loss wins the tie), then wallet ASC so
// exact ties stay deterministic across runs. Ineligible holders never
// receive a rank. The input slice is not modified.
func Rank(evaluated []domain.RankedHolder) []domain.RankedHolder {
	ranked := make([]domain.RankedHolder, 0, len(evaluated))
	for _, h := range evaluated {
		if h.Eligible {
			ranked = append(ranked, h)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].DrawdownPct.Cmp(ranked[j].DrawdownPct); c != 0 {
			return c < 0
		}
		if c := ranked[i].LossUsd.Cmp(ranked[j].LossUsd); c != 0 {
			return c > 0
		}
		return ranked[i].Wallet < ranked[j].Wallet
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Top bounds a ranked slice to its first n entries.
func Top(ranked []domain.RankedHolder, n int) []domain.RankedHolder {
	if n < 0 {
		n = 0
	}
	if len(ranked) <= n {
		return ranked
	}
	return ranked[:n]
}
