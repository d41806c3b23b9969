// Package payout splits a cycle's pool between the winning ranks.
package payout

import (
	"github.com/shopspring/decimal"
)

// Share is one rank's slice of the pool.
type Share struct {
	Rank   int
	Amount decimal.Decimal
}

// Allocate computes the pool share per rank for however many winners
// actually exist: winners beyond the split length get nothing, ranks
// without a winner are never invented. The split is assumed validated
// (sums to 1) at configuration load.
func Allocate(pool decimal.Decimal, split []decimal.Decimal, winnerCount int) []Share {
	if winnerCount <= 0 {
		return nil
	}
	n := winnerCount
	if n > len(split) {
		n = len(split)
	}

	shares := make([]Share, 0, n)
	for i := 0; i < n; i++ {
		shares = append(shares, Share{
			Rank:   i + 1,
			Amount: pool.Mul(split[i]),
		})
	}
	return shares
}
