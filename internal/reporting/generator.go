package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	snapshotStore storage.SnapshotStore
	payoutStore   storage.PayoutStore
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(snapshots storage.SnapshotStore, payouts storage.PayoutStore) *Generator {
	return &Generator{
		snapshotStore: snapshots,
		payoutStore:   payouts,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces the report for one cycle.
func (g *Generator) Generate(ctx context.Context, cycle int64) (*Report, error) {
	snapshot, err := g.snapshotStore.GetByCycle(ctx, cycle)
	if err != nil {
		return nil, fmt.Errorf("load snapshot for cycle %d: %w", cycle, err)
	}
	return g.build(ctx, snapshot)
}

// GenerateLatest produces the report for the most recent cycle.
func (g *Generator) GenerateLatest(ctx context.Context) (*Report, error) {
	snapshot, err := g.snapshotStore.Latest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no cycle has run yet: %w", err)
		}
		return nil, err
	}
	return g.build(ctx, snapshot)
}

func (g *Generator) build(ctx context.Context, snapshot *domain.Snapshot) (*Report, error) {
	payouts, err := g.payoutStore.GetByCycle(ctx, snapshot.Cycle)
	if err != nil {
		return nil, fmt.Errorf("load payouts for cycle %d: %w", snapshot.Cycle, err)
	}

	r := &Report{
		GeneratedAt:   g.now(),
		Cycle:         snapshot.Cycle,
		SettledAtMs:   snapshot.TimestampMs,
		TokenPrice:    snapshot.TokenPrice.String(),
		PoolBalance:   snapshot.PoolBalance.String(),
		TotalHolders:  snapshot.TotalHolders,
		EligibleCount: snapshot.EligibleCount,
	}

	rejections := make(map[string]int)
	for _, h := range snapshot.TopHolders {
		if !h.Eligible {
			rejections[h.IneligibleReason]++
			continue
		}
		basis := "-"
		if h.CostBasis != nil {
			basis = h.CostBasis.String()
		}
		r.Leaderboard = append(r.Leaderboard, LeaderboardRow{
			Rank:        h.Rank,
			Wallet:      h.Wallet,
			Balance:     h.Balance.String(),
			CostBasis:   basis,
			DrawdownPct: h.DrawdownPct.StringFixed(4),
			LossUsd:     h.LossUsd.StringFixed(2),
		})
	}
	sort.Slice(r.Leaderboard, func(i, j int) bool {
		return r.Leaderboard[i].Rank < r.Leaderboard[j].Rank
	})

	for _, p := range payouts {
		r.Payouts = append(r.Payouts, PayoutRow{
			Rank:     p.Rank,
			Wallet:   p.Wallet,
			Amount:   p.Amount.StringFixed(2),
			Status:   p.Status,
			PayoutID: p.PayoutID,
		})
	}
	sort.Slice(r.Payouts, func(i, j int) bool {
		return r.Payouts[i].Rank < r.Payouts[j].Rank
	})

	for reason, count := range rejections {
		r.Rejections = append(r.Rejections, RejectionRow{Reason: reason, Count: count})
	}
	sort.Slice(r.Rejections, func(i, j int) bool {
		if r.Rejections[i].Count != r.Rejections[j].Count {
			return r.Rejections[i].Count > r.Rejections[j].Count
		}
		return r.Rejections[i].Reason < r.Rejections[j].Reason
	})

	return r, nil
}
