package clickhouse

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

// LeaderboardHistoryStore implements storage.LeaderboardHistoryStore
// using ClickHouse. History rows are analytic, not authoritative: the
// Postgres snapshot remains the source of truth and decimals are
// archived as Float64 for aggregation speed.
type LeaderboardHistoryStore struct {
	conn *Conn
}

// NewLeaderboardHistoryStore creates a new LeaderboardHistoryStore.
func NewLeaderboardHistoryStore(conn *Conn) *LeaderboardHistoryStore {
	return &LeaderboardHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LeaderboardHistoryStore = (*LeaderboardHistoryStore)(nil)

// InsertCycle appends one cycle's ranked rows.
func (s *LeaderboardHistoryStore) InsertCycle(ctx context.Context, cycle int64, timestampMs int64, rows []domain.RankedHolder) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO leaderboard_history (
			cycle, timestamp_ms, wallet, balance, cost_basis,
			current_price, drawdown_pct, loss_usd, rank
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		var costBasis *float64
		if r.CostBasis != nil {
			cb := r.CostBasis.InexactFloat64()
			costBasis = &cb
		}
		err = batch.Append(
			cycle,
			timestampMs,
			r.Wallet,
			r.Balance.InexactFloat64(),
			costBasis,
			r.CurrentPrice.InexactFloat64(),
			r.DrawdownPct.InexactFloat64(),
			r.LossUsd.InexactFloat64(),
			int32(r.Rank),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// TopLosers retrieves the deepest archived drawdowns for a wallet,
// newest cycle first, up to limit rows.
func (s *LeaderboardHistoryStore) TopLosers(ctx context.Context, wallet string, limit int) ([]domain.RankedHolder, error) {
	query := `
		SELECT cycle, wallet, balance, cost_basis, current_price,
		       drawdown_pct, loss_usd, rank
		FROM leaderboard_history
		WHERE wallet = ?
		ORDER BY cycle DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("query top losers: %w", err)
	}
	defer rows.Close()

	var result []domain.RankedHolder
	for rows.Next() {
		var (
			cycle       int64
			r           domain.RankedHolder
			balance     float64
			costBasis   *float64
			price       float64
			drawdownPct float64
			lossUsd     float64
			rank        int32
		)
		err := rows.Scan(&cycle, &r.Wallet, &balance, &costBasis, &price, &drawdownPct, &lossUsd, &rank)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}

		r.Balance = decimal.NewFromFloat(balance)
		if costBasis != nil {
			cb := decimal.NewFromFloat(*costBasis)
			r.CostBasis = &cb
		}
		r.CurrentPrice = decimal.NewFromFloat(price)
		r.DrawdownPct = decimal.NewFromFloat(drawdownPct)
		r.LossUsd = decimal.NewFromFloat(lossUsd)
		r.Rank = int(rank)
		r.Eligible = true
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}
	return result, nil
}
