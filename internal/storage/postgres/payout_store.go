package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

// PayoutStore implements storage.PayoutStore using PostgreSQL.
type PayoutStore struct {
	pool *Pool
}

// NewPayoutStore creates a new PayoutStore.
func NewPayoutStore(pool *Pool) *PayoutStore {
	return &PayoutStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PayoutStore = (*PayoutStore)(nil)

// Insert adds one payout record. Returns ErrDuplicateKey if
// (cycle, rank) exists.
func (s *PayoutStore) Insert(ctx context.Context, p *domain.PayoutRecord) error {
	if p == nil || p.Wallet == "" || p.Rank <= 0 || p.Cycle <= 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO payout_records (
			payout_id, cycle, rank, wallet, amount, status, created_at_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PayoutID,
		p.Cycle,
		p.Rank,
		p.Wallet,
		p.Amount,
		p.Status,
		p.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert payout record: %w", err)
	}
	return nil
}

const payoutSelect = `
	SELECT payout_id, cycle, rank, wallet, amount, status, created_at_ms
	FROM payout_records`

// GetByCycle retrieves a cycle's payout records, ordered by rank ASC.
func (s *PayoutStore) GetByCycle(ctx context.Context, cycle int64) ([]*domain.PayoutRecord, error) {
	rows, err := s.pool.Query(ctx, payoutSelect+` WHERE cycle = $1 ORDER BY rank ASC`, cycle)
	if err != nil {
		return nil, fmt.Errorf("get payouts by cycle: %w", err)
	}
	defer rows.Close()

	return scanPayouts(rows)
}

// GetByWallet retrieves a wallet's payout records, newest cycle first.
func (s *PayoutStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.PayoutRecord, error) {
	rows, err := s.pool.Query(ctx, payoutSelect+` WHERE wallet = $1 ORDER BY cycle DESC, rank ASC`, wallet)
	if err != nil {
		return nil, fmt.Errorf("get payouts by wallet: %w", err)
	}
	defer rows.Close()

	return scanPayouts(rows)
}

// scanPayouts scans rows into a slice of PayoutRecord.
func scanPayouts(rows pgx.Rows) ([]*domain.PayoutRecord, error) {
	var payouts []*domain.PayoutRecord

	for rows.Next() {
		var p domain.PayoutRecord
		err := rows.Scan(
			&p.PayoutID,
			&p.Cycle,
			&p.Rank,
			&p.Wallet,
			&p.Amount,
			&p.Status,
			&p.CreatedAtMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payout row: %w", err)
		}
		payouts = append(payouts, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payout rows: %w", err)
	}

	return payouts, nil
}
