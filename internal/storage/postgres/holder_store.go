package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

// HolderStore implements storage.HolderStore using PostgreSQL.
type HolderStore struct {
	pool *Pool
}

// NewHolderStore creates a new HolderStore.
func NewHolderStore(pool *Pool) *HolderStore {
	return &HolderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HolderStore = (*HolderStore)(nil)

// Upsert creates or replaces the holder keyed by wallet.
func (s *HolderStore) Upsert(ctx context.Context, h *domain.Holder) error {
	if h == nil || h.Wallet == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO holders (
			wallet, balance, cost_basis, total_acquired, total_cost_amount,
			last_win_cycle, cost_basis_reset_at, eligible, ineligible_reason, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (wallet) DO UPDATE SET
			balance = EXCLUDED.balance,
			cost_basis = EXCLUDED.cost_basis,
			total_acquired = EXCLUDED.total_acquired,
			total_cost_amount = EXCLUDED.total_cost_amount,
			last_win_cycle = EXCLUDED.last_win_cycle,
			cost_basis_reset_at = EXCLUDED.cost_basis_reset_at,
			eligible = EXCLUDED.eligible,
			ineligible_reason = EXCLUDED.ineligible_reason,
			updated_at = EXCLUDED.updated_at
	`

	var resetAt *time.Time
	if !h.CostBasisResetAt.IsZero() {
		resetAt = &h.CostBasisResetAt
	}

	_, err := s.pool.Exec(ctx, query,
		h.Wallet,
		h.Balance,
		h.CostBasis,
		h.TotalAcquired,
		h.TotalCostAmount,
		h.LastWinCycle,
		resetAt,
		h.Eligible,
		h.IneligibleReason,
		h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert holder: %w", err)
	}
	return nil
}

// Get retrieves a holder by wallet. Returns ErrNotFound if not exists.
func (s *HolderStore) Get(ctx context.Context, wallet string) (*domain.Holder, error) {
	query := holderSelect + ` WHERE wallet = $1`

	row := s.pool.QueryRow(ctx, query, wallet)
	h, err := scanHolder(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get holder: %w", err)
	}
	return h, nil
}

// GetAll retrieves every tracked holder, ordered by wallet ASC.
func (s *HolderStore) GetAll(ctx context.Context) ([]*domain.Holder, error) {
	query := holderSelect + ` ORDER BY wallet ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all holders: %w", err)
	}
	defer rows.Close()

	var holders []*domain.Holder
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan holder row: %w", err)
		}
		holders = append(holders, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder rows: %w", err)
	}
	return holders, nil
}

const holderSelect = `
	SELECT wallet, balance, cost_basis, total_acquired, total_cost_amount,
	       last_win_cycle, cost_basis_reset_at, eligible, ineligible_reason, updated_at
	FROM holders`

// scanHolder scans a single row into a Holder.
func scanHolder(row pgx.Row) (*domain.Holder, error) {
	var h domain.Holder
	var costBasis *decimal.Decimal
	var resetAt *time.Time

	err := row.Scan(
		&h.Wallet,
		&h.Balance,
		&costBasis,
		&h.TotalAcquired,
		&h.TotalCostAmount,
		&h.LastWinCycle,
		&resetAt,
		&h.Eligible,
		&h.IneligibleReason,
		&h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	h.CostBasis = costBasis
	if resetAt != nil {
		h.CostBasisResetAt = *resetAt
	}
	return &h, nil
}
