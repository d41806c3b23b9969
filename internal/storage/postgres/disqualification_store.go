package postgres

import (
	"context"
	"fmt"
	"time"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

// DisqualificationStore implements storage.DisqualificationStore using
// PostgreSQL.
type DisqualificationStore struct {
	pool *Pool
}

// NewDisqualificationStore creates a new DisqualificationStore.
func NewDisqualificationStore(pool *Pool) *DisqualificationStore {
	return &DisqualificationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DisqualificationStore = (*DisqualificationStore)(nil)

// Upsert creates or extends the window keyed by (wallet, reason).
func (s *DisqualificationStore) Upsert(ctx context.Context, w *domain.DisqualificationWindow) error {
	if w == nil || w.Wallet == "" || w.Reason == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO disqualification_windows (wallet, reason, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet, reason) DO UPDATE SET expires_at = EXCLUDED.expires_at
	`

	_, err := s.pool.Exec(ctx, query, w.Wallet, w.Reason, w.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert disqualification window: %w", err)
	}
	return nil
}

// ActiveForWallet reports whether any window for the wallet covers now.
func (s *DisqualificationStore) ActiveForWallet(ctx context.Context, wallet string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM disqualification_windows
			WHERE wallet = $1 AND expires_at > $2
		)
	`

	var active bool
	if err := s.pool.QueryRow(ctx, query, wallet, now).Scan(&active); err != nil {
		return false, fmt.Errorf("check active disqualification: %w", err)
	}
	return active, nil
}

// SweepExpired deletes windows with expires_at <= now and returns how
// many were removed.
func (s *DisqualificationStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM disqualification_windows WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired disqualifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
