package storage

import (
	"context"
	"time"

	"lossmine/internal/domain"
)

// HolderStore provides access to holders storage. Holder records are
// upserted, never deleted: cooldowns are modeled as time-bounded
// overlays, not record removal.
type HolderStore interface {
	// Upsert creates or replaces the holder keyed by wallet.
	Upsert(ctx context.Context, h *domain.Holder) error

	// Get retrieves a holder by wallet. Returns ErrNotFound if not exists.
	Get(ctx context.Context, wallet string) (*domain.Holder, error)

	// GetAll retrieves every tracked holder, ordered by wallet ASC.
	GetAll(ctx context.Context) ([]*domain.Holder, error)
}

// AcquisitionStore provides access to acquisition_events storage.
// Events are append-only history and never mutated.
type AcquisitionStore interface {
	// Insert adds one event. Returns ErrDuplicateKey if
	// (wallet, tx_signature, event_index) exists.
	Insert(ctx context.Context, e *domain.AcquisitionEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on
	// any duplicate.
	InsertBulk(ctx context.Context, events []*domain.AcquisitionEvent) error

	// GetByWallet retrieves all events for a wallet, ordered by
	// timestamp ASC.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.AcquisitionEvent, error)

	// GetByWalletSince retrieves events for a wallet with timestamp >=
	// sinceMs, ordered by timestamp ASC.
	GetByWalletSince(ctx context.Context, wallet string, sinceMs int64) ([]*domain.AcquisitionEvent, error)
}

// SnapshotStore provides access to snapshots storage. Snapshots are
// immutable once created.
type SnapshotStore interface {
	// Insert adds a cycle snapshot. Returns ErrDuplicateKey if the cycle
	// number exists.
	Insert(ctx context.Context, s *domain.Snapshot) error

	// Latest retrieves the snapshot with the highest cycle number.
	// Returns ErrNotFound when no cycle has run yet.
	Latest(ctx context.Context) (*domain.Snapshot, error)

	// GetByCycle retrieves one cycle's snapshot. Returns ErrNotFound if
	// not exists.
	GetByCycle(ctx context.Context, cycle int64) (*domain.Snapshot, error)

	// List retrieves up to limit snapshots, newest cycle first.
	List(ctx context.Context, limit int) ([]*domain.Snapshot, error)
}

// PayoutStore provides access to payout_records storage.
type PayoutStore interface {
	// Insert adds one payout record. Returns ErrDuplicateKey if
	// (cycle, rank) exists.
	Insert(ctx context.Context, p *domain.PayoutRecord) error

	// GetByCycle retrieves a cycle's payout records, ordered by rank
	// ASC. An empty result means the cycle has not been paid.
	GetByCycle(ctx context.Context, cycle int64) ([]*domain.PayoutRecord, error)

	// GetByWallet retrieves a wallet's payout records, newest cycle
	// first.
	GetByWallet(ctx context.Context, wallet string) ([]*domain.PayoutRecord, error)
}

// DisqualificationStore provides access to disqualification_windows
// storage.
type DisqualificationStore interface {
	// Upsert creates or extends the window keyed by (wallet, reason).
	Upsert(ctx context.Context, w *domain.DisqualificationWindow) error

	// ActiveForWallet reports whether any window for the wallet covers
	// now.
	ActiveForWallet(ctx context.Context, wallet string, now time.Time) (bool, error)

	// SweepExpired deletes windows with expires_at <= now and returns
	// how many were removed.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// LeaderboardHistoryStore archives every cycle's ranked holders for
// analytics. Append-only; backed by ClickHouse in production.
type LeaderboardHistoryStore interface {
	// InsertCycle appends one cycle's ranked rows.
	InsertCycle(ctx context.Context, cycle int64, timestampMs int64, rows []domain.RankedHolder) error

	// TopLosers retrieves the deepest archived drawdowns for a wallet,
	// newest cycle first, up to limit rows.
	TopLosers(ctx context.Context, wallet string, limit int) ([]domain.RankedHolder, error)
}
