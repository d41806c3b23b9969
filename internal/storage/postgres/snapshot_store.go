package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL. The
// bounded ranked-holder list is stored as a JSONB column; snapshots are
// write-once so the document shape never needs in-place updates.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a cycle snapshot. Returns ErrDuplicateKey if the cycle
// number exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.Cycle <= 0 {
		return storage.ErrInvalidInput
	}

	topJSON, err := json.Marshal(snap.TopHolders)
	if err != nil {
		return fmt.Errorf("marshal top holders: %w", err)
	}

	query := `
		INSERT INTO snapshots (
			cycle, timestamp_ms, token_price, pool_balance,
			total_holders, eligible_count, top_holders
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		snap.Cycle,
		snap.TimestampMs,
		snap.TokenPrice,
		snap.PoolBalance,
		snap.TotalHolders,
		snap.EligibleCount,
		topJSON,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

const snapshotSelect = `
	SELECT cycle, timestamp_ms, token_price, pool_balance,
	       total_holders, eligible_count, top_holders
	FROM snapshots`

// Latest retrieves the snapshot with the highest cycle number. Returns
// ErrNotFound when no cycle has run yet.
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	row := s.pool.QueryRow(ctx, snapshotSelect+` ORDER BY cycle DESC LIMIT 1`)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return snap, nil
}

// GetByCycle retrieves one cycle's snapshot. Returns ErrNotFound if not
// exists.
func (s *SnapshotStore) GetByCycle(ctx context.Context, cycle int64) (*domain.Snapshot, error) {
	row := s.pool.QueryRow(ctx, snapshotSelect+` WHERE cycle = $1`, cycle)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by cycle: %w", err)
	}
	return snap, nil
}

// List retrieves up to limit snapshots, newest cycle first.
func (s *SnapshotStore) List(ctx context.Context, limit int) ([]*domain.Snapshot, error) {
	rows, err := s.pool.Query(ctx, snapshotSelect+` ORDER BY cycle DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snapshots, nil
}

// scanSnapshot scans a single row into a Snapshot.
func scanSnapshot(row pgx.Row) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	var topJSON []byte

	err := row.Scan(
		&snap.Cycle,
		&snap.TimestampMs,
		&snap.TokenPrice,
		&snap.PoolBalance,
		&snap.TotalHolders,
		&snap.EligibleCount,
		&topJSON,
	)
	if err != nil {
		return nil, err
	}

	if len(topJSON) > 0 {
		if err := json.Unmarshal(topJSON, &snap.TopHolders); err != nil {
			return nil, fmt.Errorf("unmarshal top holders: %w", err)
		}
	}
	return &snap, nil
}
