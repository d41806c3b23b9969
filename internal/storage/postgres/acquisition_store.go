package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

// AcquisitionStore implements storage.AcquisitionStore using PostgreSQL.
type AcquisitionStore struct {
	pool *Pool
}

// NewAcquisitionStore creates a new AcquisitionStore.
func NewAcquisitionStore(pool *Pool) *AcquisitionStore {
	return &AcquisitionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AcquisitionStore = (*AcquisitionStore)(nil)

const acquisitionInsert = `
	INSERT INTO acquisition_events (
		wallet, kind, timestamp_ms, quantity, unit_price, tx_signature, event_index
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Insert adds one event. Returns ErrDuplicateKey if
// (wallet, tx_signature, event_index) exists.
func (s *AcquisitionStore) Insert(ctx context.Context, e *domain.AcquisitionEvent) error {
	if e == nil || e.Wallet == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, acquisitionInsert,
		e.Wallet,
		string(e.Kind),
		e.TimestampMs,
		e.Quantity,
		e.UnitPrice,
		e.TxSignature,
		e.EventIndex,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert acquisition event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any
// duplicate.
func (s *AcquisitionStore) InsertBulk(ctx context.Context, events []*domain.AcquisitionEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if e == nil || e.Wallet == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, acquisitionInsert,
			e.Wallet,
			string(e.Kind),
			e.TimestampMs,
			e.Quantity,
			e.UnitPrice,
			e.TxSignature,
			e.EventIndex,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("bulk insert acquisition event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// GetByWallet retrieves all events for a wallet, ordered by timestamp ASC.
func (s *AcquisitionStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.AcquisitionEvent, error) {
	return s.GetByWalletSince(ctx, wallet, 0)
}

// GetByWalletSince retrieves events with timestamp >= sinceMs, ordered
// by timestamp ASC.
func (s *AcquisitionStore) GetByWalletSince(ctx context.Context, wallet string, sinceMs int64) ([]*domain.AcquisitionEvent, error) {
	query := `
		SELECT wallet, kind, timestamp_ms, quantity, unit_price, tx_signature, event_index
		FROM acquisition_events
		WHERE wallet = $1 AND timestamp_ms >= $2
		ORDER BY timestamp_ms ASC, event_index ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("get acquisition events: %w", err)
	}
	defer rows.Close()

	return scanAcquisitionEvents(rows)
}

// scanAcquisitionEvents scans rows into a slice of AcquisitionEvent.
func scanAcquisitionEvents(rows pgx.Rows) ([]*domain.AcquisitionEvent, error) {
	var events []*domain.AcquisitionEvent

	for rows.Next() {
		var e domain.AcquisitionEvent
		var kindStr string

		err := rows.Scan(
			&e.Wallet,
			&kindStr,
			&e.TimestampMs,
			&e.Quantity,
			&e.UnitPrice,
			&e.TxSignature,
			&e.EventIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("scan acquisition event row: %w", err)
		}

		e.Kind = domain.EventKind(kindStr)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate acquisition event rows: %w", err)
	}

	return events, nil
}
