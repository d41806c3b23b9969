package memory

import (
	"context"
	"sort"
	"sync"

	"lossmine/internal/domain"
	"lossmine/internal/idhash"
	"lossmine/internal/storage"
)

// AcquisitionStore is an in-memory implementation of
// storage.AcquisitionStore.
type AcquisitionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AcquisitionEvent // keyed by event ID
}

// NewAcquisitionStore creates a new in-memory acquisition event store.
func NewAcquisitionStore() *AcquisitionStore {
	return &AcquisitionStore{
		data: make(map[string]*domain.AcquisitionEvent),
	}
}

func eventKey(e *domain.AcquisitionEvent) string {
	return idhash.ComputeEventID(e.Wallet, e.TxSignature, e.EventIndex)
}

// Insert adds one event. Returns ErrDuplicateKey if the composite key
// exists.
func (s *AcquisitionStore) Insert(_ context.Context, e *domain.AcquisitionEvent) error {
	if e == nil || e.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey(e)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[key] = &copy
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any
// duplicate.
func (s *AcquisitionStore) InsertBulk(_ context.Context, events []*domain.AcquisitionEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Wallet == "" {
			return storage.ErrInvalidInput
		}
		key := eventKey(e)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range events {
		copy := *e
		s.data[eventKey(e)] = &copy
	}
	return nil
}

// GetByWallet retrieves all events for a wallet, ordered by timestamp ASC.
func (s *AcquisitionStore) GetByWallet(ctx context.Context, wallet string) ([]*domain.AcquisitionEvent, error) {
	return s.GetByWalletSince(ctx, wallet, 0)
}

// GetByWalletSince retrieves events with timestamp >= sinceMs, ordered
// by timestamp ASC.
func (s *AcquisitionStore) GetByWalletSince(_ context.Context, wallet string, sinceMs int64) ([]*domain.AcquisitionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AcquisitionEvent
	for _, e := range s.data {
		if e.Wallet == wallet && e.TimestampMs >= sinceMs {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TimestampMs != result[j].TimestampMs {
			return result[i].TimestampMs < result[j].TimestampMs
		}
		return result[i].EventIndex < result[j].EventIndex
	})

	return result, nil
}

var _ storage.AcquisitionStore = (*AcquisitionStore)(nil)
