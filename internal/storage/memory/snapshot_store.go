package memory

import (
	"context"
	"sort"
	"sync"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.Snapshot // keyed by cycle
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[int64]*domain.Snapshot),
	}
}

// Insert adds a cycle snapshot. Returns ErrDuplicateKey if the cycle
// number exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.Cycle <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.Cycle]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[snap.Cycle] = cloneSnapshot(snap)
	return nil
}

// Latest retrieves the snapshot with the highest cycle number. Returns
// ErrNotFound when no cycle has run yet.
func (s *SnapshotStore) Latest(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Snapshot
	for _, snap := range s.data {
		if latest == nil || snap.Cycle > latest.Cycle {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return cloneSnapshot(latest), nil
}

// GetByCycle retrieves one cycle's snapshot. Returns ErrNotFound if not
// exists.
func (s *SnapshotStore) GetByCycle(_ context.Context, cycle int64) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[cycle]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneSnapshot(snap), nil
}

// List retrieves up to limit snapshots, newest cycle first.
func (s *SnapshotStore) List(_ context.Context, limit int) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Snapshot, 0, len(s.data))
	for _, snap := range s.data {
		result = append(result, cloneSnapshot(snap))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Cycle > result[j].Cycle
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// cloneSnapshot deep-copies a snapshot including its ranked list.
func cloneSnapshot(snap *domain.Snapshot) *domain.Snapshot {
	copy := *snap
	copy.TopHolders = make([]domain.RankedHolder, len(snap.TopHolders))
	for i, rh := range snap.TopHolders {
		copy.TopHolders[i] = rh
		if rh.CostBasis != nil {
			cb := *rh.CostBasis
			copy.TopHolders[i].CostBasis = &cb
		}
	}
	return &copy
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
