package memory

import (
	"context"
	"sort"
	"sync"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

// HolderStore is an in-memory implementation of storage.HolderStore.
type HolderStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Holder // keyed by wallet
}

// NewHolderStore creates a new in-memory holder store.
func NewHolderStore() *HolderStore {
	return &HolderStore{
		data: make(map[string]*domain.Holder),
	}
}

// Upsert creates or replaces the holder keyed by wallet.
func (s *HolderStore) Upsert(_ context.Context, h *domain.Holder) error {
	if h == nil || h.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := cloneHolder(h)
	s.data[h.Wallet] = copy
	return nil
}

// Get retrieves a holder by wallet. Returns ErrNotFound if not exists.
func (s *HolderStore) Get(_ context.Context, wallet string) (*domain.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.data[wallet]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneHolder(h), nil
}

// GetAll retrieves every tracked holder, ordered by wallet ASC.
func (s *HolderStore) GetAll(_ context.Context) ([]*domain.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Holder, 0, len(s.data))
	for _, h := range s.data {
		result = append(result, cloneHolder(h))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Wallet < result[j].Wallet
	})

	return result, nil
}

// cloneHolder deep-copies a holder, including the optional pointers.
func cloneHolder(h *domain.Holder) *domain.Holder {
	copy := *h
	if h.CostBasis != nil {
		cb := *h.CostBasis
		copy.CostBasis = &cb
	}
	if h.LastWinCycle != nil {
		lw := *h.LastWinCycle
		copy.LastWinCycle = &lw
	}
	return &copy
}

var _ storage.HolderStore = (*HolderStore)(nil)
