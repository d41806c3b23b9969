package memory

import (
	"context"
	"sync"
	"time"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

// DisqualificationStore is an in-memory implementation of
// storage.DisqualificationStore.
type DisqualificationStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DisqualificationWindow // keyed by wallet|reason
}

// NewDisqualificationStore creates a new in-memory disqualification
// store.
func NewDisqualificationStore() *DisqualificationStore {
	return &DisqualificationStore{
		data: make(map[string]*domain.DisqualificationWindow),
	}
}

// Upsert creates or extends the window keyed by (wallet, reason).
func (s *DisqualificationStore) Upsert(_ context.Context, w *domain.DisqualificationWindow) error {
	if w == nil || w.Wallet == "" || w.Reason == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *w
	s.data[w.Wallet+"|"+w.Reason] = &copy
	return nil
}

// ActiveForWallet reports whether any window for the wallet covers now.
func (s *DisqualificationStore) ActiveForWallet(_ context.Context, wallet string, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, w := range s.data {
		if w.Wallet == wallet && w.Active(now) {
			return true, nil
		}
	}
	return false, nil
}

// SweepExpired deletes windows with expires_at <= now and returns how
// many were removed.
func (s *DisqualificationStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.data {
		if !w.Active(now) {
			delete(s.data, key)
			removed++
		}
	}
	return removed, nil
}

var _ storage.DisqualificationStore = (*DisqualificationStore)(nil)
