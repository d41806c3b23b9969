package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

// PayoutStore is an in-memory implementation of storage.PayoutStore.
type PayoutStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PayoutRecord // keyed by cycle|rank
}

// NewPayoutStore creates a new in-memory payout store.
func NewPayoutStore() *PayoutStore {
	return &PayoutStore{
		data: make(map[string]*domain.PayoutRecord),
	}
}

func payoutKey(cycle int64, rank int) string {
	return fmt.Sprintf("%d|%d", cycle, rank)
}

// Insert adds one payout record. Returns ErrDuplicateKey if
// (cycle, rank) exists.
func (s *PayoutStore) Insert(_ context.Context, p *domain.PayoutRecord) error {
	if p == nil || p.Wallet == "" || p.Rank <= 0 || p.Cycle <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := payoutKey(p.Cycle, p.Rank)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.data[key] = &copy
	return nil
}

// GetByCycle retrieves a cycle's payout records, ordered by rank ASC.
func (s *PayoutStore) GetByCycle(_ context.Context, cycle int64) ([]*domain.PayoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PayoutRecord
	for _, p := range s.data {
		if p.Cycle == cycle {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Rank < result[j].Rank
	})

	return result, nil
}

// GetByWallet retrieves a wallet's payout records, newest cycle first.
func (s *PayoutStore) GetByWallet(_ context.Context, wallet string) ([]*domain.PayoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PayoutRecord
	for _, p := range s.data {
		if p.Wallet == wallet {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Cycle != result[j].Cycle {
			return result[i].Cycle > result[j].Cycle
		}
		return result[i].Rank < result[j].Rank
	})

	return result, nil
}

var _ storage.PayoutStore = (*PayoutStore)(nil)
