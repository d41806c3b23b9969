package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

func payoutFixture(cycle int64, rank int, wallet string) *domain.PayoutRecord {
	return &domain.PayoutRecord{
		PayoutID:    wallet + "-id",
		Cycle:       cycle,
		Rank:        rank,
		Wallet:      wallet,
		Amount:      decimal.RequireFromString("800"),
		Status:      domain.PayoutStatusPending,
		CreatedAtMs: 1704067200000,
	}
}

func TestPayoutStore_InsertAndGetByCycle(t *testing.T) {
	store := NewPayoutStore()
	ctx := context.Background()

	// Insert out of rank order.
	for _, p := range []*domain.PayoutRecord{
		payoutFixture(1, 3, "wallet-3"),
		payoutFixture(1, 1, "wallet-1"),
		payoutFixture(1, 2, "wallet-2"),
	} {
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert rank %d failed: %v", p.Rank, err)
		}
	}

	got, err := store.GetByCycle(ctx, 1)
	if err != nil {
		t.Fatalf("GetByCycle failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, p := range got {
		if p.Rank != i+1 {
			t.Errorf("position %d: expected rank %d, got %d", i, i+1, p.Rank)
		}
	}
}

func TestPayoutStore_DuplicateCycleRank(t *testing.T) {
	store := NewPayoutStore()
	ctx := context.Background()

	if err := store.Insert(ctx, payoutFixture(1, 1, "wallet-1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	err := store.Insert(ctx, payoutFixture(1, 1, "wallet-other"))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey for repeated (cycle, rank), got %v", err)
	}
}

func TestPayoutStore_EmptyCycleMeansUnpaid(t *testing.T) {
	store := NewPayoutStore()

	got, err := store.GetByCycle(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetByCycle failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records for unpaid cycle, got %d", len(got))
	}
}

func TestPayoutStore_GetByWalletNewestFirst(t *testing.T) {
	store := NewPayoutStore()
	ctx := context.Background()

	for _, p := range []*domain.PayoutRecord{
		payoutFixture(1, 1, "wallet-1"),
		payoutFixture(3, 2, "wallet-1"),
		payoutFixture(2, 1, "wallet-other"),
	} {
		if err := store.Insert(ctx, p); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByWallet(ctx, "wallet-1")
	if err != nil {
		t.Fatalf("GetByWallet failed: %v", err)
	}
	if len(got) != 2 || got[0].Cycle != 3 || got[1].Cycle != 1 {
		t.Errorf("expected cycles [3 1] for wallet-1, got %v", got)
	}
}

func TestPayoutStore_InvalidInput(t *testing.T) {
	store := NewPayoutStore()
	ctx := context.Background()

	bad := payoutFixture(0, 1, "wallet-1")
	if err := store.Insert(ctx, bad); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for cycle 0, got %v", err)
	}
}
