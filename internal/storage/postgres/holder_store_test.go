package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lossmine/internal/domain"
	"lossmine/internal/storage"
)

func TestHolderStore_UpsertGetRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHolderStore(pool)
	ctx := context.Background()

	h := &domain.Holder{
		Wallet:           "wallet-1",
		Balance:          decimal.RequireFromString("1234.5678"),
		TotalAcquired:    decimal.RequireFromString("2000"),
		TotalCostAmount:  decimal.RequireFromString("4"),
		LastWinCycle:     ptr(int64(5)),
		CostBasisResetAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Eligible:         true,
		UpdatedAt:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	h.SetCostBasis(decimal.RequireFromString("0.002"))

	require.NoError(t, store.Upsert(ctx, h))

	got, err := store.Get(ctx, "wallet-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(h.Balance), "balance: got %s", got.Balance)
	require.NotNil(t, got.CostBasis)
	assert.True(t, got.CostBasis.Equal(*h.CostBasis), "cost basis: got %s", got.CostBasis)
	require.NotNil(t, got.LastWinCycle)
	assert.Equal(t, int64(5), *got.LastWinCycle)
	assert.True(t, got.Eligible)
	assert.True(t, got.CostBasisResetAt.Equal(h.CostBasisResetAt))
}

func TestHolderStore_NilCostBasisStaysNil(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHolderStore(pool)
	ctx := context.Background()

	h := &domain.Holder{
		Wallet:           "wallet-nocb",
		Balance:          decimal.RequireFromString("10"),
		IneligibleReason: "No buy history",
		UpdatedAt:        time.Now().UTC(),
	}
	require.NoError(t, store.Upsert(ctx, h))

	got, err := store.Get(ctx, "wallet-nocb")
	require.NoError(t, err)
	assert.Nil(t, got.CostBasis, "absent cost basis must round-trip as nil, not zero")
	assert.Nil(t, got.LastWinCycle)
	assert.Equal(t, "No buy history", got.IneligibleReason)
}

func TestHolderStore_UpsertReplaces(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHolderStore(pool)
	ctx := context.Background()

	h := &domain.Holder{Wallet: "wallet-1", Balance: decimal.RequireFromString("100"), UpdatedAt: time.Now().UTC()}
	require.NoError(t, store.Upsert(ctx, h))

	h.Balance = decimal.RequireFromString("50")
	h.SetCostBasis(decimal.RequireFromString("0.01"))
	require.NoError(t, store.Upsert(ctx, h))

	got, err := store.Get(ctx, "wallet-1")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("50")))
	require.NotNil(t, got.CostBasis)
}

func TestHolderStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHolderStore(pool)

	_, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHolderStore_GetAllOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewHolderStore(pool)
	ctx := context.Background()

	for _, w := range []string{"wallet-c", "wallet-a", "wallet-b"} {
		require.NoError(t, store.Upsert(ctx, &domain.Holder{Wallet: w, UpdatedAt: time.Now().UTC()}))
	}

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "wallet-a", all[0].Wallet)
	assert.Equal(t, "wallet-b", all[1].Wallet)
	assert.Equal(t, "wallet-c", all[2].Wallet)
}
