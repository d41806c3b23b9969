package memory

import (
	"context"
	"testing"
	"time"

	"lossmine/internal/domain"
)

func TestDisqualificationStore_ActiveForWallet(t *testing.T) {
	store := NewDisqualificationStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	w := &domain.DisqualificationWindow{
		Wallet:    "wallet-1",
		Reason:    domain.DisqualReasonWinner,
		ExpiresAt: now.Add(48 * time.Hour),
	}
	if err := store.Upsert(ctx, w); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	active, err := store.ActiveForWallet(ctx, "wallet-1", now)
	if err != nil {
		t.Fatalf("ActiveForWallet failed: %v", err)
	}
	if !active {
		t.Error("expected active window")
	}

	// Exactly at expiry the window no longer covers now.
	active, _ = store.ActiveForWallet(ctx, "wallet-1", now.Add(48*time.Hour))
	if active {
		t.Error("window must not cover its expiry instant")
	}

	active, _ = store.ActiveForWallet(ctx, "wallet-other", now)
	if active {
		t.Error("unrelated wallet must not be covered")
	}
}

func TestDisqualificationStore_UpsertExtends(t *testing.T) {
	store := NewDisqualificationStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	w := &domain.DisqualificationWindow{
		Wallet:    "wallet-1",
		Reason:    domain.DisqualReasonWinner,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.Upsert(ctx, w); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	w.ExpiresAt = now.Add(72 * time.Hour)
	if err := store.Upsert(ctx, w); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	active, _ := store.ActiveForWallet(ctx, "wallet-1", now.Add(24*time.Hour))
	if !active {
		t.Error("extended window must still be active")
	}
}

func TestDisqualificationStore_SweepExpired(t *testing.T) {
	store := NewDisqualificationStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	windows := []*domain.DisqualificationWindow{
		{Wallet: "wallet-1", Reason: domain.DisqualReasonWinner, ExpiresAt: now.Add(-time.Hour)},
		{Wallet: "wallet-2", Reason: domain.DisqualReasonWashTransfer, ExpiresAt: now.Add(-time.Minute)},
		{Wallet: "wallet-3", Reason: domain.DisqualReasonWinner, ExpiresAt: now.Add(time.Hour)},
	}
	for _, w := range windows {
		if err := store.Upsert(ctx, w); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	removed, err := store.SweepExpired(ctx, now)
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	active, _ := store.ActiveForWallet(ctx, "wallet-3", now)
	if !active {
		t.Error("unexpired window must survive the sweep")
	}
}
