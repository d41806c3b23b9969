package ranking

import (
	"testing"

	"github.com/shopspring/decimal"

	"lossmine/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func holder(wallet, drawdown, loss string, eligible bool) domain.RankedHolder {
	return domain.RankedHolder{
		Wallet:      wallet,
		DrawdownPct: dec(drawdown),
		LossUsd:     dec(loss),
		Eligible:    eligible,
	}
}

func TestRank_OrderAndTieBreak(t *testing.T) {
	evaluated := []domain.RankedHolder{
		holder("w-a", "-50", "100", true),
		holder("w-b", "-66.67", "200", true),
		holder("w-c", "-50", "150", true),
		holder("w-d", "-33.33", "50", true),
	}

	ranked := Rank(evaluated)

	wantOrder := []string{"w-b", "w-c", "w-a", "w-d"}
	if len(ranked) != len(wantOrder) {
		t.Fatalf("expected %d ranked holders, got %d", len(wantOrder), len(ranked))
	}
	for i, want := range wantOrder {
		if ranked[i].Wallet != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ranked[i].Wallet)
		}
		if ranked[i].Rank != i+1 {
			t.Errorf("position %d: expected dense rank %d, got %d", i, i+1, ranked[i].Rank)
		}
	}
}

func TestRank_ExactTieFallsBackToWallet(t *testing.T) {
	evaluated := []domain.RankedHolder{
		holder("w-z", "-40", "80", true),
		holder("w-a", "-40", "80", true),
	}

	ranked := Rank(evaluated)
	if ranked[0].Wallet != "w-a" || ranked[1].Wallet != "w-z" {
		t.Errorf("exact ties must order by wallet ascending, got %s then %s",
			ranked[0].Wallet, ranked[1].Wallet)
	}
}

func TestRank_IneligibleNeverRanked(t *testing.T) {
	evaluated := []domain.RankedHolder{
		holder("w-deep", "-99", "100000", false),
		holder("w-mild", "-5", "1", true),
	}

	ranked := Rank(evaluated)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 ranked holder, got %d", len(ranked))
	}
	if ranked[0].Wallet != "w-mild" || ranked[0].Rank != 1 {
		t.Errorf("ineligible holder must be excluded regardless of loss magnitude")
	}
}

func TestRank_EmptyAndAllIneligible(t *testing.T) {
	if got := Rank(nil); len(got) != 0 {
		t.Errorf("expected empty ranking for empty input")
	}

	evaluated := []domain.RankedHolder{holder("w-a", "-50", "10", false)}
	if got := Rank(evaluated); len(got) != 0 {
		t.Errorf("expected empty ranking when nobody is eligible")
	}
}

func TestRank_InputNotMutated(t *testing.T) {
	evaluated := []domain.RankedHolder{
		holder("w-a", "-10", "5", true),
		holder("w-b", "-20", "5", true),
	}

	Rank(evaluated)
	if evaluated[0].Wallet != "w-a" || evaluated[0].Rank != 0 {
		t.Errorf("input slice must stay untouched")
	}
}

func TestTop_Bounds(t *testing.T) {
	ranked := Rank([]domain.RankedHolder{
		holder("w-a", "-30", "10", true),
		holder("w-b", "-20", "10", true),
		holder("w-c", "-10", "10", true),
	})

	if got := Top(ranked, 2); len(got) != 2 || got[0].Wallet != "w-a" {
		t.Errorf("expected first two ranked holders")
	}
	if got := Top(ranked, 10); len(got) != 3 {
		t.Errorf("bound larger than slice must return everything")
	}
}
