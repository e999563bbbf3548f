package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/rewear/internal/db"
	"github.com/erazemk/rewear/internal/model"
)

func TestDebitAndCredit(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	u := mustUser(t, database, "u", model.RoleUser, 50)

	if err := Debit(ctx, database, u.ID, 20); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if err := Credit(ctx, database, u.ID, 5); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	balance, err := GetBalance(ctx, database, u.ID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 35 {
		t.Errorf("expected 35, got %d", balance)
	}
}

func TestDebitInsufficient(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	u := mustUser(t, database, "u", model.RoleUser, 10)

	err := Debit(ctx, database, u.ID, 11)
	if !errors.Is(err, model.ErrInsufficientPoints) {
		t.Fatalf("expected insufficient points, got %v", err)
	}
	if balance, _ := GetBalance(ctx, database, u.ID); balance != 10 {
		t.Errorf("balance changed to %d", balance)
	}

	// Spending the whole balance is fine.
	if err := Debit(ctx, database, u.ID, 10); err != nil {
		t.Fatalf("Debit to zero: %v", err)
	}
}

func TestLedgerRejectsBadAmounts(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	u := mustUser(t, database, "u", model.RoleUser, 10)

	for _, amount := range []int{0, -5} {
		if err := Debit(ctx, database, u.ID, amount); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("Debit(%d): expected invalid input, got %v", amount, err)
		}
		if err := Credit(ctx, database, u.ID, amount); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("Credit(%d): expected invalid input, got %v", amount, err)
		}
	}
}

func TestLedgerUnknownUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := GetBalance(ctx, database, 42); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("GetBalance: expected not found, got %v", err)
	}
	if err := Debit(ctx, database, 42, 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Debit: expected not found, got %v", err)
	}
	if err := Credit(ctx, database, 42, 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Credit: expected not found, got %v", err)
	}

	// Deleted accounts cannot receive points either.
	u := mustUser(t, database, "gone", model.RoleUser, 10)
	DeleteUser(ctx, database, u.ID)
	if err := Credit(ctx, database, u.ID, 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Credit to deleted user: expected not found, got %v", err)
	}
}
