package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/rewear/internal/db"
	"github.com/erazemk/rewear/internal/model"
)

func TestRecordTransaction(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	u := mustUser(t, database, "u", model.RoleUser, 0)
	item := mustSubmit(t, database, u, model.ItemInput{Title: "Skirt"})

	id, err := RecordTransaction(ctx, database, u.ID, item.ID, model.TxSwapReceived, 20)
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}

	got, err := GetTransaction(ctx, database, id)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Type != model.TxSwapReceived || got.Points != 20 || got.ItemTitle != "Skirt" {
		t.Errorf("unexpected entry %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	missing, err := GetTransaction(ctx, database, id+1)
	if err != nil || missing != nil {
		t.Errorf("expected nil for missing entry, got %+v, %v", missing, err)
	}
}

func TestRecordTransactionValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	u := mustUser(t, database, "u", model.RoleUser, 0)
	item := mustSubmit(t, database, u, model.ItemInput{Title: "Skirt"})

	tests := []struct {
		name   string
		typ    model.TransactionType
		points int
		want   error
	}{
		{"unknown type", "gift", 5, model.ErrInvalidInput},
		{"zero", model.TxSwapReceived, 0, model.ErrInvalidInput},
		{"negative credit", model.TxRedeemEarned, -5, model.ErrInvalidInput},
		{"positive debit", model.TxRedeemSpent, 5, model.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecordTransaction(ctx, database, u.ID, item.ID, tt.typ, tt.points)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := RecordTransaction(ctx, database, 999, item.ID, model.TxSwapReceived, 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found for unknown user, got %v", err)
	}
	if _, err := RecordTransaction(ctx, database, u.ID, 999, model.TxSwapReceived, 1); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found for unknown item, got %v", err)
	}
}

func TestTransactionHistoryOrderAndPaging(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	u := mustUser(t, database, "u", model.RoleUser, 0)
	other := mustUser(t, database, "other", model.RoleUser, 0)
	item := mustSubmit(t, database, u, model.ItemInput{Title: "Skirt"})

	var ids []int64
	for i := 1; i <= 3; i++ {
		id, err := RecordTransaction(ctx, database, u.ID, item.ID, model.TxSwapReceived, i)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	RecordTransaction(ctx, database, other.ID, item.ID, model.TxRedeemSpent, -1)

	all, err := TransactionHistory(ctx, database, u.ID, Page{})
	if err != nil {
		t.Fatalf("TransactionHistory: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Errorf("expected newest first, got %d..%d", all[0].ID, all[2].ID)
	}

	page, _ := TransactionHistory(ctx, database, u.ID, Page{Limit: 2, Offset: 1})
	if len(page) != 2 || page[0].ID != ids[1] {
		t.Errorf("unexpected page %+v", page)
	}

	empty, _ := TransactionHistory(ctx, database, 999, Page{})
	if len(empty) != 0 {
		t.Errorf("expected empty history, got %d", len(empty))
	}

	byItem, _ := ItemTransactions(ctx, database, item.ID)
	if len(byItem) != 4 {
		t.Errorf("expected 4 entries for item, got %d", len(byItem))
	}
}
