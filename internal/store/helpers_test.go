package store

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/rewear/internal/model"
)

func mustUser(t *testing.T, database *sqlx.DB, name, role string, points int) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, name, name+"@example.com", "hash", role, points)
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u
}

func mustSubmit(t *testing.T, database *sqlx.DB, owner *model.User, in model.ItemInput) *model.Item {
	t.Helper()
	item, err := SubmitItem(context.Background(), database, in, owner.ID)
	if err != nil {
		t.Fatalf("SubmitItem(%s): %v", in.Title, err)
	}
	return item
}

func mustApprove(t *testing.T, database *sqlx.DB, item *model.Item, admin *model.User) {
	t.Helper()
	if err := ApproveItem(context.Background(), database, item.ID, admin.ID); err != nil {
		t.Fatalf("ApproveItem(%d): %v", item.ID, err)
	}
}
