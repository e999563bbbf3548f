package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/rewear/internal/db"
	"github.com/erazemk/rewear/internal/model"
)

func TestSubmitAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser, 0)

	item, err := SubmitItem(ctx, database, model.ItemInput{
		Title:    "  Wool coat ",
		Category: "outerwear",
		Size:     "M",
		Tags:     model.ParseTags("Winter, wool"),
	}, owner.ID)
	if err != nil {
		t.Fatalf("SubmitItem: %v", err)
	}
	if item.Title != "Wool coat" {
		t.Errorf("expected trimmed title, got %q", item.Title)
	}
	if item.State != model.ItemStatePending {
		t.Errorf("expected pending, got %q", item.State)
	}
	if item.Approved() {
		t.Error("new item must not be approved")
	}
	if item.PointCost != model.DefaultPointCost {
		t.Errorf("expected default cost %d, got %d", model.DefaultPointCost, item.PointCost)
	}
	if item.OwnerName != "owner" {
		t.Errorf("expected owner name, got %q", item.OwnerName)
	}
	if len(item.Tags) != 2 || item.Tags[0] != "winter" {
		t.Errorf("unexpected tags %v", item.Tags)
	}

	events, _ := ItemEvents(ctx, database, item.ID)
	if len(events) != 1 || events[0].Action != model.ItemActionSubmitted {
		t.Errorf("expected one submitted event, got %+v", events)
	}
}

func TestSubmitItemValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser, 0)

	if _, err := SubmitItem(ctx, database, model.ItemInput{Title: " "}, owner.ID); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected invalid input for blank title, got %v", err)
	}
	if _, err := SubmitItem(ctx, database, model.ItemInput{Title: "x", PointCost: -5}, owner.ID); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected invalid input for negative cost, got %v", err)
	}
	if _, err := SubmitItem(ctx, database, model.ItemInput{Title: "x"}, 999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found for unknown owner, got %v", err)
	}
}

func TestApproveItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin, 0)
	owner := mustUser(t, database, "owner", model.RoleUser, 0)
	item := mustSubmit(t, database, owner, model.ItemInput{Title: "Scarf"})

	if err := ApproveItem(ctx, database, item.ID, owner.ID); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}

	mustApprove(t, database, item, admin)
	got, _ := GetItem(ctx, database, item.ID)
	if got.State != model.ItemStateAvailable || got.Status() != "available" {
		t.Errorf("expected available, got %q", got.State)
	}

	// A second approval changes nothing and records nothing.
	mustApprove(t, database, item, admin)
	events, _ := ItemEvents(ctx, database, item.ID)
	if len(events) != 2 {
		t.Errorf("expected submitted and approved events, got %d", len(events))
	}
	if events[1].ActorName != "admin" {
		t.Errorf("expected actor name 'admin', got %q", events[1].ActorName)
	}
}

func TestRejectItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin, 0)
	owner := mustUser(t, database, "owner", model.RoleUser, 0)
	item := mustSubmit(t, database, owner, model.ItemInput{Title: "Hat"})

	if err := RejectItem(ctx, database, item.ID, admin.ID); err != nil {
		t.Fatalf("RejectItem: %v", err)
	}

	pending, _ := ListPendingItems(ctx, database)
	if len(pending) != 0 {
		t.Errorf("expected empty pending queue, got %d", len(pending))
	}
	if err := ApproveItem(ctx, database, item.ID, admin.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected rejected item to be gone, got %v", err)
	}
}

func TestDeleteItemPermissions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin, 0)
	owner := mustUser(t, database, "owner", model.RoleUser, 0)
	other := mustUser(t, database, "other", model.RoleUser, 0)

	mine := mustSubmit(t, database, owner, model.ItemInput{Title: "Mine"})
	if err := DeleteItem(ctx, database, mine.ID, other.ID); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if err := DeleteItem(ctx, database, mine.ID, owner.ID); err != nil {
		t.Errorf("owner delete: %v", err)
	}

	theirs := mustSubmit(t, database, owner, model.ItemInput{Title: "Theirs"})
	if err := DeleteItem(ctx, database, theirs.ID, admin.ID); err != nil {
		t.Errorf("admin delete: %v", err)
	}
	if err := DeleteItem(ctx, database, theirs.ID, admin.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestSoftDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser, 0)

	item := mustSubmit(t, database, owner, model.ItemInput{Title: "Delete Me"})
	DeleteItem(ctx, database, item.ID, owner.ID)

	items, _ := ListItemsByOwner(ctx, database, owner.ID)
	if len(items) != 0 {
		t.Errorf("expected 0 items after soft delete, got %d", len(items))
	}

	// Should still be fetchable by ID (for history).
	got, _ := GetItem(ctx, database, item.ID)
	if got == nil || got.DeletedAt == nil {
		t.Error("expected soft-deleted item to still be fetchable by ID")
	}
}

func TestFeatureItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin, 0)
	owner := mustUser(t, database, "owner", model.RoleUser, 0)
	item := mustSubmit(t, database, owner, model.ItemInput{Title: "Boots"})

	if err := FeatureItem(ctx, database, item.ID, owner.ID); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if err := FeatureItem(ctx, database, item.ID, admin.ID); err != nil {
		t.Fatalf("FeatureItem: %v", err)
	}
	got, _ := GetItem(ctx, database, item.ID)
	if !got.Featured {
		t.Error("expected featured")
	}
}

func TestMarkFromAvailable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	admin := mustUser(t, database, "admin", model.RoleAdmin, 0)
	owner := mustUser(t, database, "owner", model.RoleUser, 0)
	item := mustSubmit(t, database, owner, model.ItemInput{Title: "Shirt"})

	if err := MarkSwapped(ctx, database, item.ID); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("expected invalid state for pending item, got %v", err)
	}

	mustApprove(t, database, item, admin)
	if err := MarkSwapped(ctx, database, item.ID); err != nil {
		t.Fatalf("MarkSwapped: %v", err)
	}
	if err := MarkRedeemed(ctx, database, item.ID); !errors.Is(err, model.ErrInvalidState) {
		t.Errorf("expected invalid state after swap, got %v", err)
	}
	if err := MarkRedeemed(ctx, database, 999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	done, _ := ListCompletedByOwner(ctx, database, owner.ID)
	if len(done) != 1 || done[0].Status() != "swapped" {
		t.Errorf("expected one swapped item, got %+v", done)
	}
}

func TestItemImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser, 0)

	item := mustSubmit(t, database, owner, model.ItemInput{Title: "Photo Item"})
	if item.HasImage {
		t.Error("expected no image yet")
	}
	SetItemImage(ctx, database, item.ID, []byte("fake image data"), "image/png")

	data, mime, err := GetItemImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemImage: %v", err)
	}
	if string(data) != "fake image data" {
		t.Errorf("expected image data, got %q", string(data))
	}
	if mime != "image/png" {
		t.Errorf("expected mime 'image/png', got %q", mime)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if !got.HasImage {
		t.Error("expected HasImage after upload")
	}

	// Deleting the listing drops the image.
	DeleteItem(ctx, database, item.ID, owner.ID)
	data, _, _ = GetItemImage(ctx, database, item.ID)
	if data != nil {
		t.Error("expected image removed with listing")
	}
	if err := SetItemImage(ctx, database, item.ID, []byte("x"), "image/png"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found for deleted item, got %v", err)
	}
}

func TestSubmitItemWithImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser, 0)

	item, err := SubmitItemWithImage(ctx, database, model.ItemInput{Title: "Denim jacket"}, owner.ID, []byte("jpeg bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("SubmitItemWithImage: %v", err)
	}
	if !item.HasImage {
		t.Error("expected listing to carry its image")
	}
	data, mime, _ := GetItemImage(ctx, database, item.ID)
	if string(data) != "jpeg bytes" || mime != "image/jpeg" {
		t.Errorf("unexpected image %q %q", data, mime)
	}
}

func TestSubmitItemWithImageRollsBack(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := mustUser(t, database, "owner", model.RoleUser, 0)

	if _, err := database.Exec(`CREATE TRIGGER item_images_full BEFORE INSERT ON item_images
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`); err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	_, err := SubmitItemWithImage(ctx, database, model.ItemInput{Title: "Denim jacket"}, owner.ID, []byte("jpeg bytes"), "image/jpeg")
	if err == nil {
		t.Fatal("expected image write to fail")
	}

	items, err := ListItemsByOwner(ctx, database, owner.ID)
	if err != nil {
		t.Fatalf("ListItemsByOwner: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no listing after failed image write, got %d", len(items))
	}
	events, _ := ItemEvents(ctx, database, 1)
	if len(events) != 0 {
		t.Errorf("expected no submitted event, got %+v", events)
	}
}
