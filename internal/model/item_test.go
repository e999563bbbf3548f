package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestItemStateTransitions(t *testing.T) {
	tests := []struct {
		from, to ItemState
		want     bool
	}{
		{ItemStatePending, ItemStateAvailable, true},
		{ItemStatePending, ItemStateSwapped, false},
		{ItemStatePending, ItemStateRedeemed, false},
		{ItemStateAvailable, ItemStateSwapped, true},
		{ItemStateAvailable, ItemStateRedeemed, true},
		{ItemStateAvailable, ItemStatePending, false},
		{ItemStateSwapped, ItemStateRedeemed, false},
		{ItemStateSwapped, ItemStateAvailable, false},
		{ItemStateRedeemed, ItemStateSwapped, false},
		{ItemStateRedeemed, ItemStateAvailable, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestItemDerivedFields(t *testing.T) {
	pending := Item{ID: 7, State: ItemStatePending}
	if pending.Approved() {
		t.Error("pending item reported approved")
	}
	if pending.Status() != "available" {
		t.Errorf("pending status = %q, want available", pending.Status())
	}
	if pending.Exchangeable() {
		t.Error("pending item must not be exchangeable")
	}

	redeemed := Item{ID: 8, State: ItemStateRedeemed, HasImage: true}
	if !redeemed.Approved() {
		t.Error("redeemed item must count as approved")
	}
	if redeemed.Status() != "redeemed" {
		t.Errorf("redeemed status = %q", redeemed.Status())
	}

	data, err := json.Marshal(redeemed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	json.Unmarshal(data, &out)
	if out["approved"] != true || out["status"] != "redeemed" {
		t.Errorf("derived fields missing: %s", data)
	}
	if out["image_url"] != "/api/items/8/image" {
		t.Errorf("image_url = %v", out["image_url"])
	}
	if _, ok := out["HasImage"]; ok {
		t.Error("has_image must not leak into JSON")
	}
}

func TestParseTags(t *testing.T) {
	tags := ParseTags(" Denim, summer ,,denim,VINTAGE ")
	want := []string{"denim", "summer", "vintage"}
	if len(tags) != len(want) {
		t.Fatalf("ParseTags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestTagsScanValue(t *testing.T) {
	v, err := Tags{"a", "b"}.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	var back Tags
	if err := back.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(back) != 2 || back[1] != "b" {
		t.Errorf("round trip = %v", back)
	}
	if err := back.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestItemInputDefaults(t *testing.T) {
	in := ItemInput{Title: "  Jacket "}
	in.Normalize()
	if in.Title != "Jacket" || in.PointCost != DefaultPointCost {
		t.Errorf("Normalize = %+v", in)
	}
	if err := in.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	bad := ItemInput{Title: "Coat", PointCost: -5}
	bad.Normalize()
	if err := bad.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	err := Errorf(KindInsufficientPoints, "have %d, need %d", 10, 20)
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Error("errors.Is should match by kind")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("different kinds must not match")
	}
	if err.Error() != "insufficient_points: have 10, need 20" {
		t.Errorf("Error() = %q", err.Error())
	}

	cause := errors.New("disk full")
	wrapped := Internal("recording transaction", cause)
	if !errors.Is(wrapped, cause) {
		t.Error("Internal must unwrap to its cause")
	}
	if KindOf(wrapped) != KindInternal {
		t.Errorf("KindOf = %s", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("untyped errors default to internal")
	}
}
