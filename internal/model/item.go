package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ItemState is the lifecycle position of a listing.
type ItemState string

// Item states. Swapped and redeemed are terminal.
const (
	ItemStatePending   ItemState = "pending"
	ItemStateAvailable ItemState = "available"
	ItemStateSwapped   ItemState = "swapped"
	ItemStateRedeemed  ItemState = "redeemed"
)

// DefaultPointCost is used when a listing is submitted without a cost.
const DefaultPointCost = 20

// Valid reports whether s is a known state.
func (s ItemState) Valid() bool {
	switch s {
	case ItemStatePending, ItemStateAvailable, ItemStateSwapped, ItemStateRedeemed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s ItemState) Terminal() bool {
	return s == ItemStateSwapped || s == ItemStateRedeemed
}

// CanTransition reports whether moving from s to next is allowed.
func (s ItemState) CanTransition(next ItemState) bool {
	switch s {
	case ItemStatePending:
		return next == ItemStateAvailable
	case ItemStateAvailable:
		return next == ItemStateSwapped || next == ItemStateRedeemed
	}
	return false
}

// Tags is a list of free-form labels stored as a JSON array.
type Tags []string

// ParseTags splits a comma separated list, dropping blanks and duplicates.
func ParseTags(s string) Tags {
	seen := make(map[string]bool)
	var tags Tags
	for _, part := range strings.Split(s, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scanning tags: unsupported type %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scanning tags: %w", err)
	}
	*t = out
	return nil
}

// Item is a garment listing.
type Item struct {
	ID          int64      `json:"id" db:"id"`
	OwnerID     int64      `json:"owner_id" db:"owner_id"`
	OwnerName   string     `json:"owner_name,omitempty" db:"owner_name"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	Size        string     `json:"size,omitempty" db:"size"`
	Condition   string     `json:"condition,omitempty" db:"condition"`
	Category    string     `json:"category,omitempty" db:"category"`
	Type        string     `json:"type,omitempty" db:"type"`
	Tags        Tags       `json:"tags" db:"tags"`
	PointCost   int        `json:"point_cost" db:"point_cost"`
	State       ItemState  `json:"state" db:"state"`
	Featured    bool       `json:"featured" db:"featured"`
	HasImage    bool       `json:"-" db:"has_image"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Approved reports whether an admin has let the listing through.
func (i *Item) Approved() bool {
	return i.State != ItemStatePending
}

// Status folds the lifecycle into available/swapped/redeemed.
func (i *Item) Status() string {
	if i.State.Terminal() {
		return string(i.State)
	}
	return string(ItemStateAvailable)
}

// Exchangeable reports whether a swap or redeem may target the item.
func (i *Item) Exchangeable() bool {
	return i.DeletedAt == nil && i.State == ItemStateAvailable
}

// ImageURL returns the reference clients use to fetch the image.
func (i *Item) ImageURL() string {
	if !i.HasImage {
		return ""
	}
	return "/api/items/" + strconv.FormatInt(i.ID, 10) + "/image"
}

// MarshalJSON adds the derived approval, status and image fields.
func (i Item) MarshalJSON() ([]byte, error) {
	type plain Item
	return json.Marshal(struct {
		plain
		Approved bool   `json:"approved"`
		Status   string `json:"status"`
		ImageURL string `json:"image_url,omitempty"`
	}{plain(i), i.Approved(), i.Status(), i.ImageURL()})
}

// ItemInput carries the descriptive attributes of a new listing.
type ItemInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Size        string `json:"size"`
	Condition   string `json:"condition"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Tags        Tags   `json:"tags"`
	PointCost   int    `json:"point_cost"`
}

// Normalize trims fields and applies the default cost.
func (in *ItemInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Size = strings.TrimSpace(in.Size)
	in.Condition = strings.TrimSpace(in.Condition)
	in.Category = strings.TrimSpace(in.Category)
	in.Type = strings.TrimSpace(in.Type)
	if in.PointCost == 0 {
		in.PointCost = DefaultPointCost
	}
	in.Tags = ParseTags(strings.Join(in.Tags, ","))
	if in.Tags == nil {
		in.Tags = Tags{}
	}
}

// Validate checks the attributes required for a listing.
func (in *ItemInput) Validate() error {
	if in.Title == "" {
		return Errorf(KindInvalidInput, "title required")
	}
	if in.PointCost <= 0 {
		return Errorf(KindInvalidInput, "point cost must be positive")
	}
	return nil
}

// Item audit actions.
const (
	ItemActionSubmitted = "submitted"
	ItemActionApproved  = "approved"
	ItemActionRejected  = "rejected"
	ItemActionDeleted   = "deleted"
	ItemActionFeatured  = "featured"
)

// ItemEvent records a moderation or ownership action on a listing.
type ItemEvent struct {
	ID        int64     `json:"id" db:"id"`
	ItemID    int64     `json:"item_id" db:"item_id"`
	ActorID   int64     `json:"actor_id" db:"actor_id"`
	ActorName string    `json:"actor_name,omitempty" db:"actor_name"`
	Action    string    `json:"action" db:"action"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
