package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/rewear/internal/model"
)

// itemSelect reads items with the owner's name and whether an image is stored.
const itemSelect = `SELECT i.id, i.owner_id, COALESCE(u.name, '') AS owner_name,
       i.title, i.description, i.size, i.condition, i.category, i.type, i.tags,
       i.point_cost, i.state, i.featured,
       EXISTS (SELECT 1 FROM item_images im WHERE im.item_id = i.id) AS has_image,
       i.created_at, i.updated_at, i.deleted_at
FROM items i
LEFT JOIN users u ON u.id = i.owner_id`

// SubmitItem creates a pending listing owned by ownerID.
func SubmitItem(ctx context.Context, db *sqlx.DB, in model.ItemInput, ownerID int64) (*model.Item, error) {
	return SubmitItemWithImage(ctx, db, in, ownerID, nil, "")
}

// SubmitItemWithImage creates a pending listing and, when data is non-empty,
// stores its photo in the same transaction.
func SubmitItemWithImage(ctx context.Context, db *sqlx.DB, in model.ItemInput, ownerID int64, data []byte, mime string) (*model.Item, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var id int64
	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		owner, err := GetUser(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if owner == nil || owner.DeletedAt != nil {
			return model.Errorf(model.KindNotFound, "owner %d not found", ownerID)
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO items (owner_id, title, description, size, condition, category, type, tags, point_cost, state)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ownerID, in.Title, in.Description, in.Size, in.Condition, in.Category, in.Type, in.Tags,
			in.PointCost, model.ItemStatePending,
		)
		if err != nil {
			return fmt.Errorf("creating item: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("getting item id: %w", err)
		}
		if err := recordItemEvent(ctx, tx, id, ownerID, model.ItemActionSubmitted); err != nil {
			return err
		}
		if len(data) == 0 {
			return nil
		}
		return SetItemImage(ctx, tx, id, data, mime)
	})
	if err != nil {
		return nil, err
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted ones, or nil.
func GetItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	var item model.Item
	err := q.QueryRowxContext(ctx, itemSelect+` WHERE i.id = ?`, id).StructScan(&item)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return &item, nil
}

// GetForExchange loads a live item and its owner for an exchange unit. It
// must be called with the unit's transaction so it sees the committed state
// the unit will act on.
func GetForExchange(ctx context.Context, q Querier, id int64) (*model.Item, int64, error) {
	item, err := GetItem(ctx, q, id)
	if err != nil {
		return nil, 0, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, 0, model.Errorf(model.KindNotFound, "item %d not found", id)
	}
	return item, item.OwnerID, nil
}

// ApproveItem makes a pending listing available. Approving an item that is
// already past pending is a no-op.
func ApproveItem(ctx context.Context, db *sqlx.DB, id, actorID int64) error {
	return WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := requireAdmin(ctx, tx, actorID); err != nil {
			return err
		}
		item, err := liveItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item.State != model.ItemStatePending {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE items SET state = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND state = ?`,
			model.ItemStateAvailable, id, model.ItemStatePending,
		)
		if err != nil {
			return fmt.Errorf("approving item: %w", err)
		}
		return recordItemEvent(ctx, tx, id, actorID, model.ItemActionApproved)
	})
}

// RejectItem removes a listing on moderation. The row is soft-deleted so the
// points log keeps its references; the rejection is recorded as an event.
func RejectItem(ctx context.Context, db *sqlx.DB, id, actorID int64) error {
	return WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := requireAdmin(ctx, tx, actorID); err != nil {
			return err
		}
		if _, err := liveItem(ctx, tx, id); err != nil {
			return err
		}
		return softDeleteItem(ctx, tx, id, actorID, model.ItemActionRejected)
	})
}

// DeleteItem removes a listing at the request of its owner or an admin.
func DeleteItem(ctx context.Context, db *sqlx.DB, id, actorID int64) error {
	return WithTx(ctx, db, func(tx *sqlx.Tx) error {
		item, err := liveItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item.OwnerID != actorID {
			if _, err := requireAdmin(ctx, tx, actorID); err != nil {
				return model.Errorf(model.KindForbidden, "only the owner or an admin can delete item %d", id)
			}
		}
		return softDeleteItem(ctx, tx, id, actorID, model.ItemActionDeleted)
	})
}

// FeatureItem marks a listing as featured.
func FeatureItem(ctx context.Context, db *sqlx.DB, id, actorID int64) error {
	return WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := requireAdmin(ctx, tx, actorID); err != nil {
			return err
		}
		item, err := liveItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item.Featured {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET featured = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id,
		); err != nil {
			return fmt.Errorf("featuring item: %w", err)
		}
		return recordItemEvent(ctx, tx, id, actorID, model.ItemActionFeatured)
	})
}

// MarkSwapped moves an available item to swapped.
func MarkSwapped(ctx context.Context, q Querier, id int64) error {
	return markFromAvailable(ctx, q, id, model.ItemStateSwapped)
}

// MarkRedeemed moves an available item to redeemed.
func MarkRedeemed(ctx context.Context, q Querier, id int64) error {
	return markFromAvailable(ctx, q, id, model.ItemStateRedeemed)
}

// markFromAvailable is a compare-and-swap on the state column: the row only
// changes if it is still available, so at most one caller can win.
func markFromAvailable(ctx context.Context, q Querier, id int64, to model.ItemState) error {
	res, err := q.ExecContext(ctx,
		`UPDATE items SET state = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND state = ?`,
		to, id, model.ItemStateAvailable,
	)
	if err != nil {
		return fmt.Errorf("marking item %d %s: %w", id, to, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	item, err := liveItem(ctx, q, id)
	if err != nil {
		return err
	}
	return model.Errorf(model.KindInvalidState, "item %d is %s, cannot become %s", id, item.State, to)
}

// ListPendingItems returns listings waiting for moderation, oldest first.
func ListPendingItems(ctx context.Context, q Querier) ([]model.Item, error) {
	var items []model.Item
	err := sqlx.SelectContext(ctx, q, &items,
		itemSelect+` WHERE i.deleted_at IS NULL AND i.state = ? ORDER BY i.created_at, i.id`,
		model.ItemStatePending,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending items: %w", err)
	}
	return items, nil
}

// ListItemsByOwner returns every live listing of a user, newest first.
func ListItemsByOwner(ctx context.Context, q Querier, ownerID int64) ([]model.Item, error) {
	var items []model.Item
	err := sqlx.SelectContext(ctx, q, &items,
		itemSelect+` WHERE i.deleted_at IS NULL AND i.owner_id = ? ORDER BY i.created_at DESC, i.id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing owner items: %w", err)
	}
	return items, nil
}

// ListCompletedByOwner returns a user's listings that were swapped or redeemed.
func ListCompletedByOwner(ctx context.Context, q Querier, ownerID int64) ([]model.Item, error) {
	var items []model.Item
	err := sqlx.SelectContext(ctx, q, &items,
		itemSelect+` WHERE i.owner_id = ? AND i.state IN (?, ?) ORDER BY i.updated_at DESC, i.id DESC`,
		ownerID, model.ItemStateSwapped, model.ItemStateRedeemed,
	)
	if err != nil {
		return nil, fmt.Errorf("listing completed items: %w", err)
	}
	return items, nil
}

// ItemEvents returns the audit trail of a listing, oldest first.
func ItemEvents(ctx context.Context, q Querier, itemID int64) ([]model.ItemEvent, error) {
	var events []model.ItemEvent
	err := sqlx.SelectContext(ctx, q, &events,
		`SELECT e.id, e.item_id, e.actor_id, COALESCE(u.name, '') AS actor_name, e.action, e.created_at
		 FROM item_events e
		 LEFT JOIN users u ON u.id = e.actor_id
		 WHERE e.item_id = ?
		 ORDER BY e.id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item events: %w", err)
	}
	return events, nil
}

func liveItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	item, err := GetItem(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, model.Errorf(model.KindNotFound, "item %d not found", id)
	}
	return item, nil
}

func softDeleteItem(ctx context.Context, q Querier, id, actorID int64, action string) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`, id,
	); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM item_images WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("deleting item image: %w", err)
	}
	return recordItemEvent(ctx, q, id, actorID, action)
}

func recordItemEvent(ctx context.Context, q Querier, itemID, actorID int64, action string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO item_events (item_id, actor_id, action) VALUES (?, ?, ?)`,
		itemID, actorID, action,
	)
	if err != nil {
		return fmt.Errorf("recording item event: %w", err)
	}
	return nil
}
