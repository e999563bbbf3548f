package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SetItemImage stores the image bytes for a live item, replacing any previous one.
func SetItemImage(ctx context.Context, q Querier, itemID int64, data []byte, mime string) error {
	if _, err := liveItem(ctx, q, itemID); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO item_images (item_id, data, mime) VALUES (?, ?, ?)
		 ON CONFLICT (item_id) DO UPDATE SET data = excluded.data, mime = excluded.mime`,
		itemID, data, mime,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type, or nil data if none.
func GetItemImage(ctx context.Context, q Querier, itemID int64) ([]byte, string, error) {
	var image []byte
	var mime string
	err := q.QueryRowxContext(ctx,
		`SELECT data, mime FROM item_images WHERE item_id = ?`, itemID,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime, nil
}
