package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/rewear/internal/model"
)

// The transaction log is append only: there is no update or delete here, and
// triggers in the schema reject both.

// Page bounds a history read. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// RecordTransaction appends one entry for userID and itemID. Both must exist
// when the entry is written; the existence check and the insert are a single
// statement.
func RecordTransaction(ctx context.Context, q Querier, userID, itemID int64, typ model.TransactionType, points int) (int64, error) {
	if !typ.Valid() {
		return 0, model.Errorf(model.KindInvalidInput, "unknown transaction type %q", typ)
	}
	if points == 0 {
		return 0, model.Errorf(model.KindInvalidInput, "transaction points must be non-zero")
	}
	if typ.Debit() != (points < 0) {
		return 0, model.Errorf(model.KindInvalidInput, "%s entries cannot carry %d points", typ, points)
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO transactions (user_id, item_id, type, points)
		 SELECT ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM users WHERE id = ?)
		   AND EXISTS (SELECT 1 FROM items WHERE id = ?)`,
		userID, itemID, typ, points, userID, itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("recording transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, model.Errorf(model.KindNotFound, "user %d or item %d does not exist", userID, itemID)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting transaction id: %w", err)
	}
	return id, nil
}

// GetTransaction returns a single entry, or nil.
func GetTransaction(ctx context.Context, q Querier, id int64) (*model.Transaction, error) {
	var txs []model.Transaction
	err := sqlx.SelectContext(ctx, q, &txs, transactionSelect+` WHERE t.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

// TransactionHistory returns a user's entries, newest first.
func TransactionHistory(ctx context.Context, q Querier, userID int64, page Page) ([]model.Transaction, error) {
	query := transactionSelect + ` WHERE t.user_id = ? ORDER BY t.created_at DESC, t.id DESC`
	args := []any{userID}
	if page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}

	var txs []model.Transaction
	if err := sqlx.SelectContext(ctx, q, &txs, query, args...); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txs, nil
}

// ItemTransactions returns every entry that references an item, oldest first.
func ItemTransactions(ctx context.Context, q Querier, itemID int64) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := sqlx.SelectContext(ctx, q, &txs,
		transactionSelect+` WHERE t.item_id = ? ORDER BY t.id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing item transactions: %w", err)
	}
	return txs, nil
}

const transactionSelect = `SELECT t.id, t.user_id, t.item_id, t.type, t.points, t.created_at,
       COALESCE(i.title, '') AS item_title
FROM transactions t
LEFT JOIN items i ON i.id = t.item_id`
