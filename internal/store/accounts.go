package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/rewear/internal/model"
)

// The account ledger is the only code that writes users.points. Debit and
// Credit know nothing about items or the transaction log; the exchange
// coordinator sequences them inside one transaction.

// GetBalance returns the user's current point balance.
func GetBalance(ctx context.Context, q Querier, userID int64) (int, error) {
	var points int
	err := q.QueryRowxContext(ctx,
		`SELECT points FROM users WHERE id = ? AND deleted_at IS NULL`, userID,
	).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, model.Errorf(model.KindNotFound, "user %d not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("getting balance: %w", err)
	}
	return points, nil
}

// Debit takes amount points from the user. The guard in the UPDATE makes the
// check and the write one statement, so a balance never goes below zero even
// if two debits race.
func Debit(ctx context.Context, q Querier, userID int64, amount int) error {
	if amount <= 0 {
		return model.Errorf(model.KindInvalidInput, "debit amount must be positive, got %d", amount)
	}

	res, err := q.ExecContext(ctx,
		`UPDATE users SET points = points - ?
		 WHERE id = ? AND deleted_at IS NULL AND points >= ?`,
		amount, userID, amount,
	)
	if err != nil {
		return fmt.Errorf("debiting user %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	// Nothing updated: either the user is gone or the balance is short.
	balance, err := GetBalance(ctx, q, userID)
	if err != nil {
		return err
	}
	return model.Errorf(model.KindInsufficientPoints,
		"balance %d is below the required %d points", balance, amount)
}

// Credit adds amount points to the user.
func Credit(ctx context.Context, q Querier, userID int64, amount int) error {
	if amount <= 0 {
		return model.Errorf(model.KindInvalidInput, "credit amount must be positive, got %d", amount)
	}

	res, err := q.ExecContext(ctx,
		`UPDATE users SET points = points + ? WHERE id = ? AND deleted_at IS NULL`,
		amount, userID,
	)
	if err != nil {
		return fmt.Errorf("crediting user %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Errorf(model.KindNotFound, "user %d not found", userID)
	}
	return nil
}
