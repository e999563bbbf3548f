package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/rewear/internal/model"
)

const userColumns = `id, name, email, password_hash, role, points, created_at, deleted_at`

// ErrEmailTaken is returned when an active account already uses the address.
var ErrEmailTaken = errors.New("email already registered")

// CreateUser creates a new user with an opening point balance.
func CreateUser(ctx context.Context, q Querier, name, email, passwordHash, role string, points int) (*model.User, error) {
	if points < 0 {
		return nil, model.Errorf(model.KindInvalidInput, "opening balance cannot be negative")
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, points) VALUES (?, ?, ?, ?, ?)`,
		name, email, passwordHash, role, points,
	)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID, or nil if there is none.
func GetUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	var u model.User
	err := q.QueryRowxContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	).StructScan(&u)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail returns the active user with the given address, or nil.
func GetUserByEmail(ctx context.Context, q Querier, email string) (*model.User, error) {
	var u model.User
	err := q.QueryRowxContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, email,
	).StructScan(&u)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return &u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, q Querier) ([]model.User, error) {
	var users []model.User
	err := sqlx.SelectContext(ctx, q, &users,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// UpdateUserRole changes a user's role.
func UpdateUserRole(ctx context.Context, q Querier, id int64, role string) error {
	if !model.ValidRole(role) {
		return model.Errorf(model.KindInvalidInput, "invalid role %q", role)
	}
	res, err := q.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Errorf(model.KindNotFound, "user %d not found", id)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id int64, passwordHash string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user. Their listings and history stay readable.
func DeleteUser(ctx context.Context, q Querier, id int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

// requireAdmin loads actorID and fails with Forbidden unless it is an active admin.
func requireAdmin(ctx context.Context, q Querier, actorID int64) (*model.User, error) {
	actor, err := GetUser(ctx, q, actorID)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.DeletedAt != nil {
		return nil, model.Errorf(model.KindForbidden, "unknown actor %d", actorID)
	}
	if !actor.IsAdmin() {
		return nil, model.Errorf(model.KindForbidden, "admin role required")
	}
	return actor, nil
}
