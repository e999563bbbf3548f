package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    points        INTEGER NOT NULL DEFAULT 100 CHECK (points >= 0),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id          INTEGER PRIMARY KEY,
    owner_id    INTEGER NOT NULL REFERENCES users(id),
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    size        TEXT NOT NULL DEFAULT '',
    condition   TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL DEFAULT '',
    tags        TEXT NOT NULL DEFAULT '[]',
    point_cost  INTEGER NOT NULL DEFAULT 20 CHECK (point_cost > 0),
    state       TEXT NOT NULL DEFAULT 'pending' CHECK (state IN ('pending', 'available', 'swapped', 'redeemed')),
    featured    INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);
CREATE INDEX IF NOT EXISTS idx_items_state ON items(state) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS item_images (
    item_id INTEGER PRIMARY KEY REFERENCES items(id),
    data    BLOB NOT NULL,
    mime    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS item_events (
    id         INTEGER PRIMARY KEY,
    item_id    INTEGER NOT NULL REFERENCES items(id),
    actor_id   INTEGER NOT NULL REFERENCES users(id),
    action     TEXT NOT NULL CHECK (action IN ('submitted', 'approved', 'rejected', 'deleted', 'featured')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_item_events_item ON item_events(item_id);

CREATE TABLE IF NOT EXISTS transactions (
    id         INTEGER PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    item_id    INTEGER NOT NULL REFERENCES items(id),
    type       TEXT NOT NULL CHECK (type IN ('swap_sent', 'swap_received', 'redeem_spent', 'redeem_earned')),
    points     INTEGER NOT NULL CHECK (points <> 0),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_item ON transactions(item_id);

-- The log is append only.
CREATE TRIGGER IF NOT EXISTS transactions_no_update
    BEFORE UPDATE ON transactions
    BEGIN SELECT RAISE(ABORT, 'transactions are immutable'); END;

CREATE TRIGGER IF NOT EXISTS transactions_no_delete
    BEFORE DELETE ON transactions
    BEGIN SELECT RAISE(ABORT, 'transactions are immutable'); END;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
