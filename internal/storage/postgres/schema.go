package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS players (
		nickname TEXT PRIMARY KEY,
		coins BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
		tap_value BIGINT NOT NULL DEFAULT 1 CHECK (tap_value >= 1),
		auto_per_sec BIGINT NOT NULL DEFAULT 0 CHECK (auto_per_sec >= 0),
		taps BIGINT NOT NULL DEFAULT 0 CHECK (taps >= 0),
		icon TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS players_taps_idx ON players (taps DESC)`,
	`CREATE TABLE IF NOT EXISTS shop_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price BIGINT NOT NULL CHECK (price >= 0),
		kind TEXT NOT NULL CHECK (kind IN ('tap', 'auto')),
		value BIGINT NOT NULL CHECK (value > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id BIGSERIAL PRIMARY KEY,
		nickname TEXT NOT NULL,
		icon TEXT,
		text TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bans (
		nickname TEXT PRIMARY KEY,
		reason TEXT NOT NULL
	)`,
}

// EnsureSchema creates the tables used by the store if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
