package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS characters (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		persona    TEXT NOT NULL DEFAULT '',
		memories   TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS conversations (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		character_id TEXT NOT NULL REFERENCES characters(id),
		created_at   TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		role            TEXT NOT NULL,
		type            TEXT NOT NULL DEFAULT 'normal',
		content         TEXT NOT NULL DEFAULT '',
		gap_hours       REAL NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_id, created_at, id)`,

	`CREATE TABLE IF NOT EXISTS user_settings (
		user_id                   TEXT PRIMARY KEY,
		display_name              TEXT NOT NULL DEFAULT 'User',
		compact_threshold_percent INTEGER NOT NULL DEFAULT 90,
		compact_target_percent    INTEGER NOT NULL DEFAULT 70,
		keep_uncompacted          INTEGER NOT NULL DEFAULT 30,
		context_window            INTEGER NOT NULL DEFAULT 32000,
		updated_at                TEXT NOT NULL
	)`,
}

// migrate creates or updates the database schema to the latest version.
// All DDL uses IF NOT EXISTS, making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("store: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("store: record schema version: %w", err)
	}

	return nil
}
