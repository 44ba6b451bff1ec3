// package repositories provides the SQLite persistence layer: the durable
// refresh-token store and per-run scan history.
package repositories

import (
	"database/sql"
	"fmt"
)

// Migrate creates the schema if it does not exist. Safe to run on every
// startup.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tokens (
			provider TEXT PRIMARY KEY,
			refresh_token TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			playlist_id TEXT NOT NULL,
			strict INTEGER NOT NULL,
			tolerance_secs INTEGER NOT NULL,
			track_count INTEGER NOT NULL,
			group_count INTEGER NOT NULL,
			duplicate_count INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_playlist ON scans(playlist_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
