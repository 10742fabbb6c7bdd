package store

import (
	"database/sql"
	"fmt"
)

// migration is one schema step. Versions apply in order and are recorded in
// the migrations table so reopening a database is a no-op.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "create_runs", `
		CREATE TABLE runs (
			id          TEXT PRIMARY KEY,
			status      TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL,
			width       INTEGER NOT NULL DEFAULT 0,
			height      INTEGER NOT NULL DEFAULT 0,
			steps       INTEGER NOT NULL DEFAULT 0,
			time_step   REAL NOT NULL DEFAULT 0,
			stride      INTEGER NOT NULL DEFAULT 0,
			frame_count INTEGER NOT NULL DEFAULT 0,
			peak        REAL NOT NULL DEFAULT 0,
			sources     TEXT NOT NULL DEFAULT '[]',
			obstacles   TEXT NOT NULL DEFAULT '[]',
			config      TEXT NOT NULL DEFAULT '{}',
			backend     TEXT NOT NULL DEFAULT '',
			error       TEXT NOT NULL DEFAULT '',
			image       BLOB,
			trace       BLOB
		);
		CREATE INDEX idx_runs_created ON runs(created_at);`},
	{2, "create_frames", `
		CREATE TABLE frames (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx    INTEGER NOT NULL,
			step   INTEGER NOT NULL,
			data   BLOB NOT NULL,
			PRIMARY KEY (run_id, idx)
		);`},
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := s.db.Query("SELECT version FROM migrations")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		err := s.Transaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.sql); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", m.version, err)
			}
			if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.logger.Info("Applied migration", "version", m.version, "name", m.name)
	}
	return nil
}
