package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS expenses (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					amount TEXT NOT NULL,
					category TEXT NOT NULL,
					note TEXT,
					recorded_at TEXT NOT NULL,
					created_at TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS sessions (
					user_id TEXT PRIMARY KEY,
					state_json TEXT NOT NULL,
					last_updated TEXT NOT NULL
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Index expenses by category and recording time",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE INDEX IF NOT EXISTS idx_expenses_category ON expenses(category)`,
				`CREATE INDEX IF NOT EXISTS idx_expenses_recorded_at ON expenses(recorded_at)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Migrate runs all pending migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		s.logger.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
