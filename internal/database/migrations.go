package database

import (
	"database/sql"
	"fmt"
)

// schema is valid for both PostgreSQL and SQLite
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR(36) PRIMARY KEY,
		scenario VARCHAR(255) NOT NULL,
		attempt INTEGER NOT NULL,
		status VARCHAR(20) NOT NULL,
		error_kind VARCHAR(50) NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		teardown_error TEXT NOT NULL DEFAULT '',
		screenshot_path TEXT NOT NULL DEFAULT '',
		video_path TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
}

// RunMigrations creates the necessary tables in DB
func RunMigrations() error {
	if DB == nil {
		return fmt.Errorf("database connection not initialized")
	}
	return Migrate(DB)
}

// Migrate creates the necessary tables in db
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
