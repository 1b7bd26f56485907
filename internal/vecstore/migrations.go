package vecstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Collections table
CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    dimension INTEGER NOT NULL,
    distance TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Points table. The payload column holds the full JSON document; the
-- filterable fields are duplicated into columns so predicates stay in SQL.
CREATE TABLE IF NOT EXISTS points (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    vector BLOB NOT NULL,
    payload TEXT NOT NULL,
    type TEXT NOT NULL,
    chunk_type TEXT NOT NULL DEFAULT '',
    file_path TEXT NOT NULL DEFAULT '',
    entity_name TEXT NOT NULL DEFAULT '',
    entity_type TEXT NOT NULL DEFAULT '',
    relation_type TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (collection, id),
    FOREIGN KEY (collection) REFERENCES collections(name) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_points_file ON points(collection, file_path);
CREATE INDEX IF NOT EXISTS idx_points_type ON points(collection, type);
CREATE INDEX IF NOT EXISTS idx_points_entity ON points(collection, entity_name);
CREATE INDEX IF NOT EXISTS idx_points_relation ON points(collection, relation_type);
`

const migrationV1Down = `
DROP TABLE IF EXISTS points;
DROP TABLE IF EXISTS collections;
DROP TABLE IF EXISTS schema_version;
`

// installedSchemaVersion reads the newest version recorded in
// schema_version. A missing or empty table means a fresh database,
// reported as 0.0.0 so every registered migration compares as pending.
func installedSchemaVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	var table string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&table)
	if err == sql.ErrNoRows {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to probe schema_version table: %w", err)
	}

	var installed string
	err = db.QueryRowContext(ctx,
		"SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&installed)
	if err == sql.ErrNoRows || installed == "" {
		return semver.MustParse("0.0.0"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read installed schema version: %w", err)
	}
	v, err := semver.NewVersion(installed)
	if err != nil {
		return nil, fmt.Errorf("schema_version holds %q: %w", installed, err)
	}
	return v, nil
}

// ApplyMigrations brings the database up to the newest schema. A step is
// pending only when its version is strictly greater than the installed
// one, so reopening an up-to-date store re-runs no DDL. Each applied
// step records its version row before the next step starts; a failure
// mid-sequence leaves the versions already applied correctly recorded.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	installed, err := installedSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range AllMigrations {
		target, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", m.Version, err)
		}
		if !installed.LessThan(target) {
			continue
		}

		if _, err := db.ExecContext(ctx, m.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
		}
		installed = target
	}

	return nil
}

// RollbackMigration undoes the most recently recorded migration and
// deletes its version row, which leaves the previous row as the
// installed version for the next apply.
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	var installed string
	err := db.QueryRowContext(ctx,
		"SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&installed)
	if err != nil {
		return fmt.Errorf("no migrations to roll back: %w", err)
	}

	var target *Migration
	for i := range AllMigrations {
		if AllMigrations[i].Version == installed {
			target = &AllMigrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no migration registered for version %s", installed)
	}

	if _, err := db.ExecContext(ctx, target.Down); err != nil {
		return fmt.Errorf("failed to roll back migration %s: %w", installed, err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", installed); err != nil {
		return fmt.Errorf("failed to drop schema_version row %s: %w", installed, err)
	}

	return nil
}
