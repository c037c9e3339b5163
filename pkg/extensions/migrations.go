package extensions

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all extension schema migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create extensions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS extensions (
					id BIGSERIAL PRIMARY KEY,
					uuid VARCHAR(64) NOT NULL UNIQUE,
					slug VARCHAR(255) NOT NULL,
					name VARCHAR(255) NOT NULL,
					author VARCHAR(255) NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					icon_hash VARCHAR(64) NOT NULL DEFAULT '',
					status VARCHAR(32) NOT NULL DEFAULT 'pending',
					disabled BOOLEAN NOT NULL DEFAULT FALSE,
					deleted BOOLEAN NOT NULL DEFAULT FALSE,
					last_updated TIMESTAMPTZ,
					author_ids BIGINT[] NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX idx_extensions_slug_live ON extensions (lower(slug)) WHERE NOT deleted;
				CREATE UNIQUE INDEX idx_extensions_name_live ON extensions (lower(name)) WHERE NOT deleted;
				CREATE INDEX idx_extensions_status ON extensions (status);
			`,
		},
		{
			Version:     2,
			Description: "Create versions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS versions (
					id BIGSERIAL PRIMARY KEY,
					extension_id BIGINT NOT NULL REFERENCES extensions(id) ON DELETE CASCADE,
					version VARCHAR(255) NOT NULL,
					status VARCHAR(32) NOT NULL DEFAULT 'pending',
					size BIGINT NOT NULL DEFAULT 0,
					manifest JSONB,
					deleted BOOLEAN NOT NULL DEFAULT FALSE,
					blobs_swept BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX idx_versions_ext_version_live ON versions (extension_id, version) WHERE NOT deleted;
				CREATE INDEX idx_versions_extension_id ON versions (extension_id);
				CREATE INDEX idx_versions_status ON versions (status);
				CREATE INDEX idx_versions_sweepable ON versions (id) WHERE deleted AND NOT blobs_swept;
			`,
		},
		{
			Version:     3,
			Description: "Create uploads table",
			SQL: `
				CREATE TABLE IF NOT EXISTS uploads (
					id VARCHAR(64) PRIMARY KEY,
					owner_id BIGINT NOT NULL DEFAULT 0,
					filename VARCHAR(255) NOT NULL,
					hash VARCHAR(80) NOT NULL,
					blob_path VARCHAR(512) NOT NULL,
					valid BOOLEAN NOT NULL DEFAULT FALSE,
					manifest JSONB,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
	}
}

// RunMigrations applies pending migrations in order. Each migration runs in
// its own transaction and is recorded in extension_migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS extension_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM extension_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO extension_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}
	return nil
}
