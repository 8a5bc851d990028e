package store

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

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create candidates table",
			SQL: `
				CREATE TABLE IF NOT EXISTS candidates (
					id UUID PRIMARY KEY,
					name TEXT NOT NULL,
					linkedin_url TEXT NOT NULL,
					party TEXT NOT NULL DEFAULT 'Independent',
					team TEXT NOT NULL DEFAULT 'White Matrix Team',
					image_url TEXT NOT NULL DEFAULT '',
					vote_count INTEGER NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     2,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY,
					name TEXT NOT NULL,
					email TEXT NOT NULL UNIQUE,
					password_hash TEXT,
					provider TEXT NOT NULL CHECK (provider IN ('google', 'linkedin', 'local')),
					provider_id TEXT,
					avatar_url TEXT NOT NULL DEFAULT '',
					linkedin_url TEXT NOT NULL DEFAULT '',
					has_voted BOOLEAN NOT NULL DEFAULT FALSE,
					voted_at TIMESTAMPTZ,
					voted_for UUID REFERENCES candidates(id),
					reset_token_hash TEXT,
					reset_token_expires TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CHECK (has_voted = (voted_for IS NOT NULL))
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_provider_identity
					ON users(provider, provider_id) WHERE provider_id IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_users_voted_for ON users(voted_for);
				CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users(reset_token_hash)
					WHERE reset_token_hash IS NOT NULL;
			`,
		},
	}
}

// RunMigrations applies all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range GetMigrations() {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`,
			m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if exists {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
			m.Version, m.Description); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
