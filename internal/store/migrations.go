package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the migrated end state, applied idempotently at startup
// inside one transaction. A failure here is a fatal configuration error.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS user_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		token TEXT NOT NULL UNIQUE,
		token_type TEXT NOT NULL,
		expires_at TIMESTAMP,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_tokens_token ON user_tokens(token)`,
	`CREATE TABLE IF NOT EXISTS organizations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		display_name TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS organization_members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		organization_id INTEGER NOT NULL REFERENCES organizations(id),
		role TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, organization_id)
	)`,
	`CREATE TABLE IF NOT EXISTS packages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		author_id INTEGER REFERENCES users(id),
		homepage TEXT,
		repository_url TEXT,
		license TEXT,
		keywords TEXT,
		organization_id INTEGER REFERENCES organizations(id),
		is_private BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS package_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		package_id INTEGER NOT NULL REFERENCES packages(id),
		version TEXT NOT NULL,
		description TEXT,
		main_file TEXT,
		scripts TEXT,
		dependencies TEXT,
		dev_dependencies TEXT,
		peer_dependencies TEXT,
		engines TEXT,
		shasum TEXT,
		readme TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(package_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS package_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		package_version_id INTEGER NOT NULL REFERENCES package_versions(id),
		filename TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		content_type TEXT,
		etag TEXT,
		upstream_url TEXT NOT NULL,
		file_path TEXT NOT NULL,
		quarantined BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_accessed TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		access_count INTEGER NOT NULL DEFAULT 0,
		UNIQUE(package_version_id, filename)
	)`,
	`CREATE TABLE IF NOT EXISTS package_owners (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		package_name TEXT NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id),
		permission_level TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(package_name, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_package_owners_name ON package_owners(package_name)`,
	`CREATE TABLE IF NOT EXISTS package_tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		package_name TEXT NOT NULL,
		tag_name TEXT NOT NULL,
		version TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(package_name, tag_name)
	)`,
	`CREATE TABLE IF NOT EXISTS metadata_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		package_name TEXT NOT NULL UNIQUE,
		size_bytes BIGINT NOT NULL,
		file_path TEXT NOT NULL,
		etag TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_accessed TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		access_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS cache_stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hit_count BIGINT NOT NULL DEFAULT 0,
		miss_count BIGINT NOT NULL DEFAULT 0
	)`,
}

// Migrate applies schema idempotently inside one transaction. Called once
// at startup; a failure is fatal (exit code 2).
func Migrate(db *sqlx.DB) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration %q: %w", stmt[:min(40, len(stmt))], err)
		}
	}
	var count int
	if err := tx.Get(&count, `SELECT COUNT(*) FROM cache_stats`); err != nil {
		return fmt.Errorf("check cache_stats: %w", err)
	}
	if count == 0 {
		if _, err := tx.Exec(`INSERT INTO cache_stats (hit_count, miss_count) VALUES (0, 0)`); err != nil {
			return fmt.Errorf("seed cache_stats: %w", err)
		}
	}
	return tx.Commit()
}
