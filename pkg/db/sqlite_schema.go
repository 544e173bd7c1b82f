package db

import (
	"context"
	"fmt"
)

// sqliteSchema mirrors pkg/migrate/migrations for the sqlite dialect used by
// CONDO_USE_SQLITE and tests. Goose migrations stay Postgres-only.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		number INTEGER NOT NULL,
		section TEXT NOT NULL,
		reference INTEGER NOT NULL DEFAULT 0,
		sign_up_code TEXT,
		owner_code TEXT,
		deleted BOOLEAN NOT NULL DEFAULT 0,
		deleted_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_units_number_section_active ON units (number, section) WHERE deleted = 0`,
	`CREATE INDEX IF NOT EXISTS idx_units_sign_up_code ON units (sign_up_code)`,
	`CREATE INDEX IF NOT EXISTS idx_units_owner_code ON units (owner_code)`,
	`CREATE TABLE IF NOT EXISTS unit_memberships (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL REFERENCES units(id),
		user_id TEXT NOT NULL REFERENCES users(id),
		is_owner BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_unit_memberships_unit_user ON unit_memberships (unit_id, user_id)`,
	`CREATE TABLE IF NOT EXISTS maintenance_records (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL REFERENCES units(id),
		concept TEXT NOT NULL,
		amount NUMERIC NOT NULL,
		due_date DATETIME,
		paid_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS water_readings (
		id TEXT PRIMARY KEY,
		unit_id TEXT NOT NULL REFERENCES units(id),
		previously_measured NUMERIC NOT NULL,
		currently_measured NUMERIC NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// EnsureSQLiteSchema creates the sqlite tables and indexes when missing.
func (c *Client) EnsureSQLiteSchema(ctx context.Context) error {
	if c.Dialect() != "sqlite" {
		return fmt.Errorf("sqlite schema requested on %s connection", c.Dialect())
	}
	for _, stmt := range sqliteSchema {
		if err := c.Exec(ctx, stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
