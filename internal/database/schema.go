package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	ItemsTable      = "inventory_items"
	UnitsTable      = "item_units"
	PropertiesTable = "item_properties"
)

// schemaLockKey serializes bootstrap across processes sharing a database.
// Concurrent CREATE TABLE IF NOT EXISTS can still collide on pg_type.
const schemaLockKey int64 = 0x696e76656e746f72

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS inventory_items (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		part_number VARCHAR(100) NOT NULL DEFAULT '',
		serial_number VARCHAR(100) NOT NULL DEFAULT '',
		quantity_per_unit INTEGER NOT NULL DEFAULT 1 CHECK (quantity_per_unit >= 0),
		unit_name VARCHAR(50) NOT NULL DEFAULT '',
		user_attributes JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		lamport_clock BIGINT NOT NULL DEFAULT 0,
		deleted BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS inventory_items_active_name_idx
		ON inventory_items (name) WHERE deleted = FALSE`,
	`CREATE TABLE IF NOT EXISTS item_units (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		inventory_item_id UUID NOT NULL REFERENCES inventory_items(id) ON DELETE CASCADE,
		recorded_in_inventory TIMESTAMPTZ NOT NULL,
		removed_from_inventory TIMESTAMPTZ,
		removed BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS item_units_active_item_idx
		ON item_units (inventory_item_id) WHERE removed = FALSE`,
	`CREATE TABLE IF NOT EXISTS item_properties (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		inventory_item_id UUID NOT NULL REFERENCES inventory_items(id) ON DELETE CASCADE,
		property_name VARCHAR(100) NOT NULL,
		property_value TEXT NOT NULL,
		deleted BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS item_properties_active_name_idx
		ON item_properties (inventory_item_id, property_name) WHERE deleted = FALSE`,
}

// EnsureDatabaseExists creates the database called name unless the catalog
// already lists it. admin must be connected to a different database, usually
// "postgres". Losing a creation race to another process is not an error.
func EnsureDatabaseExists(ctx context.Context, admin *sqlx.DB, name string) (bool, error) {
	if name == "" {
		return false, &ValidationError{Field: "database", Reason: "is required"}
	}

	var exists bool
	err := admin.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM pg_catalog.pg_database WHERE datname = $1)`, name)
	if err != nil {
		return false, fmt.Errorf("check database exists: %w", err)
	}
	if exists {
		return false, nil
	}

	// CREATE DATABASE takes no bind parameters and cannot run in a transaction.
	_, err = admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(name))
	if err != nil {
		if hasCode(err, codeDuplicateDatabase) {
			return false, nil
		}
		return false, fmt.Errorf("create database %s: %w", name, err)
	}

	return true, nil
}

// EnsureTablesExist creates the inventory tables and indexes if missing.
// Safe to call from several processes at once.
func EnsureTablesExist(ctx context.Context, db *sqlx.DB) error {
	return WithRetry(ctx, db, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
			return fmt.Errorf("acquire schema lock: %w", err)
		}

		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
		}
		return nil
	})
}

// DropTables removes everything EnsureTablesExist creates.
func DropTables(ctx context.Context, db *sqlx.DB) error {
	return WithTransaction(ctx, db, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		for _, table := range []string{PropertiesTable, UnitsTable, ItemsTable} {
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+pq.QuoteIdentifier(table)); err != nil {
				return fmt.Errorf("drop %s: %w", table, err)
			}
		}
		return nil
	})
}

// TablesExist reports whether all inventory tables are present.
func TablesExist(ctx context.Context, q sqlx.QueryerContext) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_name = ANY($1)`,
		pq.Array([]string{ItemsTable, UnitsTable, PropertiesTable}))
	if err != nil {
		return false, fmt.Errorf("check tables exist: %w", err)
	}
	return count == 3, nil
}
