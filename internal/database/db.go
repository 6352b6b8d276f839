package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/safar/inventory-store/internal/config"
)

// NewConnection opens the application database pool.
func NewConnection(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := Open(cfg.URL())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// NewAdminConnection opens a single connection to the maintenance database,
// used only to create the application database.
func NewAdminConnection(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := Open(cfg.AdminURL())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Open connects to dsn with the postgres driver and pings it.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Bootstrap makes sure the configured database and the inventory tables
// exist, then returns the application pool. When cfg carries a DATABASE_URL
// override the database is assumed to exist already.
func Bootstrap(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, bool, error) {
	var created bool
	if cfg.URLOverride == "" {
		admin, err := NewAdminConnection(cfg)
		if err != nil {
			return nil, false, fmt.Errorf("connect to maintenance database: %w", err)
		}
		created, err = EnsureDatabaseExists(ctx, admin, cfg.DatabaseName())
		admin.Close()
		if err != nil {
			return nil, false, err
		}
	}

	db, err := NewConnection(cfg)
	if err != nil {
		return nil, false, err
	}

	if err := EnsureTablesExist(ctx, db); err != nil {
		db.Close()
		return nil, false, err
	}

	return db, created, nil
}
