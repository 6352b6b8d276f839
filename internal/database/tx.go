package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
)

// TxOptions controls how WithTransaction opens a transaction and how often
// WithRetry reruns it.
type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
	MaxRetries     int
	// BaseBackoff is the first retry delay. It doubles on every attempt.
	BaseBackoff time.Duration
}

// DefaultTxOptions is what the inventory store uses for every write. READ
// COMMITTED is enough because the clock guard lives inside the UPDATE.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     3,
		BaseBackoff:    50 * time.Millisecond,
	}
}

// WithTransaction runs fn inside a transaction. fn's error triggers a
// rollback and is returned as is; a panic rolls back and re-panics.
func WithTransaction(ctx context.Context, db *sqlx.DB, opts TxOptions, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: opts.IsolationLevel,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// WithRetry reruns WithTransaction while the failure is transient, a
// deadlock or a serialization failure. fn must be safe to run again.
func WithRetry(ctx context.Context, db *sqlx.DB, opts TxOptions, fn func(*sqlx.Tx) error) error {
	var err error

	for attempt := 0; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = WithTransaction(ctx, db, opts, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt >= opts.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", opts.MaxRetries, err)
		}

		select {
		case <-time.After(retryDelay(opts.BaseBackoff, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// retryDelay is base*2^attempt plus up to a quarter of that as jitter.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	delay := base << attempt
	return delay + time.Duration(rand.Int63n(int64(delay/4)+1))
}
