package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"connection exception", &pq.Error{Code: "08006"}, ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassPermanent},
		{"wrapped deadlock", fmt.Errorf("update item: %w", &pq.Error{Code: "40P01"}), ErrorClassDeadlock},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent},
		{"deadline", context.DeadlineExceeded, ErrorClassTransient},
		{"plain", errors.New("boom"), ErrorClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestConstraintHelpers(t *testing.T) {
	fk := fmt.Errorf("add unit: %w", &pq.Error{Code: "23503"})
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(errors.New("23503")))
}

func TestConflictError(t *testing.T) {
	id := uuid.New()
	var err error = &ConflictError{ItemID: id, Attempted: 6, Current: 6}

	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.ErrorIs(t, fmt.Errorf("update: %w", err), ErrConcurrencyConflict)
	assert.Contains(t, err.Error(), "proposed clock 6")

	var conflict *ConflictError
	assert.True(t, errors.As(err, &conflict))
	assert.Equal(t, int64(6), conflict.Current)
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "name", Reason: "is required"}
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: name is required", err.Error())
}

func TestStorageError(t *testing.T) {
	cause := &pq.Error{Code: "40001"}
	err := &StorageError{Op: "update_item", Err: cause}

	assert.True(t, err.Transient())
	var pqErr *pq.Error
	assert.True(t, errors.As(err, &pqErr))
	assert.False(t, (&StorageError{Op: "x", Err: &pq.Error{Code: "23505"}}).Transient())
}

func TestStorageErrorLockTimeout(t *testing.T) {
	err := &StorageError{Op: "update_item", Err: fmt.Errorf("update item: %w", &pq.Error{Code: "55P03"})}
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.True(t, err.Transient())

	assert.NotErrorIs(t, &StorageError{Op: "update_item", Err: &pq.Error{Code: "40P01"}}, ErrLockTimeout)
	assert.NotErrorIs(t, &StorageError{Op: "update_item", Err: errors.New("boom")}, ErrLockTimeout)
}
