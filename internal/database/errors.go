package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

// SQLSTATE codes the repository reacts to.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
	codeSerialization       = "40001"
	codeDeadlock            = "40P01"
	codeLockNotAvailable    = "55P03"
	codeDuplicateDatabase   = "42P04"
	codeAdminShutdown       = "57P01"
	codeCannotConnectNow    = "57P03"
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerialization:
			return ErrorClassSerialization
		case codeDeadlock:
			return ErrorClassDeadlock
		case codeLockNotAvailable, codeAdminShutdown, codeCannotConnectNow:
			return ErrorClassTransient
		case codeUniqueViolation, codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation:
			return ErrorClassPermanent
		}
		if pqErr.Code.Class() == "08" {
			return ErrorClassTransient
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return ErrorClassTransient
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsForeignKeyViolation reports whether err is a pq foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

var (
	ErrItemNotFound        = errors.New("inventory item not found")
	ErrUnitNotFound        = errors.New("item unit not found")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrValidation          = errors.New("validation failed")
	ErrLockTimeout         = errors.New("lock timeout")
)

// ConflictError is returned when the Lamport clock guard rejects an update.
// Attempted is the clock proposed by the caller, Current the stored one.
type ConflictError struct {
	ItemID    uuid.UUID
	Attempted int64
	Current   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrency conflict on item %s: proposed clock %d is not greater than stored clock %d",
		e.ItemID, e.Attempted, e.Current)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError wraps a driver or transaction failure. The original error is
// kept so callers can still inspect the pq error code.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets callers test for ErrLockTimeout when Postgres gave up waiting for
// a row or table lock (lock_not_available).
func (e *StorageError) Is(target error) bool {
	return target == ErrLockTimeout && hasCode(e.Err, codeLockNotAvailable)
}

// Transient reports whether retrying the operation may succeed.
func (e *StorageError) Transient() bool {
	return IsRetryable(e.Err)
}
