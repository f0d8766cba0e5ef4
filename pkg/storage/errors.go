package storage

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrTableNotFound  = errors.New("table not found")
	ErrTableExists    = errors.New("table already exists with a different definition")
	ErrRowNotFound    = errors.New("row not found")
	ErrDuplicateKey   = errors.New("duplicate primary key")
	ErrMissingColumn  = errors.New("missing required column")
	ErrUnknownColumn  = errors.New("unknown column")
	ErrPairNotAllowed = errors.New("endpoint pair not allowed for relationship table")
	ErrDanglingRel    = errors.New("relationship endpoint does not exist")
	ErrStoreClosed    = errors.New("store is closed")
)

// StoreError provides structured error information for store operations.
type StoreError struct {
	Op    string // Operation that failed (e.g., "CreateNodeTable", "InsertRel")
	Table string // Table involved
	Key   string // Primary key (if applicable)
	Field string // Column name (for column errors)
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	switch {
	case e.Key != "" && e.Field != "":
		return fmt.Sprintf("%s %s %q (column %s): %v", e.Op, e.Table, e.Key, e.Field, e.Cause)
	case e.Key != "":
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Table, e.Key, e.Cause)
	case e.Field != "":
		return fmt.Sprintf("%s %s (column %s): %v", e.Op, e.Table, e.Field, e.Cause)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *StoreError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

func opError(op, table string, cause error) error {
	return &StoreError{Op: op, Table: table, Cause: cause}
}

func keyError(op, table, key string, cause error) error {
	return &StoreError{Op: op, Table: table, Key: key, Cause: cause}
}

func columnError(op, table, field string, cause error) error {
	return &StoreError{Op: op, Table: table, Field: field, Cause: cause}
}

// IsNotFound returns true if the error is a table or row not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTableNotFound) || errors.Is(err, ErrRowNotFound)
}

// IsDuplicate returns true if the error is a primary-key collision.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}
