package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrTableNotFound is returned by OpenTable for a missing table.
	ErrTableNotFound = errors.New("table not found")
	// ErrUnsupportedType is returned when a dialect cannot store an arrow type.
	ErrUnsupportedType = errors.New("unsupported column type")
	// ErrSchemaMismatch is returned when a batch or stored schema differs from the expected one.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrEmptyFilter is returned when a delete is attempted without a predicate.
	ErrEmptyFilter = errors.New("empty filter")
)

// Error wraps a failure reported by the underlying database.
type Error struct {
	Op    string
	Table string
	Err   error
}

// Error returns error message
func (e *Error) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("engine: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("engine: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error { return e.Err }

func wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return err
	}
	return &Error{Op: op, Table: table, Err: err}
}
