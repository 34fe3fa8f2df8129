package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the root of every "does not exist" failure.
	ErrNotFound = errors.New("not found")

	ErrTableNotFound = fmt.Errorf("table %w", ErrNotFound)
	ErrRowNotFound   = fmt.Errorf("item %w", ErrNotFound)

	ErrInvalidID             = errors.New("invalid id")
	ErrEmptyPayload          = errors.New("payload has no fields")
	ErrProceduresUnsupported = errors.New("stored procedures are not supported by this database")
)

// ReflectionError means the catalog could not be built. It is fatal at
// startup.
type ReflectionError struct {
	Table string
	Err   error
}

func (e *ReflectionError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("schema reflection failed: %v", e.Err)
	}
	return fmt.Sprintf("schema reflection failed for table %s: %v", e.Table, e.Err)
}

func (e *ReflectionError) Unwrap() error { return e.Err }

// MissingPrimaryKeyError is returned for identity based operations on a table
// without a primary key.
type MissingPrimaryKeyError struct {
	Table string
}

func (e *MissingPrimaryKeyError) Error() string {
	return fmt.Sprintf("table %s has no primary key", e.Table)
}

// UnknownColumnError is returned when a payload names a column the table does
// not have.
type UnknownColumnError struct {
	Table  string
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("table %s has no column %q", e.Table, e.Column)
}

// WriteError wraps a driver failure during insert, update or delete.
type WriteError struct {
	Op    string
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ProcedureError wraps a failed stored procedure call.
type ProcedureError struct {
	Name string
	Err  error
}

func (e *ProcedureError) Error() string {
	return fmt.Sprintf("procedure %s failed: %v", e.Name, e.Err)
}

func (e *ProcedureError) Unwrap() error { return e.Err }
