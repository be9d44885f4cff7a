package types

import (
	"errors"
	"fmt"
)

// Structural errors. These indicate programmer or environment error and are
// always returned to the caller.
var (
	// ErrInvalidPath reports a path segment that is empty after
	// sanitization or contains a character that cannot be stored.
	ErrInvalidPath = errors.New("invalid configuration path")
	// ErrFileLocked reports an open of a file already held by another
	// store in this process.
	ErrFileLocked = errors.New("configuration file is locked")
	// ErrUnsupportedType reports a value kind with no table schema.
	ErrUnsupportedType = errors.New("unsupported value type")
	// ErrDuplicateValue reports an insert-only write against a path that
	// already holds a value.
	ErrDuplicateValue = errors.New("value already exists")
	// ErrFileDeletion reports that the database file could not be removed.
	ErrFileDeletion = errors.New("configuration file could not be deleted")
)

// ErrStorage matches any *StorageError with errors.Is.
var ErrStorage = errors.New("storage error")

// StorageError wraps a failure reported by the embedded engine. The driver
// message is kept intact; callers should not interpret driver error codes.
type StorageError struct {
	Op    string // exec, query, open, close, tables
	Table string // physical table name, empty when not table-specific
	Err   error
}

func (e *StorageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) true for every StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
