package lsm

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrIO               = errors.New("I/O error")
	ErrCorruptTable     = errors.New("corrupt table")
	ErrCapacityExceeded = errors.New("table capacity exceeded")
	ErrClosed           = errors.New("storage is closed")
	ErrUnsortedEntries  = errors.New("entries are not sorted by unique key")
	ErrReservedValue    = errors.New("value is reserved for tombstones")
	ErrEmptyTable       = errors.New("table has no entries")
)

// TableError provides structured error information for table operations.
type TableError struct {
	Op    string // Operation that failed (e.g., "write", "open", "get")
	Path  string // Table file path
	Level int    // Level the table belongs to, -1 if unknown
	Kind  error  // One of the sentinel errors above
	Cause error  // Underlying error, may be nil
}

// Error implements the error interface.
func (e *TableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s table %s (level %d): %v: %v", e.Op, e.Path, e.Level, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s table %s (level %d): %v", e.Op, e.Path, e.Level, e.Kind)
}

// Unwrap returns the underlying cause for error chain support.
func (e *TableError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the error kind or its cause.
func (e *TableError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Kind, target)
}

func ioError(op, path string, level int, cause error) error {
	return &TableError{Op: op, Path: path, Level: level, Kind: ErrIO, Cause: cause}
}

func corruptError(op, path string, level int, format string, args ...any) error {
	return &TableError{Op: op, Path: path, Level: level, Kind: ErrCorruptTable, Cause: fmt.Errorf(format, args...)}
}

// IsCorrupt reports whether err marks a malformed table.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptTable)
}
