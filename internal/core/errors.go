package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("decode error")

	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence error")

	// ErrDeletion matches every *DeletionError.
	ErrDeletion = errors.New("deletion error")

	// ErrPassInProgress is returned when a pass is triggered while another
	// pass still holds the store.
	ErrPassInProgress = errors.New("sync pass already in progress")

	// ErrNotFound is returned for unknown pass IDs.
	ErrNotFound = errors.New("not found")
)

// DecodeErrorKind classifies a decode failure.
type DecodeErrorKind string

const (
	DecodeTypeMismatch DecodeErrorKind = "type mismatch"
	DecodeMalformed    DecodeErrorKind = "malformed payload"
)

// DecodeError reports a cell that is neither an Integer nor Text, or a payload
// that cannot be read at all. It is fatal for the pass and raised before any
// row is reconciled.
type DecodeError struct {
	Kind   DecodeErrorKind
	Row    int // 0-based payload row, -1 when unknown
	Column int // 0-based column, -1 when unknown
	Raw    string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "decode error: " + string(e.Kind)
	if e.Row >= 0 {
		msg += fmt.Sprintf(" at row %d", e.Row)
	}
	if e.Column >= 0 {
		msg += fmt.Sprintf(" column %d", e.Column)
	}
	if e.Raw != "" {
		msg += fmt.Sprintf(" (value %s)", truncate(e.Raw, 40))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// PersistenceError is a failed store call for a single row.
type PersistenceError struct {
	Op  string // "find", "create" or "update"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// DeletionError is a failed final deletion. Mirror completeness cannot be
// guaranteed for the pass.
type DeletionError struct {
	Kept int // size of the observed key set
	Err  error
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("deletion error: delete records outside %d observed keys: %v", e.Kept, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }

func (e *DeletionError) Is(target error) bool { return target == ErrDeletion }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
