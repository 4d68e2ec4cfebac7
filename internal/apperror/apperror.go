// Package apperror defines the typed error kinds used across the
// store, scheduler, importer, backup, and service layers.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it
// (e.g. the future HTTP layer mapping to status codes).
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidInput
	KindStoreUnavailable
	KindImportFailure
	KindBackupFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindImportFailure:
		return "import_failure"
	case KindBackupFailure:
		return "backup_failure"
	default:
		return "internal"
	}
}

// Error is the concrete error type carried by this package. Description
// is a human-readable summary; Cause, if present, is the underlying
// error that triggered this one.
type Error struct {
	Kind        Kind
	Description string
	Cause       error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Description, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, description string) *Error {
	return &Error{Kind: kind, Description: description}
}

func Wrap(kind Kind, description string, cause error) *Error {
	return &Error{Kind: kind, Description: description, Cause: cause}
}

// Is reports whether err is an *Error of the given kind, unwrapping as
// necessary.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

func NotFound(description string) *Error     { return New(KindNotFound, description) }
func Conflict(description string) *Error     { return New(KindConflict, description) }
func InvalidInput(description string) *Error { return New(KindInvalidInput, description) }
func StoreUnavailable(desc string, cause error) *Error {
	return Wrap(KindStoreUnavailable, desc, cause)
}
func ImportFailure(desc string, cause error) *Error {
	return Wrap(KindImportFailure, desc, cause)
}
func BackupFailure(desc string, cause error) *Error {
	return Wrap(KindBackupFailure, desc, cause)
}
func Internal(desc string, cause error) *Error {
	return Wrap(KindInternal, desc, cause)
}
