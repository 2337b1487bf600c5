// Package errs provides the unified error type used across hiverunner.
//
// Every subsystem (engine sessions, metastore walker, runners, server) wraps
// its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindQueryFailed, status.GetErrorMessage(), err)
//
//	// At the host boundary, report the human message:
//	if errs.IsCancelled(err) {
//	    log.Info(errs.Message(err))
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing engine-specific codes.
// Hive, Impala and the metastore database all map their native errors to
// one of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindConnectionFailed         // transport or authentication failure
	ErrKindQueryFailed              // engine rejected or failed the statement
	ErrKindMetastoreFailed          // RPC / metastore service failure (Impala)
	ErrKindCancelled                // interrupted by the user
	ErrKindNoData                   // statement produced no result set
	ErrKindSchemaFailed             // catalog lookup failed
	ErrKindTimeout                  // deadline exceeded
	ErrKindInvalidInput             // bad arguments or configuration
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindMetastoreFailed:
		return "metastore_failed"
	case ErrKindCancelled:
		return "cancelled"
	case ErrKindNoData:
		return "no_data"
	case ErrKindSchemaFailed:
		return "schema_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all hiverunner subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether the engine rejected or failed a statement.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsMetastoreFailed reports whether err came from the engine's RPC layer
// rather than from the statement itself.
func IsMetastoreFailed(err error) bool {
	return KindOf(err) == ErrKindMetastoreFailed
}

// IsCancelled reports whether the operation was interrupted by the user.
func IsCancelled(err error) bool {
	return KindOf(err) == ErrKindCancelled
}

// IsNoData reports whether a statement finished without a result set.
func IsNoData(err error) bool {
	return KindOf(err) == ErrKindNoData
}

// IsSchemaFailed reports whether schema discovery was aborted.
func IsSchemaFailed(err error) bool {
	return KindOf(err) == ErrKindSchemaFailed
}

// IsTimeout reports whether err was caused by a deadline.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// KindOf extracts the ErrKind from the outermost *Error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

// Message returns the human-readable message the host should display:
// the Message of the outermost *Error, or err.Error() for foreign errors.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
