package types

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of failure that callers branch on.
type ErrorCode string

const (
	// ErrCodeNotFound indicates an unknown principal or dataset.
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodePermissionDenied indicates the action is not covered by the
	// caller's resolved permissions.
	ErrCodePermissionDenied ErrorCode = "permission_denied"

	// ErrCodeConflict indicates a concurrent pipeline run is already in
	// progress for the same dataset and pipeline.
	ErrCodeConflict ErrorCode = "conflict"

	// ErrCodeTaskExecution wraps an underlying task failure with batch context.
	ErrCodeTaskExecution ErrorCode = "task_execution_failed"

	// ErrCodeCancelled indicates a run was cancelled at a batch boundary.
	ErrCodeCancelled ErrorCode = "cancelled"

	// ErrCodeIsolationViolation indicates the storage router produced
	// overlapping handles for two distinct datasets. This is an internal
	// invariant failure and must never be silently ignored.
	ErrCodeIsolationViolation ErrorCode = "isolation_violation"

	// ErrCodeValidation indicates malformed input.
	ErrCodeValidation ErrorCode = "validation_failed"

	// ErrCodeInternal indicates an unclassified internal failure.
	ErrCodeInternal ErrorCode = "internal_error"
)

// Error is the coded error type shared across the system. It implements
// the error interface and supports errors.Is/As chain traversal.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap enables errors.Is and errors.As on the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports equality by error code, so sentinel comparisons work across
// independently-constructed instances.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// WithContext attaches contextual information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewError creates a coded error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a code and message.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewNotFoundError creates a not-found error for an entity.
func NewNotFoundError(kind, id string) *Error {
	return NewError(ErrCodeNotFound, fmt.Sprintf("%s not found: %s", kind, id)).
		WithContext(kind+"_id", id)
}

// NewPermissionDeniedError creates a permission-denied error.
func NewPermissionDeniedError(message string) *Error {
	return NewError(ErrCodePermissionDenied, message)
}

// NewConflictError creates a concurrent-run conflict error.
func NewConflictError(message string) *Error {
	return NewError(ErrCodeConflict, message)
}

// CodeOf returns the error code of err, or ErrCodeInternal when err does
// not carry one.
func CodeOf(err error) ErrorCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ErrCodeInternal
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsPermissionDenied reports whether err is a permission-denied error.
func IsPermissionDenied(err error) bool {
	return CodeOf(err) == ErrCodePermissionDenied
}

// IsConflict reports whether err is a concurrent-run conflict error.
func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

// IsCancelled reports whether err marks a cancelled run.
func IsCancelled(err error) bool {
	return CodeOf(err) == ErrCodeCancelled
}

// IsIsolationViolation reports whether err is a storage isolation
// invariant failure.
func IsIsolationViolation(err error) bool {
	return CodeOf(err) == ErrCodeIsolationViolation
}
