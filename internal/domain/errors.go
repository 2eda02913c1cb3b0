package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a folder or file id that does not resolve
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates malformed input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates the content store denied the action
	ForbiddenError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool    { return target == ErrForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalidMove  = errors.New("invalid move")
	ErrValidation   = errors.New("validation failed")
	ErrTampered     = errors.New("widget state hash mismatch")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ConflictError represents a sibling name collision with details about the existing resource.
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // folder or file
	ResourceID   string // ID of the existing sibling, empty when the store did not report it
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InvalidMoveError is returned when a folder would become its own ancestor.
type InvalidMoveError struct {
	FolderID string
	TargetID string
}

func (e *InvalidMoveError) Error() string {
	if e.FolderID == e.TargetID {
		return "cannot move folder into itself"
	}
	return "cannot move folder into its own descendant"
}

func (e *InvalidMoveError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

func (e *InvalidMoveError) Is(target error) bool {
	return target == ErrInvalidMove
}

// IsRecoverable reports whether the caller may surface the error and let the
// user retry with corrected input. Tampered or malformed picker state is not.
func IsRecoverable(err error) bool {
	switch {
	case errors.Is(err, ErrTampered):
		return false
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidMove),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrValidation):
		return true
	default:
		return false
	}
}
