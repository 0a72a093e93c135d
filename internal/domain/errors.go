package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrImmutableState    = errors.New("resource is read-only")
	ErrConcurrency       = errors.New("concurrent modification")
	ErrStorage           = errors.New("storage failure")
)

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource id did not resolve
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input (bad fields, rejected size or extension)
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// AuthorizationError indicates an access control check failed
	AuthorizationError struct {
		Message   string
		Operation string
	}

	// ConcurrencyError indicates an optimistic check failed at commit time
	ConcurrencyError struct {
		Message string
	}

	// ImmutableStateError indicates a mutation was attempted on an archived document
	ImmutableStateError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string       { return e.Message }
func (e *ValidationError) Error() string     { return e.Message }
func (e *UnauthorizedError) Error() string   { return e.Message }
func (e *AuthorizationError) Error() string  { return e.Message }
func (e *ConcurrencyError) Error() string    { return e.Message }
func (e *ImmutableStateError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int       { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int     { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int   { return http.StatusUnauthorized }
func (e *AuthorizationError) StatusCode() int  { return http.StatusForbidden }
func (e *ConcurrencyError) StatusCode() int    { return http.StatusConflict }
func (e *ImmutableStateError) StatusCode() int { return http.StatusConflict }

func (e *NotFoundError) Is(target error) bool       { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool     { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool   { return target == ErrUnauthorized }
func (e *AuthorizationError) Is(target error) bool  { return target == ErrForbidden }
func (e *ConcurrencyError) Is(target error) bool    { return target == ErrConcurrency }
func (e *ImmutableStateError) Is(target error) bool { return target == ErrImmutableState }

// Conflict reasons carried by ConflictError
const (
	ConflictDuplicate       = "duplicate"
	ConflictCycle           = "cycle"
	ConflictCrossDepartment = "cross_department"
	ConflictNotEmpty        = "not_empty"
)

// ConflictError represents a resource conflict with details about the conflicting resource
type ConflictError struct {
	Message      string // Human-readable error message
	Reason       string // One of the Conflict* reasons
	ResourceType string // Type of resource (document, folder)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InvalidTransitionError reports an illegal document status change
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) StatusCode() int { return http.StatusConflict }

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// StorageError wraps an I/O failure from persistence or physical storage.
// It is the only error kind that indicates an unexpected fault.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) StatusCode() int { return http.StatusInternalServerError }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func (e *StorageError) Unwrap() error { return e.Err }

// Forbidden builds an AuthorizationError for the given operation
func Forbidden(operation, format string, args ...any) error {
	return &AuthorizationError{
		Message:   fmt.Sprintf(format, args...),
		Operation: operation,
	}
}

// Invalid builds a ValidationError
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFoundError for a resource type and id
func NotFound(resourceType, id string) error {
	return &NotFoundError{Message: fmt.Sprintf("%s %s not found", resourceType, id)}
}
