package zerrors

import (
	"errors"
	"fmt"
)

// ValidationError represents errors in request validation
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error for field '%s' (value: %v): %s (caused by: %v)", e.Field, e.Value, e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewValidationErrorWithCause creates a new validation error with a cause
func NewValidationErrorWithCause(field string, value interface{}, message string, cause error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Cause:   cause,
	}
}

// NotFoundError is returned when an id has no matching record
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NewNotFoundError creates an error for a missing record
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// ConflictError represents a uniqueness violation reported by the store
type ConflictError struct {
	Resource string
	Field    string
	Value    string
	Cause    error
}

func (e *ConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s with %s %q already exists (caused by: %v)", e.Resource, e.Field, e.Value, e.Cause)
	}
	return fmt.Sprintf("%s with %s %q already exists", e.Resource, e.Field, e.Value)
}

func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// NewConflictError creates an error for a uniqueness violation
func NewConflictError(resource, field, value string, cause error) *ConflictError {
	return &ConflictError{
		Resource: resource,
		Field:    field,
		Value:    value,
		Cause:    cause,
	}
}

// StorageError represents errors related to storage operations
type StorageError struct {
	Type      string
	Operation string
	Resource  string
	Message   string
	Cause     error
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("storage error [%s] during %s on %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Resource, e.Message, e.Cause)
	}
	return fmt.Sprintf("storage error [%s] during %s on %s: %s",
		e.Type, e.Operation, e.Resource, e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Storage error types
const (
	StorageErrorTypeConnectionFailed = "connection_failed"
	StorageErrorTypeQueryFailed      = "query_failed"
	StorageErrorTypeSyncFailed       = "sync_failed"
)

// NewStorageConnectionError creates an error for storage connection failures
func NewStorageConnectionError(operation, resource string, cause error) *StorageError {
	return &StorageError{
		Type:      StorageErrorTypeConnectionFailed,
		Operation: operation,
		Resource:  resource,
		Message:   "failed to connect to storage",
		Cause:     cause,
	}
}

// NewStorageQueryError creates an error for storage query failures
func NewStorageQueryError(operation, resource string, cause error) *StorageError {
	return &StorageError{
		Type:      StorageErrorTypeQueryFailed,
		Operation: operation,
		Resource:  resource,
		Message:   "storage query failed",
		Cause:     cause,
	}
}

// NewSyncError creates an error for a cross-reference update that failed after
// the primary write succeeded
func NewSyncError(operation, resource string, cause error) *StorageError {
	return &StorageError{
		Type:      StorageErrorTypeSyncFailed,
		Operation: operation,
		Resource:  resource,
		Message:   "reference reconciliation failed",
		Cause:     cause,
	}
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConflict reports whether err is or wraps a ConflictError
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
