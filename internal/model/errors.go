package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrStorage    = errors.New("storage error")
	ErrConflict   = errors.New("conflict")
)

// ValidationError represents malformed input. The whole operation is aborted.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError creates a new validation error
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error (including wrapped errors)
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// StorageError wraps a failure of the underlying store. Callers may retry.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error { return e.Err }

func (e StorageError) Is(target error) bool { return target == ErrStorage }

// NewStorageError constructs StorageError
func NewStorageError(op string, err error) StorageError {
	return StorageError{Op: op, Err: err}
}

// IsStorageError checks if error is StorageError
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorage)
}

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Field   string
	Message string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("not found %s: %s", e.Field, e.Message)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError constructs NotFoundError
func NewNotFoundError(field, message string) NotFoundError {
	return NotFoundError{Field: field, Message: message}
}

// IsNotFoundError checks if error is NotFoundError
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ConflictError represents a unique constraint or duplicate resource error
type ConflictError struct {
	Field   string
	Message string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Field, e.Message)
}

func (e ConflictError) Is(target error) bool { return target == ErrConflict }

// NewConflictError constructs ConflictError
func NewConflictError(field, message string) ConflictError {
	return ConflictError{Field: field, Message: message}
}

// IsConflictError checks if error is ConflictError
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// AttributeFailure is the outcome of one attribute in a rejected batch.
type AttributeFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BatchError reports an attribute batch that was rolled back as a whole.
// Failures lists the attributes that caused the rejection; Rejected lists every name in the batch.
type BatchError struct {
	Failures []AttributeFailure
	Rejected []string
	Err      error
}

func (e *BatchError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("attribute batch rejected: %v", e.Err)
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Name+": "+f.Reason)
	}
	return "attribute batch rejected: " + strings.Join(parts, "; ")
}

func (e *BatchError) Unwrap() error { return e.Err }
