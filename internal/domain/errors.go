package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrValidation classifies caller-correctable input errors.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced entry does not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrStorage classifies failures of the storage collaborator.
	ErrStorage = errors.New("storage failure")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError wraps a failure reported by a storage adapter.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a storage failure of op. A nil err yields nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStorage) hold for every StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NotFound wraps ErrNotFound with the missing id.
func NotFound(id uuid.UUID) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
