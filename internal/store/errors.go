package store

import (
	"errors"
	"fmt"
)

// Common store errors shared by every implementation.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a write would violate a uniqueness
	// constraint.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when a row violates a check or not-null
	// constraint, or references a missing parent row.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a transaction cannot begin or
	// commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrDefinitionNotFound indicates that no definition exists for a key.
	ErrDefinitionNotFound = fmt.Errorf("%w: definition", ErrNotFound)

	// ErrValueNotFound indicates that no value is stored at the exact scope.
	ErrValueNotFound = fmt.Errorf("%w: config value", ErrNotFound)

	// ErrProgramNotFound indicates that the program does not exist.
	ErrProgramNotFound = fmt.Errorf("%w: program", ErrNotFound)

	// ErrClinicNotFound indicates that the clinic does not exist.
	ErrClinicNotFound = fmt.Errorf("%w: clinic", ErrNotFound)

	// ErrLocationNotFound indicates that the location does not exist.
	ErrLocationNotFound = fmt.Errorf("%w: location", ErrNotFound)

	// ErrProviderNotFound indicates that the provider does not exist.
	ErrProviderNotFound = fmt.Errorf("%w: provider", ErrNotFound)

	// ErrKeyExists indicates that a definition with the same key exists.
	ErrKeyExists = fmt.Errorf("%w: config key", ErrDuplicate)
)

// IsNotFoundError reports whether err is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError adds entity and operation context to a storage failure.
type StoreError struct {
	Entity    string // The entity type (e.g., "definition", "config_value")
	Operation string // The operation that failed (e.g., "create", "upsert")
	Message   string
	Err       error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
