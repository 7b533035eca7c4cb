package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownKey is returned when a configuration key has no definition.
	ErrUnknownKey = errors.New("unknown configuration key")

	// ErrDuplicateKey is returned when defining a key that already exists.
	ErrDuplicateKey = errors.New("configuration key already defined")

	// ErrInvalidDefinition is returned when a definition is malformed
	// (unknown data type, unknown applies_to level, uncompilable rule).
	ErrInvalidDefinition = errors.New("invalid configuration definition")

	// ErrInvalidDefault is returned when a definition's default value fails
	// the definition's own validation.
	ErrInvalidDefault = errors.New("default value fails definition validation")

	// ErrScopeNotAllowed is returned when a value is written at a scope level
	// the definition's applies_to does not permit.
	ErrScopeNotAllowed = errors.New("scope level not allowed for key")

	// ErrInvalidValue is returned when a value fails type, pattern or
	// allowed-value validation.
	ErrInvalidValue = errors.New("invalid configuration value")

	// ErrNoSuchValue is returned when deleting a value that is not stored at
	// the exact scope.
	ErrNoSuchValue = errors.New("no value stored at scope")

	// ErrDuplicateProvider is returned when adding an active provider whose
	// name is already taken at the location.
	ErrDuplicateProvider = errors.New("provider already exists at location")

	// ErrInvalidScope is returned when a scope triple is malformed or names a
	// clinic or location outside its parent.
	ErrInvalidScope = errors.New("invalid scope")
)

// ValidationError describes a single field that failed validation.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
