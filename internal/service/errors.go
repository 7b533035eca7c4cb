package service

import (
	"fmt"
	"strings"

	"github.com/phrazzld/hierconf/internal/domain"
)

// ConfigError carries the context of a failed configuration operation. Err
// is usually one of the domain sentinels, so callers can match with
// errors.Is.
type ConfigError struct {
	Operation string
	Key       string
	Scope     domain.Scope
	Value     string
	Message   string
	Err       error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "config %s failed", e.Operation)
	if e.Key != "" {
		fmt.Fprintf(&b, " for %s", e.Key)
	}
	if e.Scope.ProgramID != "" {
		fmt.Fprintf(&b, " at %s", e.Scope)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " (value %q)", e.Value)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError without value context.
func NewConfigError(operation, key string, scope domain.Scope, message string, err error) *ConfigError {
	return &ConfigError{
		Operation: operation,
		Key:       key,
		Scope:     scope,
		Message:   message,
		Err:       err,
	}
}
