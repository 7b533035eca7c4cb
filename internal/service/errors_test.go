package service

import (
	"errors"
	"testing"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestConfigError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ConfigError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ConfigError{Operation: "list_definitions"},
			expected: "config list_definitions failed",
		},
		{
			name: "full context",
			err: &ConfigError{
				Operation: "set",
				Key:       "helpdesk_phone",
				Scope:     domain.ClinicScope("P4M", "CLN-PDX"),
				Value:     "call us",
				Message:   "bad input",
				Err:       domain.ErrInvalidValue,
			},
			expected: `config set failed for helpdesk_phone at P4M/CLN-PDX (value "call us"): bad input: invalid configuration value`,
		},
		{
			name:     "sentinel without message",
			err:      NewConfigError("get_definition", "k", domain.Scope{}, "", domain.ErrUnknownKey),
			expected: "config get_definition failed for k: unknown configuration key",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	t.Parallel()

	err := error(NewConfigError("delete", "k", domain.ProgramScope("P4M"), "", domain.ErrNoSuchValue))
	assert.ErrorIs(t, err, domain.ErrNoSuchValue)
	assert.NotErrorIs(t, err, domain.ErrUnknownKey)

	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, domain.ProgramScope("P4M"), cfgErr.Scope)
	assert.Nil(t, (&ConfigError{}).Unwrap())
}
