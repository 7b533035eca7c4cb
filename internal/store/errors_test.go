package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		notFound  bool
		duplicate bool
	}{
		{name: "nil error", err: nil},
		{name: "generic error", err: errors.New("some error")},
		{name: "ErrNotFound", err: ErrNotFound, notFound: true},
		{name: "wrapped definition not found", err: fmt.Errorf("get: %w", ErrDefinitionNotFound), notFound: true},
		{name: "value not found", err: ErrValueNotFound, notFound: true},
		{name: "location not found", err: ErrLocationNotFound, notFound: true},
		{name: "ErrDuplicate", err: ErrDuplicate, duplicate: true},
		{name: "key exists", err: ErrKeyExists, duplicate: true},
		{
			name:     "store error wrapping not found",
			err:      NewStoreError("program", "get", "lookup failed", ErrProgramNotFound),
			notFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.notFound, IsNotFoundError(tt.err))
			assert.Equal(t, tt.duplicate, IsDuplicateError(tt.err))
		})
	}
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	withCause := NewStoreError("config_value", "upsert", "write failed", ErrInvalidEntity)
	assert.Equal(t, "upsert operation on config_value failed: write failed: invalid entity", withCause.Error())
	assert.ErrorIs(t, withCause, ErrInvalidEntity)

	bare := NewStoreError("definition", "create", "bad key", nil)
	assert.Equal(t, "create operation on definition failed: bad key", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
