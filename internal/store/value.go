package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/hierconf/internal/domain"
)

// ValueStore persists configuration values, one row per key and exact
// scope triple.
type ValueStore interface {
	// Get returns the value stored for key at exactly scope.
	// Returns ErrValueNotFound if nothing is stored there.
	Get(ctx context.Context, key string, scope domain.Scope) (*domain.ConfigValue, error)

	// Upsert inserts the value or replaces the row already stored for the
	// same key and scope. The row's ID is set on return.
	Upsert(ctx context.Context, value *domain.ConfigValue) error

	// Delete removes the value stored for key at exactly scope.
	// Returns ErrValueNotFound if nothing is stored there.
	Delete(ctx context.Context, key string, scope domain.Scope) error

	// SetOverride updates only the is_override flag of the row stored for
	// key at exactly scope. Returns ErrValueNotFound if nothing is stored
	// there.
	SetOverride(ctx context.Context, key string, scope domain.Scope, isOverride bool) error

	// ListChain returns the values stored on scope's inheritance chain.
	// An empty key returns every key on the chain. The rows are read in a
	// single statement so callers see one consistent snapshot.
	ListChain(ctx context.Context, key string, scope domain.Scope) ([]*domain.ConfigValue, error)

	// ListByProgram returns every value stored anywhere under the program,
	// optionally restricted to one key.
	ListByProgram(ctx context.Context, programID, key string) ([]*domain.ConfigValue, error)

	// LockScope serializes writers of the same key and scope until the
	// surrounding transaction ends. It must be called on a store bound to a
	// transaction.
	LockScope(ctx context.Context, key string, scope domain.Scope) error

	// WithTx returns a ValueStore bound to tx.
	WithTx(tx *sql.Tx) ValueStore
}
