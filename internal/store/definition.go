package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/hierconf/internal/domain"
)

// DefinitionStore persists the registry of configuration keys.
type DefinitionStore interface {
	// Create inserts a new definition and assigns its Position.
	// Returns ErrKeyExists if the key is already defined.
	Create(ctx context.Context, def *domain.Definition) error

	// Update replaces every attribute of an existing definition except its
	// key and position. Returns ErrDefinitionNotFound if the key is unknown.
	Update(ctx context.Context, def *domain.Definition) error

	// Get returns the definition for key.
	// Returns ErrDefinitionNotFound if the key is unknown.
	Get(ctx context.Context, key string) (*domain.Definition, error)

	// List returns definitions in insertion order, optionally restricted to
	// one category. An empty category lists everything.
	List(ctx context.Context, category string) ([]*domain.Definition, error)

	// WithTx returns a DefinitionStore bound to tx.
	WithTx(tx *sql.Tx) DefinitionStore
}
