package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/hierconf/internal/domain"
)

// ProviderFilter narrows a provider listing. LocationID wins over ClinicID
// when both are set.
type ProviderFilter struct {
	LocationID string
	ClinicID   string
	ProgramID  string
	ActiveOnly bool
}

// ProviderStore persists providers.
type ProviderStore interface {
	// Create inserts a provider and sets its ID. Returns ErrDuplicate if an
	// active provider with the same name exists at the location and
	// ErrInvalidEntity if the location does not exist.
	Create(ctx context.Context, provider *domain.Provider) error

	// Get returns ErrProviderNotFound if the provider does not exist.
	Get(ctx context.Context, id int64) (*domain.Provider, error)

	// FindActive returns the active provider with exactly this name at the
	// location, or ErrProviderNotFound.
	FindActive(ctx context.Context, locationID, name string) (*domain.Provider, error)

	// Update writes the provider's name, NPI, role and specialty.
	// Returns ErrProviderNotFound if the provider does not exist.
	Update(ctx context.Context, provider *domain.Provider) error

	// Deactivate marks the provider inactive with a reason.
	// Returns ErrProviderNotFound if the provider does not exist.
	Deactivate(ctx context.Context, id int64, reason string, at time.Time) error

	// List returns the providers matching filter ordered by name.
	List(ctx context.Context, filter ProviderFilter) ([]*domain.Provider, error)

	// DeleteByProgram removes every provider at a location of the program
	// and returns how many were removed.
	DeleteByProgram(ctx context.Context, programID string) (int, error)

	// WithTx returns a ProviderStore bound to tx.
	WithTx(tx *sql.Tx) ProviderStore
}
