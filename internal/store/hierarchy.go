package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/hierconf/internal/domain"
)

// HierarchyStore persists programs, clinics and locations.
type HierarchyStore interface {
	// CreateProgram inserts a program. Returns ErrDuplicate if the ID exists.
	CreateProgram(ctx context.Context, program *domain.Program) error

	// CreateClinic inserts a clinic under an existing program.
	// Returns ErrInvalidEntity if the program does not exist.
	CreateClinic(ctx context.Context, clinic *domain.Clinic) error

	// CreateLocation inserts a location under an existing clinic.
	// Returns ErrInvalidEntity if the clinic does not exist.
	CreateLocation(ctx context.Context, location *domain.Location) error

	// GetProgram returns ErrProgramNotFound if the program does not exist.
	GetProgram(ctx context.Context, id string) (*domain.Program, error)

	// GetClinic returns ErrClinicNotFound if the clinic does not exist.
	GetClinic(ctx context.Context, id string) (*domain.Clinic, error)

	// GetLocation returns ErrLocationNotFound if the location does not exist.
	GetLocation(ctx context.Context, id string) (*domain.Location, error)

	// ListPrograms returns all programs ordered by name.
	ListPrograms(ctx context.Context) ([]*domain.Program, error)

	// ListClinics returns the program's clinics ordered by name.
	ListClinics(ctx context.Context, programID string) ([]*domain.Clinic, error)

	// ListLocations returns the locations of every clinic of the program
	// ordered by clinic and name.
	ListLocations(ctx context.Context, programID string) ([]*domain.Location, error)

	// FindProgram looks a program up by exact prefix, then exact name, then
	// a case-insensitive substring of the name. Returns ErrProgramNotFound
	// when nothing matches.
	FindProgram(ctx context.Context, identifier string) (*domain.Program, error)

	// AttachProgram records that rel.AttachedProgramID is attached to
	// rel.ParentProgramID and sets rel.ID. Returns ErrDuplicate if the pair
	// is already attached and ErrInvalidEntity if either program does not
	// exist.
	AttachProgram(ctx context.Context, rel *domain.ProgramRelationship) error

	// ListAttachedPrograms returns the programs attached to programID
	// ordered by name.
	ListAttachedPrograms(ctx context.Context, programID string) ([]*domain.AttachedProgram, error)

	// DeleteLocations removes every location of the program's clinics and
	// returns how many were removed.
	DeleteLocations(ctx context.Context, programID string) (int, error)

	// DeleteClinics removes every clinic of the program and returns how many
	// were removed.
	DeleteClinics(ctx context.Context, programID string) (int, error)

	// SetLocationActive flips a location's active flag.
	// Returns ErrLocationNotFound if the location does not exist.
	SetLocationActive(ctx context.Context, id string, active bool) error

	// WithTx returns a HierarchyStore bound to tx.
	WithTx(tx *sql.Tx) HierarchyStore
}
