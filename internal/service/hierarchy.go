package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/store"
)

// HierarchyService manages programs, clinics and locations.
type HierarchyService interface {
	// CreateProgram stores a program. An empty ID is generated from the
	// program's Prefix.
	CreateProgram(ctx context.Context, program *domain.Program) error

	// CreateClinic stores a clinic under an existing program. An empty ID is
	// generated.
	CreateClinic(ctx context.Context, clinic *domain.Clinic) error

	// CreateLocation stores an active location under an existing clinic. An
	// empty ID is generated.
	CreateLocation(ctx context.Context, location *domain.Location) error

	// SetLocationActive toggles whether a location counts as a leaf for
	// validation.
	SetLocationActive(ctx context.Context, locationID string, active bool) error

	// Programs lists every program by name.
	Programs(ctx context.Context) ([]*domain.Program, error)

	// Load returns the program with its clinics and their locations.
	Load(ctx context.Context, programID string) (*domain.Hierarchy, error)

	// FindProgram looks a program up by prefix or name, falling back to a
	// case-insensitive partial name match.
	FindProgram(ctx context.Context, identifier string) (*domain.Program, error)

	// AttachProgram links a shared service program to a parent program. An
	// empty relationship type means uses.
	AttachProgram(
		ctx context.Context,
		parentID, attachedID string,
		relType domain.RelationshipType,
	) (*domain.ProgramRelationship, error)

	// AttachedPrograms lists the programs attached to programID.
	AttachedPrograms(ctx context.Context, programID string) ([]*domain.AttachedProgram, error)
}

type hierarchyImpl struct {
	hierarchy store.HierarchyStore
	logger    *slog.Logger
}

// NewHierarchyService creates a HierarchyService.
func NewHierarchyService(hierarchy store.HierarchyStore, logger *slog.Logger) (HierarchyService, error) {
	if hierarchy == nil {
		return nil, domain.NewValidationError("hierarchy", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &hierarchyImpl{
		hierarchy: hierarchy,
		logger:    logger.With(slog.String("component", "hierarchy_service")),
	}, nil
}

func (h *hierarchyImpl) CreateProgram(ctx context.Context, program *domain.Program) error {
	if strings.TrimSpace(program.Name) == "" {
		return NewConfigError("create_program", "", domain.Scope{}, "name is required", domain.ErrValidation)
	}
	if program.Prefix == "" {
		program.Prefix = "PRG"
	}
	program.Prefix = strings.ToUpper(program.Prefix)
	if program.ID == "" {
		program.ID = domain.NewEntityID(program.Prefix)
	}

	if err := h.hierarchy.CreateProgram(ctx, program); err != nil {
		return NewConfigError("create_program", "", domain.ProgramScope(program.ID), "failed to save program", err)
	}
	h.logCreated(ctx, "program", program.ID, program.Name)
	return nil
}

func (h *hierarchyImpl) CreateClinic(ctx context.Context, clinic *domain.Clinic) error {
	scope := domain.ClinicScope(clinic.ProgramID, clinic.ID)
	if strings.TrimSpace(clinic.Name) == "" {
		return NewConfigError("create_clinic", "", scope, "name is required", domain.ErrValidation)
	}
	if _, err := h.hierarchy.GetProgram(ctx, clinic.ProgramID); err != nil {
		return NewConfigError("create_clinic", "", scope, "program does not exist", err)
	}
	if clinic.ID == "" {
		clinic.ID = domain.NewEntityID("CLN")
	}

	if err := h.hierarchy.CreateClinic(ctx, clinic); err != nil {
		return NewConfigError("create_clinic", "", domain.ClinicScope(clinic.ProgramID, clinic.ID),
			"failed to save clinic", err)
	}
	h.logCreated(ctx, "clinic", clinic.ID, clinic.Name)
	return nil
}

func (h *hierarchyImpl) CreateLocation(ctx context.Context, location *domain.Location) error {
	if strings.TrimSpace(location.Name) == "" {
		return NewConfigError("create_location", "", domain.Scope{}, "name is required", domain.ErrValidation)
	}
	clinic, err := h.hierarchy.GetClinic(ctx, location.ClinicID)
	if err != nil {
		return NewConfigError("create_location", "", domain.Scope{}, "clinic does not exist", err)
	}
	if location.ID == "" {
		location.ID = domain.NewEntityID("LOC")
	}
	location.Active = true

	if err := h.hierarchy.CreateLocation(ctx, location); err != nil {
		return NewConfigError("create_location", "",
			domain.LocationScope(clinic.ProgramID, clinic.ID, location.ID), "failed to save location", err)
	}
	h.logCreated(ctx, "location", location.ID, location.Name)
	return nil
}

func (h *hierarchyImpl) SetLocationActive(ctx context.Context, locationID string, active bool) error {
	if err := h.hierarchy.SetLocationActive(ctx, locationID, active); err != nil {
		return NewConfigError("set_location_active", "", domain.Scope{}, "location "+locationID, err)
	}
	logger.FromContextOrDefault(ctx, h.logger).Info("location activity changed",
		slog.String("location_id", locationID),
		slog.Bool("active", active))
	return nil
}

func (h *hierarchyImpl) Programs(ctx context.Context) ([]*domain.Program, error) {
	programs, err := h.hierarchy.ListPrograms(ctx)
	if err != nil {
		return nil, NewConfigError("list_programs", "", domain.Scope{}, "failed to list programs", err)
	}
	return programs, nil
}

func (h *hierarchyImpl) Load(ctx context.Context, programID string) (*domain.Hierarchy, error) {
	return loadHierarchy(ctx, h.hierarchy, programID)
}

func (h *hierarchyImpl) FindProgram(ctx context.Context, identifier string) (*domain.Program, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, NewConfigError("find_program", "", domain.Scope{}, "identifier is required", domain.ErrValidation)
	}
	program, err := h.hierarchy.FindProgram(ctx, identifier)
	if err != nil {
		return nil, NewConfigError("find_program", "", domain.Scope{}, "no program matches "+identifier, err)
	}
	return program, nil
}

func (h *hierarchyImpl) AttachProgram(
	ctx context.Context,
	parentID, attachedID string,
	relType domain.RelationshipType,
) (*domain.ProgramRelationship, error) {
	const op = "attach_program"
	scope := domain.ProgramScope(parentID)

	if relType == "" {
		relType = domain.RelationshipUses
	}
	switch {
	case !relType.IsValid():
		return nil, NewConfigError(op, "", scope, "unknown relationship type "+string(relType), domain.ErrValidation)
	case parentID == attachedID:
		return nil, NewConfigError(op, "", scope, "a program cannot be attached to itself", domain.ErrValidation)
	}
	for _, id := range []string{parentID, attachedID} {
		if _, err := h.hierarchy.GetProgram(ctx, id); err != nil {
			if store.IsNotFoundError(err) {
				err = domain.ErrInvalidScope
			}
			return nil, NewConfigError(op, "", scope, "program "+id+" does not exist", err)
		}
	}

	rel := &domain.ProgramRelationship{
		ParentProgramID:   parentID,
		AttachedProgramID: attachedID,
		Type:              relType,
	}
	if err := h.hierarchy.AttachProgram(ctx, rel); err != nil {
		return nil, NewConfigError(op, "", scope, "failed to attach program "+attachedID, err)
	}
	logger.FromContextOrDefault(ctx, h.logger).Info("program attached",
		slog.String("parent_program_id", parentID),
		slog.String("attached_program_id", attachedID),
		slog.String("relationship_type", string(relType)))
	return rel, nil
}

func (h *hierarchyImpl) AttachedPrograms(ctx context.Context, programID string) ([]*domain.AttachedProgram, error) {
	attached, err := h.hierarchy.ListAttachedPrograms(ctx, programID)
	if err != nil {
		return nil, NewConfigError("attached_programs", "", domain.ProgramScope(programID),
			"failed to list attached programs", err)
	}
	return attached, nil
}

func (h *hierarchyImpl) logCreated(ctx context.Context, kind, id, name string) {
	logger.FromContextOrDefault(ctx, h.logger).Info(kind+" created",
		slog.String("id", id),
		slog.String("name", name))
}

func loadHierarchy(ctx context.Context, hs store.HierarchyStore, programID string) (*domain.Hierarchy, error) {
	scope := domain.ProgramScope(programID)

	program, err := hs.GetProgram(ctx, programID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewConfigError("load_hierarchy", "", scope, "program does not exist", domain.ErrInvalidScope)
		}
		return nil, NewConfigError("load_hierarchy", "", scope, "failed to read program", err)
	}
	clinics, err := hs.ListClinics(ctx, programID)
	if err != nil {
		return nil, NewConfigError("load_hierarchy", "", scope, "failed to list clinics", err)
	}
	locations, err := hs.ListLocations(ctx, programID)
	if err != nil {
		return nil, NewConfigError("load_hierarchy", "", scope, "failed to list locations", err)
	}

	byClinic := make(map[string][]domain.Location, len(clinics))
	for _, loc := range locations {
		byClinic[loc.ClinicID] = append(byClinic[loc.ClinicID], *loc)
	}

	h := &domain.Hierarchy{Program: *program}
	for _, c := range clinics {
		h.Clinics = append(h.Clinics, domain.ClinicNode{Clinic: *c, Locations: byClinic[c.ID]})
	}
	return h, nil
}
