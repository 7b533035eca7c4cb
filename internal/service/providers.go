package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/store"
)

// AddProviderRequest describes a provider to add at a location.
type AddProviderRequest struct {
	LocationID string
	Name       string
	NPI        string
	Role       string
	Specialty  string
	// FailIfExists rejects an active provider with the same name at the
	// location instead of returning it.
	FailIfExists bool
}

// ProviderFilter narrows Providers.List. LocationID wins over ClinicID.
type ProviderFilter struct {
	ProgramID       string
	ClinicID        string
	LocationID      string
	IncludeInactive bool
}

// Providers manages the providers working at each location.
type Providers interface {
	// Add stores a provider and reports whether it was created. An active
	// provider with the same name at the location is returned as is, with
	// its NPI filled in when it had none, unless FailIfExists is set.
	Add(ctx context.Context, req AddProviderRequest) (*domain.Provider, bool, error)

	// Update changes the set fields of a provider.
	Update(ctx context.Context, id int64, update domain.ProviderUpdate) (*domain.Provider, error)

	// List returns providers ordered by name; inactive ones only when asked.
	List(ctx context.Context, filter ProviderFilter) ([]*domain.Provider, error)

	// Deactivate soft-deletes a provider, keeping the row.
	Deactivate(ctx context.Context, id int64, reason string) error
}

type providersImpl struct {
	providers store.ProviderStore
	hierarchy store.HierarchyStore
	logger    *slog.Logger
}

// NewProviders creates a Providers service.
func NewProviders(providers store.ProviderStore, hierarchy store.HierarchyStore, logger *slog.Logger) (Providers, error) {
	if providers == nil {
		return nil, domain.NewValidationError("providers", "cannot be nil", domain.ErrValidation)
	}
	if hierarchy == nil {
		return nil, domain.NewValidationError("hierarchy", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &providersImpl{
		providers: providers,
		hierarchy: hierarchy,
		logger:    logger.With(slog.String("component", "provider_service")),
	}, nil
}

func (p *providersImpl) Add(ctx context.Context, req AddProviderRequest) (*domain.Provider, bool, error) {
	const op = "add_provider"
	log := logger.FromContextOrDefault(ctx, p.logger)

	scope, err := p.locationScope(ctx, op, req.LocationID)
	if err != nil {
		return nil, false, err
	}
	provider := &domain.Provider{
		LocationID: req.LocationID,
		Name:       req.Name,
		NPI:        req.NPI,
		Role:       req.Role,
		Specialty:  req.Specialty,
	}
	if err := provider.Validate(); err != nil {
		return nil, false, &ConfigError{
			Operation: op,
			Scope:     scope,
			Value:     req.NPI,
			Message:   "provider " + req.Name,
			Err:       err,
		}
	}

	existing, err := p.providers.FindActive(ctx, provider.LocationID, provider.Name)
	switch {
	case err == nil:
		if req.FailIfExists {
			return nil, false, NewConfigError(op, "", scope,
				"provider "+provider.Name+" already exists", domain.ErrDuplicateProvider)
		}
		if provider.NPI != "" && existing.NPI == "" {
			existing.NPI = provider.NPI
			if err := p.providers.Update(ctx, existing); err != nil {
				return nil, false, NewConfigError(op, "", scope, "failed to fill in NPI", err)
			}
			log.Info("provider NPI filled in",
				slog.Int64("provider_id", existing.ID),
				slog.String("location_id", existing.LocationID))
		}
		return existing, false, nil
	case !store.IsNotFoundError(err):
		return nil, false, NewConfigError(op, "", scope, "failed to read providers", err)
	}

	if err := p.providers.Create(ctx, provider); err != nil {
		if store.IsDuplicateError(err) {
			return nil, false, NewConfigError(op, "", scope,
				"provider "+provider.Name+" already exists", domain.ErrDuplicateProvider)
		}
		return nil, false, NewConfigError(op, "", scope, "failed to save provider", err)
	}
	log.Info("provider added",
		slog.Int64("provider_id", provider.ID),
		slog.String("location_id", provider.LocationID),
		slog.Bool("has_npi", provider.NPI != ""))
	return provider, true, nil
}

func (p *providersImpl) Update(ctx context.Context, id int64, update domain.ProviderUpdate) (*domain.Provider, error) {
	const op = "update_provider"

	provider, err := p.providers.Get(ctx, id)
	if err != nil {
		return nil, NewConfigError(op, "", domain.Scope{}, "failed to read provider", err)
	}
	if update.IsEmpty() {
		return provider, nil
	}
	if err := update.Apply(provider); err != nil {
		return nil, NewConfigError(op, "", domain.Scope{}, "provider "+provider.Name, err)
	}
	if err := p.providers.Update(ctx, provider); err != nil {
		if store.IsDuplicateError(err) {
			err = domain.ErrDuplicateProvider
		}
		return nil, NewConfigError(op, "", domain.Scope{}, "failed to save provider", err)
	}
	logger.FromContextOrDefault(ctx, p.logger).Info("provider updated",
		slog.Int64("provider_id", provider.ID))
	return provider, nil
}

func (p *providersImpl) List(ctx context.Context, filter ProviderFilter) ([]*domain.Provider, error) {
	providers, err := p.providers.List(ctx, store.ProviderFilter{
		ProgramID:  filter.ProgramID,
		ClinicID:   filter.ClinicID,
		LocationID: filter.LocationID,
		ActiveOnly: !filter.IncludeInactive,
	})
	if err != nil {
		return nil, NewConfigError("list_providers", "", domain.Scope{}, "failed to list providers", err)
	}
	return providers, nil
}

func (p *providersImpl) Deactivate(ctx context.Context, id int64, reason string) error {
	if err := p.providers.Deactivate(ctx, id, reason, time.Now().UTC()); err != nil {
		return NewConfigError("deactivate_provider", "", domain.Scope{}, "failed to deactivate provider", err)
	}
	logger.FromContextOrDefault(ctx, p.logger).Info("provider deactivated",
		slog.Int64("provider_id", id),
		slog.String("reason", reason))
	return nil
}

// locationScope returns the full scope of a location.
func (p *providersImpl) locationScope(ctx context.Context, op, locationID string) (domain.Scope, error) {
	location, err := p.hierarchy.GetLocation(ctx, locationID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return domain.Scope{}, NewConfigError(op, "", domain.Scope{},
				"location "+locationID+" does not exist", domain.ErrInvalidScope)
		}
		return domain.Scope{}, NewConfigError(op, "", domain.Scope{}, "failed to read location", err)
	}
	clinic, err := p.hierarchy.GetClinic(ctx, location.ClinicID)
	if err != nil {
		return domain.Scope{}, NewConfigError(op, "", domain.Scope{}, "failed to read clinic", err)
	}
	return domain.LocationScope(clinic.ProgramID, clinic.ID, location.ID), nil
}
