package service

import (
	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/store"
)

// Stores groups the store contracts the services are built on.
type Stores struct {
	Definitions store.DefinitionStore
	Values      store.ValueStore
	History     store.HistoryStore
	Hierarchy   store.HierarchyStore
	Providers   store.ProviderStore
}

func (s Stores) validate() error {
	switch {
	case s.Definitions == nil:
		return domain.NewValidationError("stores.Definitions", "cannot be nil", domain.ErrValidation)
	case s.Values == nil:
		return domain.NewValidationError("stores.Values", "cannot be nil", domain.ErrValidation)
	case s.History == nil:
		return domain.NewValidationError("stores.History", "cannot be nil", domain.ErrValidation)
	case s.Hierarchy == nil:
		return domain.NewValidationError("stores.Hierarchy", "cannot be nil", domain.ErrValidation)
	case s.Providers == nil:
		return domain.NewValidationError("stores.Providers", "cannot be nil", domain.ErrValidation)
	}
	return nil
}
