package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/phrazzld/hierconf/internal/catalog"
	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/store"
)

// Registry manages the catalog of configurable keys.
type Registry interface {
	// Define adds a new key. Fails with domain.ErrDuplicateKey when the key
	// exists and domain.ErrInvalidDefault when the default does not pass the
	// definition's own validation.
	Define(ctx context.Context, def *domain.Definition) error

	// Redefine replaces the mutable attributes of an existing key. Values
	// already stored are not rechecked; Resolver.Validate reports the ones
	// the new definition rejects.
	Redefine(ctx context.Context, def *domain.Definition) error

	// Get fails with domain.ErrUnknownKey when the key is not defined.
	Get(ctx context.Context, key string) (*domain.Definition, error)

	// List returns definitions in insertion order. A non-empty category
	// filters the result.
	List(ctx context.Context, category string) ([]*domain.Definition, error)

	// LoadCatalog defines every new key of a YAML catalog and redefines the
	// ones that exist, all in one transaction.
	LoadCatalog(ctx context.Context, r io.Reader) (*CatalogResult, error)
}

// CatalogResult counts what LoadCatalog changed.
type CatalogResult struct {
	Defined   int `json:"defined"`
	Redefined int `json:"redefined"`
}

type registryImpl struct {
	db     *sql.DB
	defs   store.DefinitionStore
	logger *slog.Logger
}

// NewRegistry creates a Registry.
func NewRegistry(db *sql.DB, defs store.DefinitionStore, logger *slog.Logger) (Registry, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if defs == nil {
		return nil, domain.NewValidationError("defs", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &registryImpl{
		db:     db,
		defs:   defs,
		logger: logger.With(slog.String("component", "definition_registry")),
	}, nil
}

func (r *registryImpl) Define(ctx context.Context, def *domain.Definition) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if err := checkDefinition("define", def); err != nil {
		return err
	}
	if err := r.defs.Create(ctx, def); err != nil {
		if store.IsDuplicateError(err) {
			return NewConfigError("define", def.Key, domain.Scope{}, "key already defined", domain.ErrDuplicateKey)
		}
		log.Error("failed to create definition",
			slog.String("error", err.Error()),
			slog.String("config_key", def.Key))
		return NewConfigError("define", def.Key, domain.Scope{}, "failed to save definition", err)
	}

	log.Info("configuration key defined",
		slog.String("config_key", def.Key),
		slog.String("category", def.Category),
		slog.String("data_type", string(def.DataType)))
	return nil
}

func (r *registryImpl) Redefine(ctx context.Context, def *domain.Definition) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if err := checkDefinition("redefine", def); err != nil {
		return err
	}
	if err := r.defs.Update(ctx, def); err != nil {
		if store.IsNotFoundError(err) {
			return NewConfigError("redefine", def.Key, domain.Scope{}, "key is not defined", domain.ErrUnknownKey)
		}
		log.Error("failed to update definition",
			slog.String("error", err.Error()),
			slog.String("config_key", def.Key))
		return NewConfigError("redefine", def.Key, domain.Scope{}, "failed to save definition", err)
	}

	log.Info("configuration key redefined", slog.String("config_key", def.Key))
	return nil
}

func (r *registryImpl) Get(ctx context.Context, key string) (*domain.Definition, error) {
	return getDefinition(ctx, r.defs, "get_definition", key)
}

func (r *registryImpl) List(ctx context.Context, category string) ([]*domain.Definition, error) {
	defs, err := r.defs.List(ctx, category)
	if err != nil {
		return nil, NewConfigError("list_definitions", "", domain.Scope{}, "failed to list definitions", err)
	}
	return defs, nil
}

func (r *registryImpl) LoadCatalog(ctx context.Context, src io.Reader) (*CatalogResult, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	defs, err := catalog.Decode(src)
	if err != nil {
		return nil, NewConfigError("load_catalog", "", domain.Scope{}, "failed to read catalog", err)
	}

	result := &CatalogResult{}
	err = store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		txDefs := r.defs.WithTx(tx)
		for _, def := range defs {
			_, err := txDefs.Get(ctx, def.Key)
			switch {
			case store.IsNotFoundError(err):
				if err := txDefs.Create(ctx, def); err != nil {
					return NewConfigError("load_catalog", def.Key, domain.Scope{}, "failed to save definition", err)
				}
				result.Defined++
			case err != nil:
				return NewConfigError("load_catalog", def.Key, domain.Scope{}, "failed to read definition", err)
			default:
				if err := txDefs.Update(ctx, def); err != nil {
					return NewConfigError("load_catalog", def.Key, domain.Scope{}, "failed to save definition", err)
				}
				result.Redefined++
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to load definition catalog", slog.String("error", err.Error()))
		return nil, err
	}

	log.Info("definition catalog loaded",
		slog.Int("defined", result.Defined),
		slog.Int("redefined", result.Redefined))
	return result, nil
}

func checkDefinition(op string, def *domain.Definition) error {
	if def == nil {
		return NewConfigError(op, "", domain.Scope{}, "definition is nil", domain.ErrInvalidDefinition)
	}
	if err := def.Validate(); err != nil {
		return NewConfigError(op, def.Key, domain.Scope{}, "", err)
	}
	return nil
}

func getDefinition(ctx context.Context, defs store.DefinitionStore, op, key string) (*domain.Definition, error) {
	def, err := defs.Get(ctx, key)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, NewConfigError(op, key, domain.Scope{}, "key is not defined", domain.ErrUnknownKey)
		}
		return nil, NewConfigError(op, key, domain.Scope{}, "failed to read definition", err)
	}
	return def, nil
}
