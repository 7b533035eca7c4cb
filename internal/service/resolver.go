package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/platform/metrics"
	"github.com/phrazzld/hierconf/internal/resolution"
)

// DiffSelector chooses the keys Diff compares: one key, one category, or
// every key when both are empty.
type DiffSelector struct {
	Key      string
	Category string
}

// Resolver is the read side. It never mutates state; every method reads the
// rows it needs with single-statement queries and resolves over that
// snapshot.
type Resolver interface {
	// Resolve returns the effective value of key at scope.
	Resolve(ctx context.Context, key string, scope domain.Scope) (*resolution.Result, error)

	// ResolveChain returns every level from the default up to scope, with
	// the winning level marked.
	ResolveChain(ctx context.Context, key string, scope domain.Scope) ([]resolution.Link, error)

	// Diff returns the selected keys whose effective values differ between
	// child and parent.
	Diff(ctx context.Context, sel DiffSelector, child, parent domain.Scope) ([]resolution.Difference, error)

	// Validate checks the whole tree of a program. Findings are returned as
	// data and an unknown program has none; an error means the tree could
	// not be read.
	Validate(ctx context.Context, programID string) ([]resolution.Issue, error)

	// EffectiveConfig resolves every key, or every key of one category, at
	// scope.
	EffectiveConfig(ctx context.Context, scope domain.Scope, category string) ([]resolution.Result, error)

	// Overrides returns the values stored at exactly scope that shadow an
	// inherited value.
	Overrides(ctx context.Context, scope domain.Scope) ([]resolution.Override, error)

	// Tree resolves key at every node of a program's hierarchy.
	Tree(ctx context.Context, key, programID string) (*resolution.TreeNode, error)
}

type resolverImpl struct {
	stores  Stores
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewResolver creates a Resolver. A nil metrics recorder disables metrics.
func NewResolver(stores Stores, m metrics.Recorder, logger *slog.Logger) (Resolver, error) {
	if err := stores.validate(); err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &resolverImpl{
		stores:  stores,
		metrics: m,
		logger:  logger.With(slog.String("component", "resolution_engine")),
	}, nil
}

func (r *resolverImpl) Resolve(ctx context.Context, key string, scope domain.Scope) (*resolution.Result, error) {
	start := time.Now()

	def, snap, err := r.keyChain(ctx, "resolve", key, scope)
	if err != nil {
		return nil, err
	}
	result := resolution.Resolve(def, scope, snap)

	r.metrics.IncResolution(result.Level.String())
	r.metrics.ObserveResolve(time.Since(start).Seconds())
	logger.FromContextOrDefault(ctx, r.logger).Debug("config resolved",
		slog.String("config_key", key),
		slog.String("scope", scope.String()),
		slog.String("effective_level", result.Level.String()))
	return &result, nil
}

func (r *resolverImpl) ResolveChain(ctx context.Context, key string, scope domain.Scope) ([]resolution.Link, error) {
	def, snap, err := r.keyChain(ctx, "resolve_chain", key, scope)
	if err != nil {
		return nil, err
	}
	return resolution.Chain(def, scope, snap), nil
}

func (r *resolverImpl) Diff(
	ctx context.Context,
	sel DiffSelector,
	child, parent domain.Scope,
) ([]resolution.Difference, error) {
	const op = "diff"
	for _, s := range []domain.Scope{child, parent} {
		if err := s.Validate(); err != nil {
			return nil, NewConfigError(op, sel.Key, s, "", err)
		}
	}

	var defs []*domain.Definition
	if sel.Key != "" {
		def, err := getDefinition(ctx, r.stores.Definitions, op, sel.Key)
		if err != nil {
			return nil, err
		}
		defs = []*domain.Definition{def}
	} else {
		var err error
		if defs, err = r.stores.Definitions.List(ctx, sel.Category); err != nil {
			return nil, NewConfigError(op, "", child, "failed to list definitions", err)
		}
	}

	var (
		rows []*domain.ConfigValue
		err  error
	)
	if child.ProgramID == parent.ProgramID {
		rows, err = r.stores.Values.ListByProgram(ctx, child.ProgramID, sel.Key)
	} else {
		rows, err = r.twoChains(ctx, sel.Key, child, parent)
	}
	if err != nil {
		return nil, NewConfigError(op, sel.Key, child, "failed to read values", err)
	}

	return resolution.Diff(defs, child, parent, resolution.NewSnapshot(rows)), nil
}

func (r *resolverImpl) Validate(ctx context.Context, programID string) ([]resolution.Issue, error) {
	const op = "validate"
	log := logger.FromContextOrDefault(ctx, r.logger)
	scope := domain.ProgramScope(programID)

	h, err := loadHierarchy(ctx, r.stores.Hierarchy, programID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidScope) {
			log.Warn("validated unknown program", slog.String("program_id", programID))
			return []resolution.Issue{}, nil
		}
		return nil, err
	}
	defs, err := r.stores.Definitions.List(ctx, "")
	if err != nil {
		return nil, NewConfigError(op, "", scope, "failed to list definitions", err)
	}
	rows, err := r.stores.Values.ListByProgram(ctx, programID, "")
	if err != nil {
		return nil, NewConfigError(op, "", scope, "failed to read values", err)
	}

	issues := resolution.Validate(defs, h, resolution.NewSnapshot(rows))
	for _, issue := range issues {
		r.metrics.IncValidationIssue(string(issue.Kind))
	}

	log.Info("program validated",
		slog.String("program_id", programID),
		slog.Int("definitions", len(defs)),
		slog.Int("values", len(rows)),
		slog.Int("issues", len(issues)))
	return issues, nil
}

func (r *resolverImpl) EffectiveConfig(
	ctx context.Context,
	scope domain.Scope,
	category string,
) ([]resolution.Result, error) {
	const op = "effective_config"
	if err := scope.Validate(); err != nil {
		return nil, NewConfigError(op, "", scope, "", err)
	}
	defs, err := r.stores.Definitions.List(ctx, category)
	if err != nil {
		return nil, NewConfigError(op, "", scope, "failed to list definitions", err)
	}
	rows, err := r.stores.Values.ListChain(ctx, "", scope)
	if err != nil {
		return nil, NewConfigError(op, "", scope, "failed to read values", err)
	}

	snap := resolution.NewSnapshot(rows)
	out := make([]resolution.Result, 0, len(defs))
	for _, def := range defs {
		result := resolution.Resolve(def, scope, snap)
		r.metrics.IncResolution(result.Level.String())
		out = append(out, result)
	}
	return out, nil
}

func (r *resolverImpl) Overrides(ctx context.Context, scope domain.Scope) ([]resolution.Override, error) {
	const op = "overrides"
	if err := scope.Validate(); err != nil {
		return nil, NewConfigError(op, "", scope, "", err)
	}
	defs, err := r.stores.Definitions.List(ctx, "")
	if err != nil {
		return nil, NewConfigError(op, "", scope, "failed to list definitions", err)
	}
	rows, err := r.stores.Values.ListChain(ctx, "", scope)
	if err != nil {
		return nil, NewConfigError(op, "", scope, "failed to read values", err)
	}
	return resolution.Overrides(defs, scope, resolution.NewSnapshot(rows)), nil
}

func (r *resolverImpl) Tree(ctx context.Context, key, programID string) (*resolution.TreeNode, error) {
	const op = "tree"
	scope := domain.ProgramScope(programID)

	def, err := getDefinition(ctx, r.stores.Definitions, op, key)
	if err != nil {
		return nil, err
	}
	h, err := loadHierarchy(ctx, r.stores.Hierarchy, programID)
	if err != nil {
		return nil, err
	}
	rows, err := r.stores.Values.ListByProgram(ctx, programID, key)
	if err != nil {
		return nil, NewConfigError(op, key, scope, "failed to read values", err)
	}

	tree := resolution.Tree(def, h, resolution.NewSnapshot(rows))
	return &tree, nil
}

// keyChain loads a definition and the rows stored on scope's chain.
func (r *resolverImpl) keyChain(
	ctx context.Context,
	op, key string,
	scope domain.Scope,
) (*domain.Definition, *resolution.Snapshot, error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, NewConfigError(op, key, scope, "", err)
	}
	def, err := getDefinition(ctx, r.stores.Definitions, op, key)
	if err != nil {
		return nil, nil, err
	}
	rows, err := r.stores.Values.ListChain(ctx, key, scope)
	if err != nil {
		logger.FromContextOrDefault(ctx, r.logger).Error("failed to read value chain",
			slog.String("error", err.Error()),
			slog.String("config_key", key),
			slog.String("scope", scope.String()))
		return nil, nil, NewConfigError(op, key, scope, "failed to read values", err)
	}
	return def, resolution.NewSnapshot(rows), nil
}

func (r *resolverImpl) twoChains(
	ctx context.Context,
	key string,
	a, b domain.Scope,
) ([]*domain.ConfigValue, error) {
	first, err := r.stores.Values.ListChain(ctx, key, a)
	if err != nil {
		return nil, err
	}
	second, err := r.stores.Values.ListChain(ctx, key, b)
	if err != nil {
		return nil, err
	}
	return append(first, second...), nil
}
