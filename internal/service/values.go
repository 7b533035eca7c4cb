package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/events"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/resolution"
	"github.com/phrazzld/hierconf/internal/store"
)

// SetRequest describes one value write.
type SetRequest struct {
	Key   string
	Scope domain.Scope
	// Value is the raw input; it is normalized for the key's data type
	// before it is validated and stored.
	Value string
	// Source defaults to domain.SourceManual.
	Source         domain.Source
	SourceDocument string
	Rationale      string
	// Actor defaults to DefaultActor.
	Actor         string
	EffectiveDate *time.Time
	ExpiryDate    *time.Time
}

// PropagateRequest pushes one value to every clinic of a program.
type PropagateRequest struct {
	Key       string
	Value     string
	ProgramID string
	// Force overwrites clinics that already store their own value.
	Force bool
	Actor string
}

// PropagateResult counts the clinics Propagate wrote and left alone.
type PropagateResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Values is the write path for configuration values.
type Values interface {
	// Set validates and stores a value at exactly req.Scope and records the
	// change. Fails with domain.ErrUnknownKey, domain.ErrInvalidScope,
	// domain.ErrScopeNotAllowed, domain.ErrInvalidValue or
	// domain.ErrValidation; a failed Set leaves neither a value nor a
	// history entry behind.
	Set(ctx context.Context, req SetRequest) (*domain.ConfigValue, error)

	// GetRaw returns the value stored at exactly scope without resolving
	// inheritance, or nil when nothing is stored there.
	GetRaw(ctx context.Context, key string, scope domain.Scope) (*domain.ConfigValue, error)

	// Delete removes the value stored at exactly scope so the scope inherits
	// again, and records the change. Fails with domain.ErrNoSuchValue when
	// nothing is stored there.
	Delete(ctx context.Context, key string, scope domain.Scope, actor, reason string) error

	// Propagate sets req.Value at every clinic of the program. Without
	// Force, clinics storing their own value are skipped.
	Propagate(ctx context.Context, req PropagateRequest) (*PropagateResult, error)

	// Import stores parsed records under a program. Records that fail are
	// reported and do not stop the rest.
	Import(ctx context.Context, programID string, records iter.Seq[ParsedConfig], actor string) (*ImportReport, error)

	// ClearProgram removes every value stored under a program before a
	// reimport, recording a delete for each so history stays complete.
	// Unless KeepStructure is set, the program's providers, locations and
	// clinics go too. The program itself and its history are kept.
	ClearProgram(ctx context.Context, req ClearRequest) (*ClearReport, error)
}

type valuesImpl struct {
	db       *sql.DB
	stores   Stores
	recorder Recorder
	emitter  events.EventEmitter
	logger   *slog.Logger
}

// NewValues creates the value write path. A nil emitter discards change
// events.
func NewValues(
	db *sql.DB,
	stores Stores,
	recorder Recorder,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (Values, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if err := stores.validate(); err != nil {
		return nil, err
	}
	if recorder == nil {
		return nil, domain.NewValidationError("recorder", "cannot be nil", domain.ErrValidation)
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &valuesImpl{
		db:       db,
		stores:   stores,
		recorder: recorder,
		emitter:  emitter,
		logger:   logger.With(slog.String("component", "value_store")),
	}, nil
}

func (v *valuesImpl) Set(ctx context.Context, req SetRequest) (*domain.ConfigValue, error) {
	const op = "set"
	log := logger.FromContextOrDefault(ctx, v.logger)

	def, err := getDefinition(ctx, v.stores.Definitions, op, req.Key)
	if err != nil {
		return nil, err
	}
	if err := checkScope(ctx, v.stores.Hierarchy, op, req.Key, req.Scope); err != nil {
		return nil, err
	}

	level := req.Scope.Level()
	if !def.AppliesTo.Allows(level) {
		return nil, &ConfigError{
			Operation: op,
			Key:       req.Key,
			Scope:     req.Scope,
			Value:     req.Value,
			Message:   fmt.Sprintf("key applies to %s, scope is %s level", def.AppliesTo, level),
			Err:       domain.ErrScopeNotAllowed,
		}
	}

	normalized, err := def.NormalizeValue(req.Value)
	if err != nil {
		return nil, &ConfigError{Operation: op, Key: req.Key, Scope: req.Scope, Value: req.Value, Err: err}
	}

	if req.Source == "" {
		req.Source = domain.SourceManual
	}
	if !req.Source.IsValid() {
		return nil, &ConfigError{
			Operation: op,
			Key:       req.Key,
			Scope:     req.Scope,
			Value:     req.Value,
			Message:   fmt.Sprintf("unknown source %q", req.Source),
			Err:       domain.ErrValidation,
		}
	}
	if req.EffectiveDate != nil && req.ExpiryDate != nil && req.ExpiryDate.Before(*req.EffectiveDate) {
		return nil, &ConfigError{
			Operation: op,
			Key:       req.Key,
			Scope:     req.Scope,
			Value:     req.Value,
			Message:   "expiry date is before effective date",
			Err:       domain.ErrValidation,
		}
	}
	if req.Actor == "" {
		req.Actor = DefaultActor
	}

	var (
		saved *domain.ConfigValue
		entry *domain.HistoryEntry
	)
	err = store.RunInTransaction(ctx, v.db, func(ctx context.Context, tx *sql.Tx) error {
		values := v.stores.Values.WithTx(tx)
		history := v.stores.History.WithTx(tx)

		if err := values.LockScope(ctx, req.Key, req.Scope); err != nil {
			return err
		}
		existing, err := getExact(ctx, values, req.Key, req.Scope)
		if err != nil {
			return err
		}
		chain, err := values.ListChain(ctx, req.Key, req.Scope)
		if err != nil {
			return err
		}
		version, err := nextVersion(ctx, history, existing, req.Key, req.Scope)
		if err != nil {
			return err
		}

		entry = &domain.HistoryEntry{
			Key:            req.Key,
			Scope:          req.Scope,
			OldValue:       valueOf(existing),
			NewValue:       &normalized,
			ChangedBy:      req.Actor,
			Reason:         req.Rationale,
			SourceDocument: req.SourceDocument,
			Version:        version,
		}
		if err := v.recorder.Record(ctx, history, entry); err != nil {
			return err
		}

		row := &domain.ConfigValue{
			Key:            req.Key,
			Scope:          req.Scope,
			Value:          normalized,
			IsOverride:     resolution.NewSnapshot(chain).ShadowsAncestor(req.Key, req.Scope),
			Source:         req.Source,
			SourceDocument: req.SourceDocument,
			Rationale:      req.Rationale,
			EffectiveDate:  req.EffectiveDate,
			ExpiryDate:     req.ExpiryDate,
			Version:        version,
			CreatedBy:      req.Actor,
			CreatedAt:      entry.ChangedAt,
			UpdatedAt:      entry.ChangedAt,
		}
		if err := values.Upsert(ctx, row); err != nil {
			return err
		}
		saved = row
		return refreshOverrides(ctx, values, req.Key, req.Scope)
	})
	if err != nil {
		log.Error("failed to set config value",
			slog.String("error", err.Error()),
			slog.String("config_key", req.Key),
			slog.String("scope", req.Scope.String()))
		return nil, wrapWriteError(op, req.Key, req.Scope, req.Value, err)
	}

	log.Info("config value set",
		slog.String("config_key", req.Key),
		slog.String("scope", req.Scope.String()),
		slog.String("source", string(req.Source)),
		slog.Int("version", saved.Version),
		slog.Bool("is_override", saved.IsOverride))
	v.emit(ctx, entry, req.Source)
	return saved, nil
}

func (v *valuesImpl) GetRaw(ctx context.Context, key string, scope domain.Scope) (*domain.ConfigValue, error) {
	if err := scope.Validate(); err != nil {
		return nil, NewConfigError("get_raw", key, scope, "", err)
	}
	row, err := getExact(ctx, v.stores.Values, key, scope)
	if err != nil {
		return nil, NewConfigError("get_raw", key, scope, "failed to read value", err)
	}
	return row, nil
}

func (v *valuesImpl) Delete(ctx context.Context, key string, scope domain.Scope, actor, reason string) error {
	const op = "delete"
	log := logger.FromContextOrDefault(ctx, v.logger)

	if err := scope.Validate(); err != nil {
		return NewConfigError(op, key, scope, "", err)
	}
	if actor == "" {
		actor = DefaultActor
	}

	var (
		entry  *domain.HistoryEntry
		source domain.Source
	)
	err := store.RunInTransaction(ctx, v.db, func(ctx context.Context, tx *sql.Tx) error {
		values := v.stores.Values.WithTx(tx)
		history := v.stores.History.WithTx(tx)

		if err := values.LockScope(ctx, key, scope); err != nil {
			return err
		}
		existing, err := getExact(ctx, values, key, scope)
		if err != nil {
			return err
		}
		if existing == nil {
			return NewConfigError(op, key, scope, "nothing stored at this exact scope", domain.ErrNoSuchValue)
		}

		entry = &domain.HistoryEntry{
			Key:            key,
			Scope:          scope,
			OldValue:       valueOf(existing),
			ChangedBy:      actor,
			Reason:         reason,
			SourceDocument: existing.SourceDocument,
			Version:        existing.Version,
		}
		if err := v.recorder.Record(ctx, history, entry); err != nil {
			return err
		}
		source = existing.Source
		if err := values.Delete(ctx, key, scope); err != nil {
			return err
		}
		return refreshOverrides(ctx, values, key, scope)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNoSuchValue) {
			log.Error("failed to delete config value",
				slog.String("error", err.Error()),
				slog.String("config_key", key),
				slog.String("scope", scope.String()))
		}
		return wrapWriteError(op, key, scope, "", err)
	}

	log.Info("config value deleted",
		slog.String("config_key", key),
		slog.String("scope", scope.String()),
		slog.String("actor", actor))
	v.emit(ctx, entry, source)
	return nil
}

func (v *valuesImpl) Propagate(ctx context.Context, req PropagateRequest) (*PropagateResult, error) {
	const op = "propagate"
	log := logger.FromContextOrDefault(ctx, v.logger)
	scope := domain.ProgramScope(req.ProgramID)

	def, err := getDefinition(ctx, v.stores.Definitions, op, req.Key)
	if err != nil {
		return nil, err
	}
	if !def.AppliesTo.Allows(domain.LevelClinic) {
		return nil, &ConfigError{
			Operation: op,
			Key:       req.Key,
			Scope:     scope,
			Value:     req.Value,
			Message:   fmt.Sprintf("key applies to %s", def.AppliesTo),
			Err:       domain.ErrScopeNotAllowed,
		}
	}
	clinics, err := v.stores.Hierarchy.ListClinics(ctx, req.ProgramID)
	if err != nil {
		return nil, NewConfigError(op, req.Key, scope, "failed to list clinics", err)
	}

	result := &PropagateResult{}
	for _, clinic := range clinics {
		clinicScope := domain.ClinicScope(req.ProgramID, clinic.ID)
		if !req.Force {
			existing, err := getExact(ctx, v.stores.Values, req.Key, clinicScope)
			if err != nil {
				return result, NewConfigError(op, req.Key, clinicScope, "failed to read value", err)
			}
			if existing != nil {
				result.Skipped++
				continue
			}
		}
		_, err := v.Set(ctx, SetRequest{
			Key:       req.Key,
			Scope:     clinicScope,
			Value:     req.Value,
			Source:    domain.SourcePropagated,
			Rationale: "propagated from program level",
			Actor:     req.Actor,
		})
		if err != nil {
			return result, err
		}
		result.Updated++
	}

	log.Info("config value propagated",
		slog.String("config_key", req.Key),
		slog.String("program_id", req.ProgramID),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

func (v *valuesImpl) emit(ctx context.Context, entry *domain.HistoryEntry, source domain.Source) {
	if err := v.emitter.EmitEvent(ctx, events.NewConfigChangedEvent(*entry, source)); err != nil {
		logger.FromContextOrDefault(ctx, v.logger).Warn("change subscriber failed",
			slog.String("error", err.Error()),
			slog.String("config_key", entry.Key),
			slog.String("scope", entry.Scope.String()))
	}
}

// checkScope verifies that the scope's clinic and location exist and belong
// to their parents.
func checkScope(ctx context.Context, hs store.HierarchyStore, op, key string, scope domain.Scope) error {
	invalid := func(format string, args ...any) error {
		return NewConfigError(op, key, scope, fmt.Sprintf(format, args...), domain.ErrInvalidScope)
	}
	lookupFailed := func(err error) error {
		return NewConfigError(op, key, scope, "failed to read hierarchy", err)
	}

	if err := scope.Validate(); err != nil {
		return NewConfigError(op, key, scope, "", err)
	}
	if _, err := hs.GetProgram(ctx, scope.ProgramID); err != nil {
		if store.IsNotFoundError(err) {
			return invalid("program %s does not exist", scope.ProgramID)
		}
		return lookupFailed(err)
	}
	if scope.ClinicID == "" {
		return nil
	}

	clinic, err := hs.GetClinic(ctx, scope.ClinicID)
	switch {
	case store.IsNotFoundError(err):
		return invalid("clinic %s does not exist", scope.ClinicID)
	case err != nil:
		return lookupFailed(err)
	case clinic.ProgramID != scope.ProgramID:
		return invalid("clinic %s belongs to program %s", clinic.ID, clinic.ProgramID)
	}
	if scope.LocationID == "" {
		return nil
	}

	location, err := hs.GetLocation(ctx, scope.LocationID)
	switch {
	case store.IsNotFoundError(err):
		return invalid("location %s does not exist", scope.LocationID)
	case err != nil:
		return lookupFailed(err)
	case location.ClinicID != scope.ClinicID:
		return invalid("location %s belongs to clinic %s", location.ID, location.ClinicID)
	}
	return nil
}

// refreshOverrides recomputes the stored is_override flag of every value of
// key below scope after the value at scope was written or removed.
func refreshOverrides(ctx context.Context, values store.ValueStore, key string, scope domain.Scope) error {
	rows, err := values.ListByProgram(ctx, scope.ProgramID, key)
	if err != nil {
		return err
	}
	snapshot := resolution.NewSnapshot(rows)
	for _, row := range rows {
		if row.Scope == scope || !row.Scope.Contains(scope) {
			continue
		}
		shadows := snapshot.ShadowsAncestor(key, row.Scope)
		if shadows == row.IsOverride {
			continue
		}
		if err := values.SetOverride(ctx, key, row.Scope, shadows); err != nil {
			return err
		}
	}
	return nil
}

// getExact returns nil without an error when nothing is stored at scope.
func getExact(ctx context.Context, values store.ValueStore, key string, scope domain.Scope) (*domain.ConfigValue, error) {
	row, err := values.Get(ctx, key, scope)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

// nextVersion continues the version sequence of key at scope across deletes.
func nextVersion(
	ctx context.Context,
	history store.HistoryStore,
	existing *domain.ConfigValue,
	key string,
	scope domain.Scope,
) (int, error) {
	version := 0
	if existing != nil {
		version = existing.Version
	}
	latest, err := history.Latest(ctx, key, scope)
	switch {
	case err == nil:
		version = max(version, latest.Version)
	case !store.IsNotFoundError(err):
		return 0, err
	}
	return version + 1, nil
}

func valueOf(row *domain.ConfigValue) *string {
	if row == nil {
		return nil
	}
	value := row.Value
	return &value
}

func wrapWriteError(op, key string, scope domain.Scope, value string, err error) error {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return err
	}
	return &ConfigError{
		Operation: op,
		Key:       key,
		Scope:     scope,
		Value:     value,
		Message:   "failed to store change",
		Err:       err,
	}
}
