package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/store"
)

const valueColumns = `id, config_key, program_id, clinic_id, location_id, value, is_override,
	source, source_document, rationale, effective_date, expiry_date, version,
	created_by, created_at, updated_at`

// ValueStore implements store.ValueStore.
type ValueStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var _ store.ValueStore = (*ValueStore)(nil)

// NewValueStore creates a ValueStore over a connection or transaction
// managed by the caller.
func NewValueStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *ValueStore {
	logger = checkDeps(db, dialect, logger)
	return &ValueStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "value_store")),
	}
}

// WithTx implements store.ValueStore.
func (s *ValueStore) WithTx(tx *sql.Tx) store.ValueStore {
	return &ValueStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// Get implements store.ValueStore.
func (s *ValueStore) Get(ctx context.Context, key string, scope domain.Scope) (*domain.ConfigValue, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`SELECT ` + valueColumns + ` FROM config_values
		WHERE config_key = ? AND program_id = ? AND clinic_id = ? AND location_id = ?`)
	v, err := scanValue(s.db.QueryRowContext(ctx, query,
		key, scope.ProgramID, scope.ClinicID, scope.LocationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrValueNotFound
		}
		err = s.dialect.MapError(err)
		log.Error("failed to get config value",
			slog.String("error", err.Error()),
			slog.String("config_key", key),
			slog.String("scope", scope.String()))
		return nil, err
	}
	return v, nil
}

// Upsert implements store.ValueStore.
func (s *ValueStore) Upsert(ctx context.Context, v *domain.ConfigValue) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := v.Validate(); err != nil {
		log.Warn("config value validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("config_key", v.Key))
		return err
	}

	query := s.dialect.Rebind(`
		INSERT INTO config_values (
			config_key, program_id, clinic_id, location_id, value, is_override,
			source, source_document, rationale, effective_date, expiry_date, version,
			created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (config_key, program_id, clinic_id, location_id) DO UPDATE SET
			value = excluded.value,
			is_override = excluded.is_override,
			source = excluded.source,
			source_document = excluded.source_document,
			rationale = excluded.rationale,
			effective_date = excluded.effective_date,
			expiry_date = excluded.expiry_date,
			version = excluded.version,
			updated_at = excluded.updated_at
		RETURNING id, created_by, created_at`)

	var created nullTime
	err := s.db.QueryRowContext(ctx, query,
		v.Key, v.Scope.ProgramID, v.Scope.ClinicID, v.Scope.LocationID, v.Value, v.IsOverride,
		string(v.Source), v.SourceDocument, v.Rationale,
		optTime(s.dialect, v.EffectiveDate), optTime(s.dialect, v.ExpiryDate), v.Version,
		v.CreatedBy, s.dialect.TimeArg(v.CreatedAt), s.dialect.TimeArg(v.UpdatedAt),
	).Scan(&v.ID, &v.CreatedBy, &created)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to upsert config value",
			slog.String("error", err.Error()),
			slog.String("config_key", v.Key),
			slog.String("scope", v.Scope.String()))
		return err
	}
	v.CreatedAt = created.Time

	log.Debug("config value stored",
		slog.String("config_key", v.Key),
		slog.String("scope", v.Scope.String()),
		slog.Int("version", v.Version))
	return nil
}

// Delete implements store.ValueStore.
func (s *ValueStore) Delete(ctx context.Context, key string, scope domain.Scope) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`DELETE FROM config_values
		WHERE config_key = ? AND program_id = ? AND clinic_id = ? AND location_id = ?`)
	result, err := s.db.ExecContext(ctx, query, key, scope.ProgramID, scope.ClinicID, scope.LocationID)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to delete config value",
			slog.String("error", err.Error()),
			slog.String("config_key", key),
			slog.String("scope", scope.String()))
		return err
	}
	return checkRowsAffected(result, store.ErrValueNotFound)
}

// SetOverride implements store.ValueStore.
func (s *ValueStore) SetOverride(ctx context.Context, key string, scope domain.Scope, isOverride bool) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`UPDATE config_values SET is_override = ?
		WHERE config_key = ? AND program_id = ? AND clinic_id = ? AND location_id = ?`)
	result, err := s.db.ExecContext(ctx, query,
		isOverride, key, scope.ProgramID, scope.ClinicID, scope.LocationID)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to update override flag",
			slog.String("error", err.Error()),
			slog.String("config_key", key),
			slog.String("scope", scope.String()))
		return err
	}
	return checkRowsAffected(result, store.ErrValueNotFound)
}

// ListChain implements store.ValueStore.
func (s *ValueStore) ListChain(ctx context.Context, key string, scope domain.Scope) ([]*domain.ConfigValue, error) {
	query := `SELECT ` + valueColumns + ` FROM config_values
		WHERE program_id = ? AND clinic_id IN ('', ?) AND location_id IN ('', ?)`
	args := []any{scope.ProgramID, scope.ClinicID, scope.LocationID}
	if key != "" {
		query += ` AND config_key = ?`
		args = append(args, key)
	}
	query += ` ORDER BY config_key, clinic_id, location_id`
	return s.list(ctx, "list chain", query, args...)
}

// ListByProgram implements store.ValueStore.
func (s *ValueStore) ListByProgram(ctx context.Context, programID, key string) ([]*domain.ConfigValue, error) {
	query := `SELECT ` + valueColumns + ` FROM config_values WHERE program_id = ?`
	args := []any{programID}
	if key != "" {
		query += ` AND config_key = ?`
		args = append(args, key)
	}
	query += ` ORDER BY config_key, clinic_id, location_id`
	return s.list(ctx, "list by program", query, args...)
}

// LockScope implements store.ValueStore.
func (s *ValueStore) LockScope(ctx context.Context, key string, scope domain.Scope) error {
	lockKey := key + "|" + scope.ProgramID + "|" + scope.ClinicID + "|" + scope.LocationID
	if err := s.dialect.LockScope(ctx, s.db, lockKey); err != nil {
		return s.dialect.MapError(err)
	}
	return nil
}

func (s *ValueStore) list(ctx context.Context, op, query string, args ...any) ([]*domain.ConfigValue, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to "+op, slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.ConfigValue
	for rows.Next() {
		v, err := scanValue(rows)
		if err != nil {
			return nil, s.dialect.MapError(err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.dialect.MapError(err)
	}
	return out, nil
}

func scanValue(row rowScanner) (*domain.ConfigValue, error) {
	var (
		v                 domain.ConfigValue
		source            string
		effective, expiry nullTime
		created, updated  nullTime
	)
	err := row.Scan(
		&v.ID, &v.Key, &v.Scope.ProgramID, &v.Scope.ClinicID, &v.Scope.LocationID, &v.Value, &v.IsOverride,
		&source, &v.SourceDocument, &v.Rationale, &effective, &expiry, &v.Version,
		&v.CreatedBy, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	v.Source = domain.Source(source)
	v.EffectiveDate = effective.ptr()
	v.ExpiryDate = expiry.ptr()
	v.CreatedAt = created.Time
	v.UpdatedAt = updated.Time
	return &v, nil
}
