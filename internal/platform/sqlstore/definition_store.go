package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/store"
)

const definitionColumns = `config_key, category, display_name, description, data_type,
	allowed_values, default_value, validation_rule, applies_to, is_required,
	position, created_at, updated_at`

// DefinitionStore implements store.DefinitionStore.
type DefinitionStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var _ store.DefinitionStore = (*DefinitionStore)(nil)

// NewDefinitionStore creates a DefinitionStore over a connection or
// transaction managed by the caller. If logger is nil, slog.Default() is
// used.
func NewDefinitionStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *DefinitionStore {
	logger = checkDeps(db, dialect, logger)
	return &DefinitionStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "definition_store")),
	}
}

// WithTx implements store.DefinitionStore.
func (s *DefinitionStore) WithTx(tx *sql.Tx) store.DefinitionStore {
	return &DefinitionStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// Create implements store.DefinitionStore.
func (s *DefinitionStore) Create(ctx context.Context, def *domain.Definition) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	allowed, err := encodeAllowed(def.AllowedValues)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	query := s.dialect.Rebind(`
		INSERT INTO config_definitions (
			config_key, category, display_name, description, data_type,
			allowed_values, default_value, validation_rule, applies_to, is_required,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING position`)

	var position int64
	err = s.db.QueryRowContext(ctx, query,
		def.Key, def.Category, def.DisplayName, def.Description, string(def.DataType),
		allowed, optString(def.DefaultValue), def.ValidationRule, string(def.AppliesTo), def.IsRequired,
		s.dialect.TimeArg(now), s.dialect.TimeArg(now),
	).Scan(&position)
	if err != nil {
		err = specific(s.dialect.MapError(err), store.ErrDuplicate, store.ErrKeyExists)
		log.Error("failed to create definition",
			slog.String("error", err.Error()),
			slog.String("config_key", def.Key))
		return err
	}

	def.Position = position
	def.CreatedAt = now
	def.UpdatedAt = now
	log.Debug("definition created",
		slog.String("config_key", def.Key),
		slog.Int64("position", position))
	return nil
}

// Update implements store.DefinitionStore.
func (s *DefinitionStore) Update(ctx context.Context, def *domain.Definition) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	allowed, err := encodeAllowed(def.AllowedValues)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	query := s.dialect.Rebind(`
		UPDATE config_definitions
		SET category = ?, display_name = ?, description = ?, data_type = ?,
			allowed_values = ?, default_value = ?, validation_rule = ?, applies_to = ?,
			is_required = ?, updated_at = ?
		WHERE config_key = ?`)

	result, err := s.db.ExecContext(ctx, query,
		def.Category, def.DisplayName, def.Description, string(def.DataType),
		allowed, optString(def.DefaultValue), def.ValidationRule, string(def.AppliesTo),
		def.IsRequired, s.dialect.TimeArg(now), def.Key,
	)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to update definition",
			slog.String("error", err.Error()),
			slog.String("config_key", def.Key))
		return err
	}
	if err := checkRowsAffected(result, store.ErrDefinitionNotFound); err != nil {
		return err
	}

	def.UpdatedAt = now
	log.Debug("definition updated", slog.String("config_key", def.Key))
	return nil
}

// Get implements store.DefinitionStore.
func (s *DefinitionStore) Get(ctx context.Context, key string) (*domain.Definition, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`SELECT ` + definitionColumns + ` FROM config_definitions WHERE config_key = ?`)
	def, err := scanDefinition(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrDefinitionNotFound
		}
		err = s.dialect.MapError(err)
		log.Error("failed to get definition",
			slog.String("error", err.Error()),
			slog.String("config_key", key))
		return nil, err
	}
	return def, nil
}

// List implements store.DefinitionStore.
func (s *DefinitionStore) List(ctx context.Context, category string) ([]*domain.Definition, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + definitionColumns + ` FROM config_definitions`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY position`

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to list definitions",
			slog.String("error", err.Error()),
			slog.String("category", category))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, s.dialect.MapError(err)
		}
		out = append(out, def)
	}
	if err := rows.Err(); err != nil {
		return nil, s.dialect.MapError(err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*domain.Definition, error) {
	var (
		def       domain.Definition
		dataType  string
		appliesTo string
		allowed   sql.NullString
		defValue  sql.NullString
		created   nullTime
		updated   nullTime
	)
	err := row.Scan(
		&def.Key, &def.Category, &def.DisplayName, &def.Description, &dataType,
		&allowed, &defValue, &def.ValidationRule, &appliesTo, &def.IsRequired,
		&def.Position, &created, &updated,
	)
	if err != nil {
		return nil, err
	}

	def.DataType = domain.DataType(dataType)
	def.AppliesTo = domain.AppliesTo(appliesTo)
	def.DefaultValue = stringPtr(defValue)
	def.CreatedAt = created.Time
	def.UpdatedAt = updated.Time
	if allowed.Valid && allowed.String != "" {
		if err := json.Unmarshal([]byte(allowed.String), &def.AllowedValues); err != nil {
			return nil, fmt.Errorf("decode allowed_values for %s: %w", def.Key, err)
		}
	}
	return &def, nil
}

func encodeAllowed(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode allowed_values: %w", err)
	}
	return string(raw), nil
}
