package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/store"
)

const providerColumns = `p.provider_id, p.location_id, p.name, p.npi, p.role, p.specialty, p.active,
	p.deactivated_at, p.deactivation_reason, p.created_at, p.updated_at`

// ProviderStore implements store.ProviderStore.
type ProviderStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var _ store.ProviderStore = (*ProviderStore)(nil)

// NewProviderStore creates a ProviderStore over a connection or transaction
// managed by the caller.
func NewProviderStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *ProviderStore {
	logger = checkDeps(db, dialect, logger)
	return &ProviderStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "provider_store")),
	}
}

// WithTx implements store.ProviderStore.
func (s *ProviderStore) WithTx(tx *sql.Tx) store.ProviderStore {
	return &ProviderStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// Create implements store.ProviderStore.
func (s *ProviderStore) Create(ctx context.Context, p *domain.Provider) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := p.Validate(); err != nil {
		log.Warn("provider validation failed during create",
			slog.String("error", err.Error()),
			slog.String("location_id", p.LocationID))
		return err
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	p.Active = true

	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`INSERT INTO providers (location_id, name, npi, role, specialty, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING provider_id`),
		p.LocationID, p.Name, p.NPI, p.Role, p.Specialty, p.Active,
		s.dialect.TimeArg(p.CreatedAt), s.dialect.TimeArg(p.UpdatedAt),
	).Scan(&p.ID)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to create provider",
			slog.String("error", err.Error()),
			slog.String("location_id", p.LocationID))
		return err
	}
	log.Debug("provider created",
		slog.Int64("provider_id", p.ID),
		slog.String("location_id", p.LocationID))
	return nil
}

// Get implements store.ProviderStore.
func (s *ProviderStore) Get(ctx context.Context, id int64) (*domain.Provider, error) {
	return s.getOne(ctx, `WHERE p.provider_id = ?`, id)
}

// FindActive implements store.ProviderStore.
func (s *ProviderStore) FindActive(ctx context.Context, locationID, name string) (*domain.Provider, error) {
	return s.getOne(ctx, `WHERE p.location_id = ? AND p.name = ? AND p.active = ?`, locationID, name, true)
}

// Update implements store.ProviderStore.
func (s *ProviderStore) Update(ctx context.Context, p *domain.Provider) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`UPDATE providers SET name = ?, npi = ?, role = ?, specialty = ?, updated_at = ?
		WHERE provider_id = ?`),
		p.Name, p.NPI, p.Role, p.Specialty, s.dialect.TimeArg(p.UpdatedAt), p.ID)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to update provider",
			slog.String("error", err.Error()),
			slog.Int64("provider_id", p.ID))
		return err
	}
	return checkRowsAffected(result, store.ErrProviderNotFound)
}

// Deactivate implements store.ProviderStore.
func (s *ProviderStore) Deactivate(ctx context.Context, id int64, reason string, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`UPDATE providers SET active = ?, deactivated_at = ?, deactivation_reason = ?, updated_at = ?
		WHERE provider_id = ?`),
		false, s.dialect.TimeArg(at), reason, s.dialect.TimeArg(at), id)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to deactivate provider",
			slog.String("error", err.Error()),
			slog.Int64("provider_id", id))
		return err
	}
	return checkRowsAffected(result, store.ErrProviderNotFound)
}

// List implements store.ProviderStore.
func (s *ProviderStore) List(ctx context.Context, filter store.ProviderFilter) ([]*domain.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers p
		JOIN locations l ON l.location_id = p.location_id
		JOIN clinics c ON c.clinic_id = l.clinic_id
		WHERE 1 = 1`
	var args []any
	switch {
	case filter.LocationID != "":
		query += ` AND p.location_id = ?`
		args = append(args, filter.LocationID)
	case filter.ClinicID != "":
		query += ` AND l.clinic_id = ?`
		args = append(args, filter.ClinicID)
	}
	if filter.ProgramID != "" {
		query += ` AND c.program_id = ?`
		args = append(args, filter.ProgramID)
	}
	if filter.ActiveOnly {
		query += ` AND p.active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY p.name, p.provider_id`

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, s.dialect.MapError(err)
	}
	return collect(rows, s.dialect, scanProvider)
}

// DeleteByProgram implements store.ProviderStore.
func (s *ProviderStore) DeleteByProgram(ctx context.Context, programID string) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM providers WHERE location_id IN (
			SELECT l.location_id FROM locations l JOIN clinics c ON c.clinic_id = l.clinic_id
			WHERE c.program_id = ?)`), programID)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to delete program providers",
			slog.String("error", err.Error()),
			slog.String("program_id", programID))
		return 0, err
	}
	return rowsAffected(result)
}

func (s *ProviderStore) getOne(ctx context.Context, where string, args ...any) (*domain.Provider, error) {
	row := s.db.QueryRowContext(ctx,
		s.dialect.Rebind(`SELECT `+providerColumns+` FROM providers p `+where), args...)
	p, err := scanProvider(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProviderNotFound
		}
		return nil, s.dialect.MapError(err)
	}
	return p, nil
}

func scanProvider(row rowScanner) (*domain.Provider, error) {
	var (
		p                         domain.Provider
		deactivated, created, upd nullTime
	)
	if err := row.Scan(&p.ID, &p.LocationID, &p.Name, &p.NPI, &p.Role, &p.Specialty, &p.Active,
		&deactivated, &p.DeactivationReason, &created, &upd); err != nil {
		return nil, err
	}
	p.DeactivatedAt = deactivated.ptr()
	p.CreatedAt = created.Time
	p.UpdatedAt = upd.Time
	return &p, nil
}
