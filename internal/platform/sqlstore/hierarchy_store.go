package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/store"
)

// likeEscaper escapes LIKE wildcards so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// HierarchyStore implements store.HierarchyStore.
type HierarchyStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var _ store.HierarchyStore = (*HierarchyStore)(nil)

// NewHierarchyStore creates a HierarchyStore over a connection or
// transaction managed by the caller.
func NewHierarchyStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *HierarchyStore {
	logger = checkDeps(db, dialect, logger)
	return &HierarchyStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "hierarchy_store")),
	}
}

// WithTx implements store.HierarchyStore.
func (s *HierarchyStore) WithTx(tx *sql.Tx) store.HierarchyStore {
	return &HierarchyStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// CreateProgram implements store.HierarchyStore.
func (s *HierarchyStore) CreateProgram(ctx context.Context, p *domain.Program) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return s.exec(ctx, "create program", p.ID,
		`INSERT INTO programs (program_id, name, prefix, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Prefix, s.dialect.TimeArg(p.CreatedAt))
}

// CreateClinic implements store.HierarchyStore.
func (s *HierarchyStore) CreateClinic(ctx context.Context, c *domain.Clinic) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return s.exec(ctx, "create clinic", c.ID,
		`INSERT INTO clinics (clinic_id, program_id, name, code, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ProgramID, c.Name, c.Code, s.dialect.TimeArg(c.CreatedAt))
}

// CreateLocation implements store.HierarchyStore.
func (s *HierarchyStore) CreateLocation(ctx context.Context, l *domain.Location) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return s.exec(ctx, "create location", l.ID,
		`INSERT INTO locations (location_id, clinic_id, name, code, active, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.ClinicID, l.Name, l.Code, l.Active, s.dialect.TimeArg(l.CreatedAt))
}

// GetProgram implements store.HierarchyStore.
func (s *HierarchyStore) GetProgram(ctx context.Context, id string) (*domain.Program, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT program_id, name, prefix, created_at FROM programs WHERE program_id = ?`), id)
	p, err := scanProgram(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProgramNotFound
		}
		return nil, s.dialect.MapError(err)
	}
	return p, nil
}

// GetClinic implements store.HierarchyStore.
func (s *HierarchyStore) GetClinic(ctx context.Context, id string) (*domain.Clinic, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT clinic_id, program_id, name, code, created_at FROM clinics WHERE clinic_id = ?`), id)
	c, err := scanClinic(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrClinicNotFound
		}
		return nil, s.dialect.MapError(err)
	}
	return c, nil
}

// GetLocation implements store.HierarchyStore.
func (s *HierarchyStore) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT location_id, clinic_id, name, code, active, created_at FROM locations WHERE location_id = ?`), id)
	l, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrLocationNotFound
		}
		return nil, s.dialect.MapError(err)
	}
	return l, nil
}

// ListPrograms implements store.HierarchyStore.
func (s *HierarchyStore) ListPrograms(ctx context.Context) ([]*domain.Program, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT program_id, name, prefix, created_at FROM programs ORDER BY name, program_id`)
	if err != nil {
		return nil, s.dialect.MapError(err)
	}
	return collect(rows, s.dialect, scanProgram)
}

// ListClinics implements store.HierarchyStore.
func (s *HierarchyStore) ListClinics(ctx context.Context, programID string) ([]*domain.Clinic, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT clinic_id, program_id, name, code, created_at FROM clinics
		WHERE program_id = ? ORDER BY name, clinic_id`), programID)
	if err != nil {
		return nil, s.dialect.MapError(err)
	}
	return collect(rows, s.dialect, scanClinic)
}

// ListLocations implements store.HierarchyStore.
func (s *HierarchyStore) ListLocations(ctx context.Context, programID string) ([]*domain.Location, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT l.location_id, l.clinic_id, l.name, l.code, l.active, l.created_at
		FROM locations l JOIN clinics c ON c.clinic_id = l.clinic_id
		WHERE c.program_id = ? ORDER BY c.name, l.clinic_id, l.name, l.location_id`), programID)
	if err != nil {
		return nil, s.dialect.MapError(err)
	}
	return collect(rows, s.dialect, scanLocation)
}

// FindProgram implements store.HierarchyStore.
func (s *HierarchyStore) FindProgram(ctx context.Context, identifier string) (*domain.Program, error) {
	const columns = `SELECT program_id, name, prefix, created_at FROM programs `
	attempts := []struct {
		where string
		arg   string
	}{
		{`WHERE prefix = ?`, identifier},
		{`WHERE name = ?`, identifier},
		{`WHERE LOWER(name) LIKE LOWER(?) ESCAPE '\'`, "%" + likeEscaper.Replace(identifier) + "%"},
	}
	for _, a := range attempts {
		row := s.db.QueryRowContext(ctx,
			s.dialect.Rebind(columns+a.where+` ORDER BY name, program_id LIMIT 1`), a.arg)
		p, err := scanProgram(row)
		switch {
		case err == nil:
			return p, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, s.dialect.MapError(err)
		}
	}
	return nil, store.ErrProgramNotFound
}

// AttachProgram implements store.HierarchyStore.
func (s *HierarchyStore) AttachProgram(ctx context.Context, rel *domain.ProgramRelationship) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`INSERT INTO program_relationships (parent_program_id, attached_program_id, relationship_type, created_at)
		VALUES (?, ?, ?, ?) RETURNING relationship_id`),
		rel.ParentProgramID, rel.AttachedProgramID, string(rel.Type), s.dialect.TimeArg(rel.CreatedAt),
	).Scan(&rel.ID)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to attach program",
			slog.String("error", err.Error()),
			slog.String("parent_program_id", rel.ParentProgramID),
			slog.String("attached_program_id", rel.AttachedProgramID))
		return err
	}
	return nil
}

// ListAttachedPrograms implements store.HierarchyStore.
func (s *HierarchyStore) ListAttachedPrograms(ctx context.Context, programID string) ([]*domain.AttachedProgram, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT p.program_id, p.name, p.prefix, p.created_at, r.relationship_type
		FROM program_relationships r JOIN programs p ON p.program_id = r.attached_program_id
		WHERE r.parent_program_id = ? ORDER BY p.name, p.program_id`), programID)
	if err != nil {
		return nil, s.dialect.MapError(err)
	}
	return collect(rows, s.dialect, func(row rowScanner) (*domain.AttachedProgram, error) {
		var (
			a       domain.AttachedProgram
			relType string
			created nullTime
		)
		if err := row.Scan(&a.ID, &a.Name, &a.Prefix, &created, &relType); err != nil {
			return nil, err
		}
		a.CreatedAt = created.Time
		a.RelationshipType = domain.RelationshipType(relType)
		return &a, nil
	})
}

// DeleteLocations implements store.HierarchyStore.
func (s *HierarchyStore) DeleteLocations(ctx context.Context, programID string) (int, error) {
	return s.deleteAll(ctx, "delete locations", programID,
		`DELETE FROM locations WHERE clinic_id IN (SELECT clinic_id FROM clinics WHERE program_id = ?)`)
}

// DeleteClinics implements store.HierarchyStore.
func (s *HierarchyStore) DeleteClinics(ctx context.Context, programID string) (int, error) {
	return s.deleteAll(ctx, "delete clinics", programID, `DELETE FROM clinics WHERE program_id = ?`)
}

// SetLocationActive implements store.HierarchyStore.
func (s *HierarchyStore) SetLocationActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`UPDATE locations SET active = ? WHERE location_id = ?`), active, id)
	if err != nil {
		return s.dialect.MapError(err)
	}
	return checkRowsAffected(result, store.ErrLocationNotFound)
}

func (s *HierarchyStore) exec(ctx context.Context, op, id, query string, args ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, s.dialect.Rebind(query), args...); err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to "+op,
			slog.String("error", err.Error()),
			slog.String("id", id))
		return err
	}
	log.Debug(op, slog.String("id", id))
	return nil
}

func (s *HierarchyStore) deleteAll(ctx context.Context, op, programID, query string) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, s.dialect.Rebind(query), programID)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to "+op,
			slog.String("error", err.Error()),
			slog.String("program_id", programID))
		return 0, err
	}
	return rowsAffected(result)
}

func collect[T any](rows *sql.Rows, d Dialect, scan func(rowScanner) (*T, error)) ([]*T, error) {
	defer func() { _ = rows.Close() }()

	var out []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, d.MapError(err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, d.MapError(err)
	}
	return out, nil
}

func scanProgram(row rowScanner) (*domain.Program, error) {
	var (
		p       domain.Program
		created nullTime
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Prefix, &created); err != nil {
		return nil, err
	}
	p.CreatedAt = created.Time
	return &p, nil
}

func scanClinic(row rowScanner) (*domain.Clinic, error) {
	var (
		c       domain.Clinic
		created nullTime
	)
	if err := row.Scan(&c.ID, &c.ProgramID, &c.Name, &c.Code, &created); err != nil {
		return nil, err
	}
	c.CreatedAt = created.Time
	return &c, nil
}

func scanLocation(row rowScanner) (*domain.Location, error) {
	var (
		l       domain.Location
		created nullTime
	)
	if err := row.Scan(&l.ID, &l.ClinicID, &l.Name, &l.Code, &l.Active, &created); err != nil {
		return nil, err
	}
	l.CreatedAt = created.Time
	return &l, nil
}
