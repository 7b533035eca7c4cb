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

const historyColumns = `seq, config_key, program_id, clinic_id, location_id, old_value, new_value,
	changed_by, changed_at, reason, source_document, version`

// HistoryStore implements store.HistoryStore.
type HistoryStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var _ store.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates a HistoryStore over a connection or transaction
// managed by the caller.
func NewHistoryStore(db store.DBTX, dialect Dialect, logger *slog.Logger) *HistoryStore {
	logger = checkDeps(db, dialect, logger)
	return &HistoryStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "history_store")),
	}
}

// WithTx implements store.HistoryStore.
func (s *HistoryStore) WithTx(tx *sql.Tx) store.HistoryStore {
	return &HistoryStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// Append implements store.HistoryStore.
func (s *HistoryStore) Append(ctx context.Context, e *domain.HistoryEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.Rebind(`
		INSERT INTO config_history (
			config_key, program_id, clinic_id, location_id, old_value, new_value,
			changed_by, changed_at, reason, source_document, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq`)

	err := s.db.QueryRowContext(ctx, query,
		e.Key, e.Scope.ProgramID, e.Scope.ClinicID, e.Scope.LocationID,
		optString(e.OldValue), optString(e.NewValue),
		e.ChangedBy, s.dialect.TimeArg(e.ChangedAt), e.Reason, e.SourceDocument, e.Version,
	).Scan(&e.Seq)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to append history entry",
			slog.String("error", err.Error()),
			slog.String("config_key", e.Key),
			slog.String("scope", e.Scope.String()))
		return err
	}
	return nil
}

// Latest implements store.HistoryStore.
func (s *HistoryStore) Latest(ctx context.Context, key string, scope domain.Scope) (*domain.HistoryEntry, error) {
	query := s.dialect.Rebind(`SELECT ` + historyColumns + ` FROM config_history
		WHERE config_key = ? AND program_id = ? AND clinic_id = ? AND location_id = ?
		ORDER BY changed_at DESC, seq DESC
		LIMIT 1`)
	e, err := scanHistory(s.db.QueryRowContext(ctx, query,
		key, scope.ProgramID, scope.ClinicID, scope.LocationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, s.dialect.MapError(err)
	}
	return e, nil
}

// Page implements store.HistoryStore.
func (s *HistoryStore) Page(ctx context.Context, q store.HistoryQuery) ([]domain.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM config_history
		WHERE config_key = ? AND program_id = ? AND clinic_id = ? AND location_id = ?`
	args := []any{q.Key, q.Scope.ProgramID, q.Scope.ClinicID, q.Scope.LocationID}

	if !q.Since.IsZero() {
		query += ` AND changed_at >= ?`
		args = append(args, s.dialect.TimeArg(q.Since))
	}
	if q.After != nil {
		at := s.dialect.TimeArg(q.After.ChangedAt)
		query += ` AND (changed_at < ? OR (changed_at = ? AND seq < ?))`
		args = append(args, at, at, q.After.Seq)
	}
	query += ` ORDER BY changed_at DESC, seq DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	return s.list(ctx, query, args...)
}

// ListByProgram implements store.HistoryStore.
func (s *HistoryStore) ListByProgram(ctx context.Context, programID string, since, until time.Time) ([]domain.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM config_history WHERE program_id = ?`
	args := []any{programID}
	if !since.IsZero() {
		query += ` AND changed_at >= ?`
		args = append(args, s.dialect.TimeArg(since))
	}
	if !until.IsZero() {
		query += ` AND changed_at < ?`
		args = append(args, s.dialect.TimeArg(until))
	}
	query += ` ORDER BY changed_at DESC, seq DESC`

	return s.list(ctx, query, args...)
}

func (s *HistoryStore) list(ctx context.Context, query string, args ...any) ([]domain.HistoryEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		err = s.dialect.MapError(err)
		log.Error("failed to query history", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.HistoryEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, s.dialect.MapError(err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.dialect.MapError(err)
	}
	return out, nil
}

func scanHistory(row rowScanner) (*domain.HistoryEntry, error) {
	var (
		e        domain.HistoryEntry
		oldValue sql.NullString
		newValue sql.NullString
		changed  nullTime
	)
	err := row.Scan(
		&e.Seq, &e.Key, &e.Scope.ProgramID, &e.Scope.ClinicID, &e.Scope.LocationID,
		&oldValue, &newValue, &e.ChangedBy, &changed, &e.Reason, &e.SourceDocument, &e.Version,
	)
	if err != nil {
		return nil, err
	}
	e.OldValue = stringPtr(oldValue)
	e.NewValue = stringPtr(newValue)
	e.ChangedAt = changed.Time
	return &e, nil
}
