package service

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/store"
)

// DefaultActor is recorded when a mutation names no actor.
const DefaultActor = "system"

// DefaultHistoryPageSize is used when NewRecorder gets a non-positive size.
const DefaultHistoryPageSize = 100

// Recorder appends and reads the audit trail of value mutations.
type Recorder interface {
	// Record appends entry through history, which is normally bound to the
	// transaction of the mutation. ChangedAt is assigned so entries of the
	// same key and scope are strictly ordered. Storage errors are returned
	// as they are.
	Record(ctx context.Context, history store.HistoryStore, entry *domain.HistoryEntry) error

	// History yields the entries of key at exactly scope, newest first,
	// fetching pages lazily. A zero since means the whole history. Each
	// range over the sequence queries from the start again.
	History(ctx context.Context, key string, scope domain.Scope, since time.Time) iter.Seq2[domain.HistoryEntry, error]

	// ProgramChanges returns every entry under a program changed within
	// [since, until), newest first.
	ProgramChanges(ctx context.Context, programID string, since, until time.Time) ([]domain.HistoryEntry, error)
}

type recorderImpl struct {
	history  store.HistoryStore
	pageSize int
	now      func() time.Time
	logger   *slog.Logger
}

// NewRecorder creates a Recorder reading from history in pages of pageSize.
func NewRecorder(history store.HistoryStore, pageSize int, logger *slog.Logger) (Recorder, error) {
	return newRecorder(history, pageSize, time.Now, logger)
}

func newRecorder(history store.HistoryStore, pageSize int, now func() time.Time, logger *slog.Logger) (*recorderImpl, error) {
	if history == nil {
		return nil, domain.NewValidationError("history", "cannot be nil", domain.ErrValidation)
	}
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &recorderImpl{
		history:  history,
		pageSize: pageSize,
		now:      now,
		logger:   logger.With(slog.String("component", "change_recorder")),
	}, nil
}

func (r *recorderImpl) Record(ctx context.Context, history store.HistoryStore, entry *domain.HistoryEntry) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if entry.ChangedBy == "" {
		entry.ChangedBy = DefaultActor
	}

	// Stored timestamps keep microseconds, so that is the unit of
	// monotonicity.
	changedAt := r.now().UTC().Truncate(time.Microsecond)
	latest, err := history.Latest(ctx, entry.Key, entry.Scope)
	switch {
	case err == nil:
		if !changedAt.After(latest.ChangedAt) {
			changedAt = latest.ChangedAt.Add(time.Microsecond)
		}
	case !store.IsNotFoundError(err):
		log.Error("failed to read latest history entry",
			slog.String("error", err.Error()),
			slog.String("config_key", entry.Key),
			slog.String("scope", entry.Scope.String()))
		return err
	}
	entry.ChangedAt = changedAt

	if err := history.Append(ctx, entry); err != nil {
		return err
	}

	log.Debug("history entry recorded",
		slog.String("config_key", entry.Key),
		slog.String("scope", entry.Scope.String()),
		slog.String("action", entry.Action()),
		slog.Int("version", entry.Version),
		slog.Int64("seq", entry.Seq))
	return nil
}

func (r *recorderImpl) History(
	ctx context.Context,
	key string,
	scope domain.Scope,
	since time.Time,
) iter.Seq2[domain.HistoryEntry, error] {
	return func(yield func(domain.HistoryEntry, error) bool) {
		q := store.HistoryQuery{Key: key, Scope: scope, Since: since, Limit: r.pageSize}
		for {
			page, err := r.history.Page(ctx, q)
			if err != nil {
				yield(domain.HistoryEntry{}, NewConfigError("history", key, scope, "failed to read history", err))
				return
			}
			for _, entry := range page {
				if !yield(entry, nil) {
					return
				}
			}
			if len(page) < q.Limit {
				return
			}
			last := page[len(page)-1]
			q.After = &store.HistoryCursor{ChangedAt: last.ChangedAt, Seq: last.Seq}
		}
	}
}

func (r *recorderImpl) ProgramChanges(
	ctx context.Context,
	programID string,
	since, until time.Time,
) ([]domain.HistoryEntry, error) {
	entries, err := r.history.ListByProgram(ctx, programID, since, until)
	if err != nil {
		return nil, NewConfigError("program_changes", "", domain.ProgramScope(programID),
			"failed to read history", err)
	}
	return entries, nil
}
