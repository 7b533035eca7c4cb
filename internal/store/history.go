package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/hierconf/internal/domain"
)

// HistoryCursor marks a position in newest-first history order.
type HistoryCursor struct {
	ChangedAt time.Time
	Seq       int64
}

// HistoryQuery selects one page of a key's history at one scope.
type HistoryQuery struct {
	Key   string
	Scope domain.Scope
	// Since excludes entries changed before it. Zero means no bound.
	Since time.Time
	// After resumes strictly after the given position. Nil starts at the
	// newest entry.
	After *HistoryCursor
	Limit int
}

// HistoryStore is the append-only audit log of value mutations.
type HistoryStore interface {
	// Append writes an entry and sets its Seq.
	Append(ctx context.Context, entry *domain.HistoryEntry) error

	// Latest returns the newest entry for key at exactly scope.
	// Returns ErrNotFound if the key has never been written there.
	Latest(ctx context.Context, key string, scope domain.Scope) (*domain.HistoryEntry, error)

	// Page returns up to q.Limit entries ordered newest first by
	// (ChangedAt, Seq).
	Page(ctx context.Context, q HistoryQuery) ([]domain.HistoryEntry, error)

	// ListByProgram returns every entry under the program changed within
	// [since, until), newest first. Zero bounds are open.
	ListByProgram(ctx context.Context, programID string, since, until time.Time) ([]domain.HistoryEntry, error)

	// WithTx returns a HistoryStore bound to tx.
	WithTx(tx *sql.Tx) HistoryStore
}
