package sqlstore

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/hierconf/internal/store"
)

// Dialect adapts the shared SQL to a database engine.
type Dialect interface {
	// Name identifies the engine in logs.
	Name() string
	// Rebind rewrites ? placeholders into the engine's bind syntax.
	Rebind(query string) string
	// MapError translates driver errors into store errors.
	MapError(err error) error
	// TimeArg converts a timestamp into the bind value the engine stores.
	TimeArg(t time.Time) any
	// LockScope blocks until no other transaction holds lockKey. The lock
	// is released when the transaction ends.
	LockScope(ctx context.Context, db store.DBTX, lockKey string) error
}

// RebindDollar rewrites ? placeholders as $1, $2, ... for engines using
// numbered parameters. Queries in this package never contain a literal ?.
func RebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Stores bundles one implementation of every store contract over the same
// database handle.
type Stores struct {
	Definitions *DefinitionStore
	Values      *ValueStore
	History     *HistoryStore
	Hierarchy   *HierarchyStore
	Providers   *ProviderStore
}

// New builds all stores over db.
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) *Stores {
	return &Stores{
		Definitions: NewDefinitionStore(db, dialect, logger),
		Values:      NewValueStore(db, dialect, logger),
		History:     NewHistoryStore(db, dialect, logger),
		Hierarchy:   NewHierarchyStore(db, dialect, logger),
		Providers:   NewProviderStore(db, dialect, logger),
	}
}

func checkDeps(db store.DBTX, dialect Dialect, logger *slog.Logger) *slog.Logger {
	if db == nil {
		panic("db cannot be nil")
	}
	if dialect == nil {
		panic("dialect cannot be nil")
	}
	if logger == nil {
		return slog.Default()
	}
	return logger
}
