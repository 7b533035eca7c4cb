package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/hierconf/internal/platform/sqlstore"
	"github.com/phrazzld/hierconf/internal/store"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Open connects to the database at url through the pgx stdlib driver.
// maxOpenConns of zero leaves the pool unbounded.
func Open(ctx context.Context, url string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// Migrations returns the embedded schema for this engine.
func Migrations() sqlstore.MigrationSource {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sqlstore.MigrationSource{FS: sub, Dialect: "postgres"}
}

// Dialect implements sqlstore.Dialect for PostgreSQL.
type Dialect struct{}

var _ sqlstore.Dialect = Dialect{}

// Name implements sqlstore.Dialect.
func (Dialect) Name() string { return "postgres" }

// Rebind implements sqlstore.Dialect.
func (Dialect) Rebind(query string) string { return sqlstore.RebindDollar(query) }

// MapError implements sqlstore.Dialect.
func (Dialect) MapError(err error) error { return MapError(err) }

// TimeArg implements sqlstore.Dialect.
func (Dialect) TimeArg(t time.Time) any { return t.UTC() }

// LockScope implements sqlstore.Dialect with a transaction-scoped advisory
// lock keyed on the hash of lockKey.
func (Dialect) LockScope(ctx context.Context, db store.DBTX, lockKey string) error {
	if _, err := db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return fmt.Errorf("acquire scope lock: %w", err)
	}
	return nil
}
