package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/hierconf/internal/platform/postgres"
	"github.com/phrazzld/hierconf/internal/platform/sqlite"
	"github.com/phrazzld/hierconf/internal/platform/sqlstore"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds setup work against a database.
const TestTimeout = 30 * time.Second

// Handle is a migrated database together with the dialect its stores need.
type Handle struct {
	DB      *sql.DB
	Dialect sqlstore.Dialect
}

// Stores builds every store over the handle.
func (h *Handle) Stores() *sqlstore.Stores {
	return sqlstore.New(h.DB, h.Dialect, nil)
}

// DatabaseURL returns the PostgreSQL URL for integration tests, or "".
func DatabaseURL() string {
	for _, name := range []string{"DATABASE_URL", "HIERCONF_TEST_DATABASE_URL"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ShouldSkipDatabaseTest reports whether PostgreSQL integration tests should
// be skipped.
func ShouldSkipDatabaseTest() bool {
	return DatabaseURL() == ""
}

// NewSQLite returns a migrated in-memory SQLite database closed at test end.
func NewSQLite(t *testing.T) *Handle {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	require.NoError(t, err, "failed to open sqlite database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlstore.Migrate(ctx, db, sqlite.Migrations(), "up", quietLogger()),
		"failed to migrate sqlite database")
	return &Handle{DB: db, Dialect: sqlite.Dialect{}}
}

// NewPostgres returns a migrated PostgreSQL database confined to a fresh
// schema that is dropped at test end. The test is skipped when no database
// URL is configured.
func NewPostgres(t *testing.T) *Handle {
	t.Helper()
	if ShouldSkipDatabaseTest() {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	base := DatabaseURL()
	admin, err := postgres.Open(ctx, base, 2)
	require.NoError(t, err, "failed to connect to postgres")
	t.Cleanup(func() { _ = admin.Close() })

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA %q`, schema))
	require.NoError(t, err, "failed to create schema")
	t.Cleanup(func() {
		_, _ = admin.ExecContext(context.Background(), fmt.Sprintf(`DROP SCHEMA %q CASCADE`, schema))
	})

	scoped, err := withSearchPath(base, schema)
	require.NoError(t, err)

	db, err := postgres.Open(ctx, scoped, 4)
	require.NoError(t, err, "failed to connect to postgres schema")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlstore.Migrate(ctx, db, postgres.Migrations(), "up", quietLogger()),
		"failed to migrate postgres schema")
	return &Handle{DB: db, Dialect: postgres.Dialect{}}
}

func withSearchPath(rawURL, schema string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
