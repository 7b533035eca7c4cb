// Package testdb hands out migrated databases for tests.
//
// NewSQLite returns a private in-memory SQLite database and works
// everywhere. NewPostgres returns a PostgreSQL database isolated in its own
// schema and skips the test unless DATABASE_URL is set, so integration tests
// can run in parallel against one server.
package testdb
