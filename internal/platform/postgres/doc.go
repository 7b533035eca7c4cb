// Package postgres provides the PostgreSQL backend: connection setup over
// pgx, the sqlstore dialect with advisory scope locks, error mapping from
// pgconn codes and the schema migrations.
package postgres
