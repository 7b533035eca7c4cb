// Package sqlite provides the embedded SQLite backend: connection setup over
// modernc.org/sqlite, the sqlstore dialect and the schema migrations.
//
// A database is opened with a single connection. Write transactions
// therefore serialize, which is what keeps concurrent writers of the same
// key and scope from interleaving on this engine. Callers must not use the
// *sql.DB while holding a transaction from it.
package sqlite
