// Package sqlstore implements the store contracts once, over database/sql.
// Queries are written with ? placeholders and adapted to an engine by a
// Dialect; the postgres and sqlite packages provide the two dialects.
//
// Unset clinic and location ids are stored as empty strings rather than
// NULL so the (key, program, clinic, location) unique index and the chain
// lookups behave identically on both engines.
package sqlstore
