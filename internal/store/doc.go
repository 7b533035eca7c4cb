// Package store defines the persistence contracts for definitions, stored
// values, change history and the organizational hierarchy. The services
// depend only on these interfaces; the SQL implementations live under
// internal/platform.
package store
