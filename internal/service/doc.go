// Package service contains the configuration use cases: the definition
// registry, the value write path with its change recorder, the read-only
// resolution engine, hierarchy management and record import.
//
// Services depend only on the store contracts in internal/store. Every value
// mutation runs in one transaction that locks the key and scope, writes the
// row and appends the history entry; subscribers are notified after commit.
// Reads run single-statement queries and hand the rows to the pure functions
// in internal/resolution.
package service
