// Package domain contains the core configuration entities: definitions,
// scope triples, stored values, history entries and the organizational
// hierarchy they are anchored to. It also owns value normalization and
// validation, which both the write path and tree validation rely on.
// Nothing in this package touches storage.
package domain
