// Package resolution computes effective configuration values. Every function
// here is pure: it works over an immutable Snapshot of stored rows and the
// definitions they belong to, and never touches storage.
//
// The inheritance chain is a fixed-length ordered list of scopes. Resolution
// walks location, clinic, program and finally the definition default; the
// first level holding a stored value wins.
package resolution
