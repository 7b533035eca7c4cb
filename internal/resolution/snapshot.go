package resolution

import "github.com/phrazzld/hierconf/internal/domain"

type rowKey struct {
	key   string
	scope domain.Scope
}

// Snapshot indexes stored rows by key and exact scope. It is built once per
// read and not modified afterwards.
type Snapshot struct {
	rows  map[rowKey]*domain.ConfigValue
	order []*domain.ConfigValue
}

// NewSnapshot indexes rows. Later rows replace earlier ones with the same key
// and scope, which cannot happen for rows read from the value store.
func NewSnapshot(rows []*domain.ConfigValue) *Snapshot {
	s := &Snapshot{rows: make(map[rowKey]*domain.ConfigValue, len(rows))}
	for _, row := range rows {
		if row == nil {
			continue
		}
		s.rows[rowKey{key: row.Key, scope: row.Scope}] = row
		s.order = append(s.order, row)
	}
	return s
}

// Lookup returns the row stored for key at exactly scope, or nil.
func (s *Snapshot) Lookup(key string, scope domain.Scope) *domain.ConfigValue {
	return s.rows[rowKey{key: key, scope: scope}]
}

// Rows returns the indexed rows in the order they were given.
func (s *Snapshot) Rows() []*domain.ConfigValue {
	return s.order
}

// ShadowsAncestor reports whether a value stored for key at scope would
// shadow a value stored at a less specific scope of the same chain.
func (s *Snapshot) ShadowsAncestor(key string, scope domain.Scope) bool {
	for _, ancestor := range scope.Ancestors()[1:] {
		if s.Lookup(key, ancestor) != nil {
			return true
		}
	}
	return false
}
