package resolution

import "github.com/phrazzld/hierconf/internal/domain"

// Result is the effective value of a key at a scope together with its
// provenance.
type Result struct {
	Key   string       `json:"key"`
	Scope domain.Scope `json:"scope"`
	// Value is nil when nothing is stored on the chain and the definition
	// has no default.
	Value *string      `json:"value"`
	Level domain.Level `json:"effective_level"`
	// IsOverride is true when a clinic or location value shadows the
	// program level. Program values and defaults are never overrides.
	IsOverride     bool          `json:"is_override"`
	Source         domain.Source `json:"source,omitempty"`
	SourceDocument string        `json:"source_document,omitempty"`
	Rationale      string        `json:"rationale,omitempty"`
	Version        int           `json:"version,omitempty"`
	// Origin is the scope of the winning row. It is the zero Scope at the
	// default level.
	Origin domain.Scope `json:"origin"`
}

// Equal reports whether two results carry the same effective value.
func (r Result) Equal(other Result) bool {
	return equalValues(r.Value, other.Value)
}

// Resolve returns the effective value of def at scope.
func Resolve(def *domain.Definition, scope domain.Scope, snap *Snapshot) Result {
	for _, candidate := range scope.Ancestors() {
		row := snap.Lookup(def.Key, candidate)
		if row == nil {
			continue
		}
		value := row.Value
		level := candidate.Level()
		return Result{
			Key:            def.Key,
			Scope:          scope,
			Value:          &value,
			Level:          level,
			IsOverride:     level > domain.LevelProgram,
			Source:         row.Source,
			SourceDocument: row.SourceDocument,
			Rationale:      row.Rationale,
			Version:        row.Version,
			Origin:         candidate,
		}
	}
	return defaultResult(def, scope)
}

// Inherited returns what scope would resolve to if nothing were stored at
// scope itself.
func Inherited(def *domain.Definition, scope domain.Scope, snap *Snapshot) Result {
	if scope.Level() == domain.LevelProgram {
		return defaultResult(def, scope)
	}
	r := Resolve(def, scope.Parent(), snap)
	r.Scope = scope
	return r
}

func defaultResult(def *domain.Definition, scope domain.Scope) Result {
	r := Result{Key: def.Key, Scope: scope, Level: domain.LevelDefault}
	if def.DefaultValue != nil {
		value := *def.DefaultValue
		r.Value = &value
	}
	return r
}

// Link is one level of an inheritance chain.
type Link struct {
	Level domain.Level `json:"level"`
	// Scope is the zero Scope for the default level.
	Scope domain.Scope `json:"scope"`
	Value *string      `json:"value"`
	// Row is the stored row at this level, nil for the default level and
	// for levels with nothing stored.
	Row       *domain.ConfigValue `json:"row,omitempty"`
	Effective bool                `json:"effective"`
}

// Chain returns every level from the default up to scope's own level, each
// with whatever is stored there. The default and program links are always
// present; clinic and location links appear only when scope names them.
// The link that Resolve would pick is marked Effective.
func Chain(def *domain.Definition, scope domain.Scope, snap *Snapshot) []Link {
	ancestors := scope.Ancestors()
	links := make([]Link, 0, len(ancestors)+1)

	links = append(links, Link{Level: domain.LevelDefault, Value: copyValue(def.DefaultValue)})
	for i := len(ancestors) - 1; i >= 0; i-- {
		link := Link{Level: ancestors[i].Level(), Scope: ancestors[i]}
		if row := snap.Lookup(def.Key, ancestors[i]); row != nil {
			value := row.Value
			link.Value = &value
			link.Row = row
		}
		links = append(links, link)
	}

	for i := len(links) - 1; i >= 0; i-- {
		if links[i].Row != nil || i == 0 {
			links[i].Effective = true
			break
		}
	}
	return links
}

func copyValue(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func equalValues(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
