package resolution

import "github.com/phrazzld/hierconf/internal/domain"

// ChangeKind classifies how a child scope's effective value departs from its
// parent's.
type ChangeKind string

// Change kinds.
const (
	// ChangeAdded means the child resolves to a clinic or location override,
	// stored on it or inherited, where the parent has only the default or
	// nothing at all.
	ChangeAdded ChangeKind = "added"
	// ChangeChanged means both sides resolve to values and they differ.
	ChangeChanged ChangeKind = "changed"
	// ChangeRemoved means the parent's explicit value does not reach the
	// child because a closer ancestor overrides it, or the child resolves
	// to nothing.
	ChangeRemoved ChangeKind = "removed"
)

// Difference is one key whose effective values differ between two scopes.
type Difference struct {
	Key    string     `json:"key"`
	Kind   ChangeKind `json:"kind"`
	Child  Result     `json:"child"`
	Parent Result     `json:"parent"`
}

// Diff compares the effective value of every definition at child against
// parent. Keys that resolve equally are omitted, so the result is empty iff
// every key resolves the same on both sides.
func Diff(defs []*domain.Definition, child, parent domain.Scope, snap *Snapshot) []Difference {
	var out []Difference
	for _, def := range defs {
		c := Resolve(def, child, snap)
		p := Resolve(def, parent, snap)
		if c.Equal(p) {
			continue
		}
		out = append(out, Difference{
			Key:    def.Key,
			Kind:   classify(c, p),
			Child:  c,
			Parent: p,
		})
	}
	return out
}

func classify(child, parent Result) ChangeKind {
	switch {
	case parent.Value == nil:
		return ChangeAdded
	case child.Value == nil:
		return ChangeRemoved
	case parent.Level != domain.LevelDefault &&
		child.Origin != child.Scope &&
		child.Level > parent.Level:
		return ChangeRemoved
	case child.IsOverride && parent.Level == domain.LevelDefault:
		return ChangeAdded
	default:
		return ChangeChanged
	}
}
