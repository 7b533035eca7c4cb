package resolution

import "github.com/phrazzld/hierconf/internal/domain"

// TreeNode is the effective value of a key at one node of the hierarchy.
type TreeNode struct {
	Scope domain.Scope `json:"scope"`
	Name  string       `json:"name"`
	// Explicit is true when the node stores its own value.
	Explicit bool       `json:"is_override"`
	Resolved Result     `json:"resolved"`
	Children []TreeNode `json:"children,omitempty"`
}

// Tree resolves def at the program, every clinic and every location of h.
// Inactive locations are included.
func Tree(def *domain.Definition, h *domain.Hierarchy, snap *Snapshot) TreeNode {
	node := func(scope domain.Scope, name string) TreeNode {
		return TreeNode{
			Scope:    scope,
			Name:     name,
			Explicit: snap.Lookup(def.Key, scope) != nil,
			Resolved: Resolve(def, scope, snap),
		}
	}

	root := node(domain.ProgramScope(h.Program.ID), h.Program.Name)
	for _, c := range h.Clinics {
		clinic := node(domain.ClinicScope(h.Program.ID, c.Clinic.ID), c.Clinic.Name)
		for _, loc := range c.Locations {
			clinic.Children = append(clinic.Children,
				node(domain.LocationScope(h.Program.ID, c.Clinic.ID, loc.ID), loc.Name))
		}
		root.Children = append(root.Children, clinic)
	}
	return root
}

// Override is a row stored at a scope together with the value the scope
// would inherit without it.
type Override struct {
	Row       *domain.ConfigValue `json:"row"`
	Inherited Result              `json:"inherited"`
}

// Overrides returns the rows stored at exactly scope that shadow an
// inherited value, in definition order. Rows for keys without a definition
// are skipped.
func Overrides(defs []*domain.Definition, scope domain.Scope, snap *Snapshot) []Override {
	var out []Override
	for _, def := range defs {
		row := snap.Lookup(def.Key, scope)
		if row == nil {
			continue
		}
		inherited := Inherited(def, scope, snap)
		if inherited.Value == nil {
			continue
		}
		out = append(out, Override{Row: row, Inherited: inherited})
	}
	return out
}
