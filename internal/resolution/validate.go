package resolution

import (
	"fmt"

	"github.com/phrazzld/hierconf/internal/domain"
)

// IssueKind names a tree validation finding.
type IssueKind string

// Issue kinds.
const (
	MissingRequiredValue IssueKind = "MissingRequiredValue"
	StaleInvalidValue    IssueKind = "StaleInvalidValue"
	OrphanedScopeValue   IssueKind = "OrphanedScopeValue"
	DanglingScopeValue   IssueKind = "DanglingScopeValue"
)

// Issue is one validation finding.
type Issue struct {
	Kind    IssueKind    `json:"kind"`
	Key     string       `json:"key"`
	Scope   domain.Scope `json:"scope"`
	Value   *string      `json:"value,omitempty"`
	Message string       `json:"message"`
}

// Validate checks a program's tree. Required keys must resolve to a value at
// every active location, and every stored row must name a known
// key, a scope inside the hierarchy, a level its definition allows, and a
// value its definition still accepts. Findings are returned in definition
// order followed by row order.
func Validate(defs []*domain.Definition, h *domain.Hierarchy, snap *Snapshot) []Issue {
	var issues []Issue
	leaves := h.LeafScopes()

	for _, def := range defs {
		if !def.IsRequired {
			continue
		}
		for _, leaf := range leaves {
			if r := Resolve(def, leaf, snap); r.Value == nil {
				issues = append(issues, Issue{
					Kind:    MissingRequiredValue,
					Key:     def.Key,
					Scope:   leaf,
					Message: fmt.Sprintf("required key %s has no value at %s %s", def.Key, leaf.Level(), leaf),
				})
			}
		}
	}

	byKey := make(map[string]*domain.Definition, len(defs))
	for _, def := range defs {
		byKey[def.Key] = def
	}

	for _, row := range snap.Rows() {
		value := row.Value
		issue := func(kind IssueKind, format string, args ...any) {
			issues = append(issues, Issue{
				Kind:    kind,
				Key:     row.Key,
				Scope:   row.Scope,
				Value:   &value,
				Message: fmt.Sprintf(format, args...),
			})
		}

		def, ok := byKey[row.Key]
		if !ok {
			issue(StaleInvalidValue, "key %s is no longer defined", row.Key)
			continue
		}
		if !h.Contains(row.Scope) {
			issue(DanglingScopeValue, "scope %s is not part of program %s", row.Scope, h.Program.ID)
		}
		if level := row.Scope.Level(); !def.AppliesTo.Allows(level) {
			issue(OrphanedScopeValue, "key %s applies to %s but is stored at %s level", row.Key, def.AppliesTo, level)
		}
		if err := def.CheckStored(row.Value); err != nil {
			issue(StaleInvalidValue, "%v", err)
		}
	}
	return issues
}
