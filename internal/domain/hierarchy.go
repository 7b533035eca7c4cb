package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Program is the root of an organizational tree.
type Program struct {
	ID        string    `json:"program_id"`
	Name      string    `json:"name"`
	Prefix    string    `json:"prefix"`
	CreatedAt time.Time `json:"created_at"`
}

// Clinic belongs to exactly one program.
type Clinic struct {
	ID        string    `json:"clinic_id"`
	ProgramID string    `json:"program_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Location belongs to exactly one clinic. Inactive locations are skipped by
// tree validation.
type Location struct {
	ID        string    `json:"location_id"`
	ClinicID  string    `json:"clinic_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// RelationshipType says how strongly a program depends on a program
// attached to it.
type RelationshipType string

// Supported relationship types.
const (
	RelationshipUses     RelationshipType = "uses"
	RelationshipRequires RelationshipType = "requires"
	RelationshipOptional RelationshipType = "optional"
)

// IsValid reports whether t is a supported relationship type.
func (t RelationshipType) IsValid() bool {
	switch t {
	case RelationshipUses, RelationshipRequires, RelationshipOptional:
		return true
	default:
		return false
	}
}

// ProgramRelationship links a parent program to a shared service program
// attached to it.
type ProgramRelationship struct {
	ID                int64            `json:"relationship_id"`
	ParentProgramID   string           `json:"parent_program_id"`
	AttachedProgramID string           `json:"attached_program_id"`
	Type              RelationshipType `json:"relationship_type"`
	CreatedAt         time.Time        `json:"created_at"`
}

// AttachedProgram is a program attached to another, with the relationship
// type.
type AttachedProgram struct {
	Program
	RelationshipType RelationshipType `json:"relationship_type"`
}

// ClinicNode is a clinic together with its locations.
type ClinicNode struct {
	Clinic    Clinic     `json:"clinic"`
	Locations []Location `json:"locations"`
}

// Hierarchy is a program with its clinics and their locations, ordered by
// name.
type Hierarchy struct {
	Program Program      `json:"program"`
	Clinics []ClinicNode `json:"clinics"`
}

// Contains reports whether the scope names a clinic and location that belong
// to this program.
func (h *Hierarchy) Contains(scope Scope) bool {
	if scope.ProgramID != h.Program.ID {
		return false
	}
	if scope.ClinicID == "" {
		return true
	}
	for _, node := range h.Clinics {
		if node.Clinic.ID != scope.ClinicID {
			continue
		}
		if scope.LocationID == "" {
			return true
		}
		for _, loc := range node.Locations {
			if loc.ID == scope.LocationID {
				return true
			}
		}
		return false
	}
	return false
}

// LeafScopes returns the scope of every active location in the program,
// the scopes required values must resolve at.
func (h *Hierarchy) LeafScopes() []Scope {
	var out []Scope
	for _, node := range h.Clinics {
		for _, loc := range node.Locations {
			if loc.Active {
				out = append(out, LocationScope(h.Program.ID, node.Clinic.ID, loc.ID))
			}
		}
	}
	return out
}

// NewEntityID builds an identifier of the form PREFIX-XXXXXXXX from a prefix
// and a random UUID.
func NewEntityID(prefix string) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "ID"
	}
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(hex[:8]))
}
