package domain

import (
	"fmt"
	"strings"
)

// Level identifies a position in the inheritance chain. Higher levels are
// more specific and take precedence over lower ones.
type Level int

const (
	// LevelDefault is the registry default, the weakest level.
	LevelDefault Level = iota
	// LevelProgram is a value stored for a whole program.
	LevelProgram
	// LevelClinic is a value stored for one clinic of a program.
	LevelClinic
	// LevelLocation is a value stored for one location of a clinic.
	LevelLocation
)

func (l Level) String() string {
	switch l {
	case LevelDefault:
		return "default"
	case LevelProgram:
		return "program"
	case LevelClinic:
		return "clinic"
	case LevelLocation:
		return "location"
	default:
		return "unknown"
	}
}

// ParseLevel converts a level name into a Level.
func ParseLevel(value string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "default":
		return LevelDefault, nil
	case "program":
		return LevelProgram, nil
	case "clinic":
		return LevelClinic, nil
	case "location":
		return LevelLocation, nil
	default:
		return LevelDefault, fmt.Errorf("unknown level %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler so levels serialize by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Scope is the (program, clinic, location) triple a value is anchored to.
// An empty ClinicID denotes program scope; an empty LocationID with a
// ClinicID denotes clinic scope.
type Scope struct {
	ProgramID  string `json:"program_id"`
	ClinicID   string `json:"clinic_id,omitempty"`
	LocationID string `json:"location_id,omitempty"`
}

// ProgramScope returns the program-level scope.
func ProgramScope(programID string) Scope {
	return Scope{ProgramID: programID}
}

// ClinicScope returns the clinic-level scope.
func ClinicScope(programID, clinicID string) Scope {
	return Scope{ProgramID: programID, ClinicID: clinicID}
}

// LocationScope returns the location-level scope.
func LocationScope(programID, clinicID, locationID string) Scope {
	return Scope{ProgramID: programID, ClinicID: clinicID, LocationID: locationID}
}

// Level returns the most specific level set in the triple.
func (s Scope) Level() Level {
	switch {
	case s.LocationID != "":
		return LevelLocation
	case s.ClinicID != "":
		return LevelClinic
	default:
		return LevelProgram
	}
}

// Validate checks the structural shape of the triple. Membership of the
// clinic and location in their parents is checked against the hierarchy
// by the services.
func (s Scope) Validate() error {
	if strings.TrimSpace(s.ProgramID) == "" {
		return fmt.Errorf("%w: program id is required", ErrInvalidScope)
	}
	if s.LocationID != "" && s.ClinicID == "" {
		return fmt.Errorf("%w: location %q requires a clinic", ErrInvalidScope, s.LocationID)
	}
	return nil
}

// AtLevel truncates the scope to the given level. Asking for a level more
// specific than the scope returns the scope unchanged; LevelDefault returns
// the program scope.
func (s Scope) AtLevel(level Level) Scope {
	switch level {
	case LevelLocation:
		return s
	case LevelClinic:
		return Scope{ProgramID: s.ProgramID, ClinicID: s.ClinicID}
	default:
		return Scope{ProgramID: s.ProgramID}
	}
}

// Parent returns the next less specific scope. The parent of a program
// scope is the program scope itself.
func (s Scope) Parent() Scope {
	switch s.Level() {
	case LevelLocation:
		return s.AtLevel(LevelClinic)
	default:
		return s.AtLevel(LevelProgram)
	}
}

// Ancestors returns the scopes of the inheritance chain from most specific
// to least specific, the scope itself first. The registry default is not a
// scope and is not included.
func (s Scope) Ancestors() []Scope {
	out := make([]Scope, 0, 3)
	for level := s.Level(); level >= LevelProgram; level-- {
		out = append(out, s.AtLevel(level))
	}
	return out
}

// Contains reports whether other lies on s's inheritance chain, i.e. s is
// other or a descendant of other.
func (s Scope) Contains(other Scope) bool {
	if other.Level() > s.Level() {
		return false
	}
	return s.AtLevel(other.Level()) == other
}

func (s Scope) String() string {
	switch s.Level() {
	case LevelLocation:
		return s.ProgramID + "/" + s.ClinicID + "/" + s.LocationID
	case LevelClinic:
		return s.ProgramID + "/" + s.ClinicID
	default:
		return s.ProgramID
	}
}
