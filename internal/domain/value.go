package domain

import (
	"fmt"
	"time"
)

// Source records how a value entered the system.
type Source string

// Supported value sources.
const (
	SourceDefault    Source = "default"
	SourceImport     Source = "import"
	SourceManual     Source = "manual"
	SourcePortal     Source = "portal"
	SourcePropagated Source = "propagated"
)

// IsValid reports whether s is a supported source.
func (s Source) IsValid() bool {
	switch s {
	case SourceDefault, SourceImport, SourceManual, SourcePortal, SourcePropagated:
		return true
	default:
		return false
	}
}

// ConfigValue is the value stored for one key at exactly one scope,
// together with its provenance.
type ConfigValue struct {
	ID             int64      `json:"id"`
	Key            string     `json:"key"`
	Scope          Scope      `json:"scope"`
	Value          string     `json:"value"`
	IsOverride     bool       `json:"is_override"`
	Source         Source     `json:"source"`
	SourceDocument string     `json:"source_document,omitempty"`
	Rationale      string     `json:"rationale,omitempty"`
	EffectiveDate  *time.Time `json:"effective_date,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	Version        int        `json:"version"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Validate checks the row-level invariants of a value. Type validation
// against the definition happens before the row is built.
func (v *ConfigValue) Validate() error {
	if v.Key == "" {
		return NewValidationError("key", "cannot be empty", ErrValidation)
	}
	if err := v.Scope.Validate(); err != nil {
		return err
	}
	if !v.Source.IsValid() {
		return NewValidationError("source", fmt.Sprintf("unknown source %q", v.Source), ErrValidation)
	}
	if v.Version < 1 {
		return NewValidationError("version", "must be positive", ErrValidation)
	}
	if v.EffectiveDate != nil && v.ExpiryDate != nil && v.ExpiryDate.Before(*v.EffectiveDate) {
		return NewValidationError("expiry_date", "is before effective_date", ErrValidation)
	}
	return nil
}
