package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DataType is the interpretation applied to a definition's raw text values.
type DataType string

// Supported data types.
const (
	DataTypeText    DataType = "text"
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
	DataTypeJSON    DataType = "json"
	DataTypePhone   DataType = "phone"
	DataTypeEmail   DataType = "email"
	DataTypeTime    DataType = "time"
)

// IsValid reports whether t is a supported data type.
func (t DataType) IsValid() bool {
	switch t {
	case DataTypeText, DataTypeNumber, DataTypeBoolean, DataTypeJSON,
		DataTypePhone, DataTypeEmail, DataTypeTime:
		return true
	default:
		return false
	}
}

// AppliesTo names the most specific level a key may be stored at. A key that
// applies to clinics may be stored at program or clinic scope; "all" and
// "location" permit every level.
type AppliesTo string

// Supported applies_to values.
const (
	AppliesToProgram  AppliesTo = "program"
	AppliesToClinic   AppliesTo = "clinic"
	AppliesToLocation AppliesTo = "location"
	AppliesToAll      AppliesTo = "all"
)

// IsValid reports whether a is a supported applies_to value.
func (a AppliesTo) IsValid() bool {
	switch a {
	case AppliesToProgram, AppliesToClinic, AppliesToLocation, AppliesToAll:
		return true
	default:
		return false
	}
}

// MaxLevel returns the most specific level a value may be stored at.
func (a AppliesTo) MaxLevel() Level {
	switch a {
	case AppliesToProgram:
		return LevelProgram
	case AppliesToClinic:
		return LevelClinic
	default:
		return LevelLocation
	}
}

// Allows reports whether a value may be stored at the given level.
func (a AppliesTo) Allows(level Level) bool {
	return level >= LevelProgram && level <= a.MaxLevel()
}

// Definition describes one configurable key.
type Definition struct {
	Key            string    `json:"key" yaml:"config_key"`
	Category       string    `json:"category" yaml:"category"`
	DisplayName    string    `json:"display_name,omitempty" yaml:"display_name"`
	Description    string    `json:"description,omitempty" yaml:"description"`
	DataType       DataType  `json:"data_type" yaml:"data_type"`
	AllowedValues  []string  `json:"allowed_values,omitempty" yaml:"allowed_values"`
	DefaultValue   *string   `json:"default_value,omitempty" yaml:"default_value"`
	ValidationRule string    `json:"validation_rule,omitempty" yaml:"validation_regex"`
	AppliesTo      AppliesTo `json:"applies_to" yaml:"applies_to"`
	IsRequired     bool      `json:"is_required" yaml:"is_required"`
	Position       int64     `json:"position" yaml:"-"`
	CreatedAt      time.Time `json:"created_at" yaml:"-"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"-"`
}

// Validate checks the definition's own shape and that its default value, if
// any, passes the definition's value rules. The default is normalized in
// place.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Key) == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidDefinition)
	}
	if strings.TrimSpace(d.Category) == "" {
		return fmt.Errorf("%w: %s: category cannot be empty", ErrInvalidDefinition, d.Key)
	}
	if !d.DataType.IsValid() {
		return fmt.Errorf("%w: %s: unknown data type %q", ErrInvalidDefinition, d.Key, d.DataType)
	}
	if !d.AppliesTo.IsValid() {
		return fmt.Errorf("%w: %s: unknown applies_to %q", ErrInvalidDefinition, d.Key, d.AppliesTo)
	}
	if err := checkRule(d.DataType, d.ValidationRule); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, d.Key, err)
	}

	if d.DefaultValue != nil {
		normalized, err := d.NormalizeValue(*d.DefaultValue)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidDefault, d.Key, err)
		}
		d.DefaultValue = &normalized
	}
	return nil
}

// HasDefault reports whether the definition carries a default value.
func (d *Definition) HasDefault() bool {
	return d.DefaultValue != nil
}

// IsAllowed reports whether value is in the closed set of allowed values.
// An empty set allows everything.
func (d *Definition) IsAllowed(value string) bool {
	if len(d.AllowedValues) == 0 {
		return true
	}
	return slices.Contains(d.AllowedValues, value)
}
