package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func validDefinition() Definition {
	return Definition{
		Key:       "helpdesk_phone",
		Category:  "contact",
		DataType:  DataTypePhone,
		AppliesTo: AppliesToAll,
	}
}

func TestDefinitionValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Definition)
		want   error
	}{
		{name: "valid", modify: func(*Definition) {}},
		{name: "empty key", modify: func(d *Definition) { d.Key = " " }, want: ErrInvalidDefinition},
		{name: "empty category", modify: func(d *Definition) { d.Category = "" }, want: ErrInvalidDefinition},
		{name: "unknown data type", modify: func(d *Definition) { d.DataType = "date" }, want: ErrInvalidDefinition},
		{name: "unknown applies_to", modify: func(d *Definition) { d.AppliesTo = "region" }, want: ErrInvalidDefinition},
		{
			name:   "bad regex",
			modify: func(d *Definition) { d.DataType, d.ValidationRule = DataTypeText, "([" },
			want:   ErrInvalidDefinition,
		},
		{
			name:   "bad schema",
			modify: func(d *Definition) { d.DataType, d.ValidationRule = DataTypeJSON, `{"type": 12}` },
			want:   ErrInvalidDefinition,
		},
		{
			name:   "invalid default",
			modify: func(d *Definition) { d.DefaultValue = strPtr("call us") },
			want:   ErrInvalidDefault,
		},
		{
			name: "default outside allowed values",
			modify: func(d *Definition) {
				d.DataType = DataTypeText
				d.AllowedValues = []string{"LabCorp"}
				d.DefaultValue = strPtr("Quest")
			},
			want: ErrInvalidDefault,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			def := validDefinition()
			tt.modify(&def)
			err := def.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestDefinitionValidateNormalizesDefault(t *testing.T) {
	t.Parallel()

	def := validDefinition()
	def.DefaultValue = strPtr("(503) 216-6407")
	require.NoError(t, def.Validate())
	require.True(t, def.HasDefault())
	assert.Equal(t, "503.216.6407", *def.DefaultValue)
}

func TestAppliesToAllows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		appliesTo AppliesTo
		allowed   []Level
		denied    []Level
	}{
		{AppliesToProgram, []Level{LevelProgram}, []Level{LevelDefault, LevelClinic, LevelLocation}},
		{AppliesToClinic, []Level{LevelProgram, LevelClinic}, []Level{LevelLocation}},
		{AppliesToLocation, []Level{LevelProgram, LevelClinic, LevelLocation}, nil},
		{AppliesToAll, []Level{LevelProgram, LevelClinic, LevelLocation}, []Level{LevelDefault}},
	}
	for _, tt := range tests {
		t.Run(string(tt.appliesTo), func(t *testing.T) {
			t.Parallel()
			for _, level := range tt.allowed {
				assert.True(t, tt.appliesTo.Allows(level), "%s should allow %s", tt.appliesTo, level)
			}
			for _, level := range tt.denied {
				assert.False(t, tt.appliesTo.Allows(level), "%s should deny %s", tt.appliesTo, level)
			}
		})
	}
}

func TestConfigValueValidate(t *testing.T) {
	t.Parallel()

	v := ConfigValue{
		Key:     "helpdesk_phone",
		Scope:   ProgramScope("P4M"),
		Value:   "503.216.6407",
		Source:  SourceManual,
		Version: 1,
	}
	require.NoError(t, v.Validate())

	bad := v
	bad.Source = "fax"
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = v
	bad.Version = 0
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = v
	bad.Scope = Scope{ProgramID: "P4M", LocationID: "LOC-W"}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidScope)
}
