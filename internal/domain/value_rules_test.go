package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		def     Definition
		raw     string
		want    string
		wantErr bool
	}{
		{name: "text kept", def: Definition{DataType: DataTypeText}, raw: "  Front desk  ", want: "Front desk"},
		{name: "empty text", def: Definition{DataType: DataTypeText}, raw: "", want: ""},
		{name: "number", def: Definition{DataType: DataTypeNumber}, raw: "2.5", want: "2.5"},
		{name: "not a number", def: Definition{DataType: DataTypeNumber}, raw: "two", wantErr: true},
		{name: "NaN", def: Definition{DataType: DataTypeNumber}, raw: "NaN", wantErr: true},
		{name: "boolean yes", def: Definition{DataType: DataTypeBoolean}, raw: "Yes", want: "true"},
		{name: "boolean off", def: Definition{DataType: DataTypeBoolean}, raw: "off", want: "false"},
		{name: "boolean junk", def: Definition{DataType: DataTypeBoolean}, raw: "maybe", wantErr: true},
		{name: "json", def: Definition{DataType: DataTypeJSON}, raw: `{"a": 1}`, want: `{"a": 1}`},
		{name: "bad json", def: Definition{DataType: DataTypeJSON}, raw: `{a}`, wantErr: true},
		{name: "phone dashes", def: Definition{DataType: DataTypePhone}, raw: "503-216-6407", want: "503.216.6407"},
		{name: "phone parens", def: Definition{DataType: DataTypePhone}, raw: "(503) 216-6407", want: "503.216.6407"},
		{name: "phone country code", def: Definition{DataType: DataTypePhone}, raw: "+1 503 216 6407", want: "503.216.6407"},
		{name: "phone extension kept", def: Definition{DataType: DataTypePhone}, raw: "503-216-6407 x12", want: "503-216-6407 x12"},
		{name: "phone letters", def: Definition{DataType: DataTypePhone}, raw: "call us", wantErr: true},
		{name: "phone too short", def: Definition{DataType: DataTypePhone}, raw: "12345", wantErr: true},
		{name: "email", def: Definition{DataType: DataTypeEmail}, raw: "help@p4m.org", want: "help@p4m.org"},
		{name: "bad email", def: Definition{DataType: DataTypeEmail}, raw: "help at p4m", wantErr: true},
		{name: "time pm", def: Definition{DataType: DataTypeTime}, raw: "5:30 pm", want: "17:30"},
		{name: "time noon", def: Definition{DataType: DataTypeTime}, raw: "12pm", want: "12:00"},
		{name: "time midnight", def: Definition{DataType: DataTypeTime}, raw: "12 a.m.", want: "00:00"},
		{name: "time 24h", def: Definition{DataType: DataTypeTime}, raw: "0830", want: "08:30"},
		{name: "time bad hour", def: Definition{DataType: DataTypeTime}, raw: "25:00", wantErr: true},
		{name: "time bad minutes", def: Definition{DataType: DataTypeTime}, raw: "10:75", wantErr: true},
		{
			name: "allowed values",
			def:  Definition{DataType: DataTypeText, AllowedValues: []string{"LabCorp", "Quest"}},
			raw:  "Quest",
			want: "Quest",
		},
		{
			name:    "not allowed",
			def:     Definition{DataType: DataTypeText, AllowedValues: []string{"LabCorp", "Quest"}},
			raw:     "quest",
			wantErr: true,
		},
		{
			name: "regex rule",
			def:  Definition{DataType: DataTypeText, ValidationRule: `^[A-Z]{3}[0-9]{2}$`},
			raw:  "CBC01",
			want: "CBC01",
		},
		{
			name:    "regex rule fails",
			def:     Definition{DataType: DataTypeText, ValidationRule: `^[A-Z]{3}[0-9]{2}$`},
			raw:     "cbc1",
			wantErr: true,
		},
		{
			name: "json schema rule",
			def: Definition{
				DataType:       DataTypeJSON,
				ValidationRule: `{"type": "object", "required": ["days"]}`,
			},
			raw:  `{"days": [1, 2]}`,
			want: `{"days": [1, 2]}`,
		},
		{
			name: "json schema rule fails",
			def: Definition{
				DataType:       DataTypeJSON,
				ValidationRule: `{"type": "object", "required": ["days"]}`,
			},
			raw:     `{"hours": 4}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.def.NormalizeValue(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckStored(t *testing.T) {
	t.Parallel()

	def := Definition{DataType: DataTypePhone}
	assert.NoError(t, def.CheckStored("503.216.6407"))
	assert.ErrorIs(t, def.CheckStored("503-216-6407"), ErrInvalidValue, "non-canonical form is stale")

	def.AllowedValues = []string{"503.216.6407"}
	assert.ErrorIs(t, def.CheckStored("971.555.0100"), ErrInvalidValue)
}
