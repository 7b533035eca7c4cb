package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
version: 1
definitions:
  - config_key: helpdesk_phone
    category: contact
    display_name: Helpdesk phone
    data_type: phone
    applies_to: all
  - config_key: lab_default_test_code
    category: lab
    data_type: text
    applies_to: location
    is_required: true
    validation_regex: "^[A-Z]{3}[0-9]{2}$"
  - config_key: portal_enabled
    category: portal
    data_type: boolean
    applies_to: program
    default_value: yes
    is_clinic_editable: false
  - config_key: consent_version
    category: consent
    data_type: number
    applies_to: clinic
    allowed_values: [1, 2, 3]
    default_value: 2
`

func TestParse(t *testing.T) {
	t.Parallel()

	defs, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, defs, 4)

	assert.Equal(t, "helpdesk_phone", defs[0].Key)
	assert.Equal(t, domain.DataTypePhone, defs[0].DataType)
	assert.Equal(t, domain.AppliesToAll, defs[0].AppliesTo)
	assert.Nil(t, defs[0].DefaultValue)

	assert.True(t, defs[1].IsRequired)
	assert.Equal(t, "^[A-Z]{3}[0-9]{2}$", defs[1].ValidationRule)

	require.NotNil(t, defs[2].DefaultValue)
	assert.Equal(t, "true", *defs[2].DefaultValue, "defaults are normalized")

	assert.Equal(t, []string{"1", "2", "3"}, defs[3].AllowedValues)
	assert.Equal(t, "2", *defs[3].DefaultValue)
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{name: "empty document", doc: "  \n", wantMsg: "document is empty"},
		{name: "missing definitions", doc: "version: 1\n", wantMsg: "definitions"},
		{
			name:    "unknown data type",
			doc:     "definitions:\n  - {config_key: a, category: c, data_type: money, applies_to: all}\n",
			wantMsg: "data_type",
		},
		{
			name:    "missing applies_to",
			doc:     "definitions:\n  - {config_key: a, category: c, data_type: text}\n",
			wantMsg: "applies_to",
		},
		{
			name: "duplicate key",
			doc: "definitions:\n" +
				"  - {config_key: a, category: c, data_type: text, applies_to: all}\n" +
				"  - {config_key: a, category: c, data_type: text, applies_to: all}\n",
			wantMsg: "more than once",
		},
		{
			name:    "default fails its own rule",
			doc:     "definitions:\n  - {config_key: a, category: c, data_type: time, applies_to: all, default_value: noon}\n",
			wantMsg: "default value",
		},
		{name: "not yaml", doc: "definitions: [", wantMsg: "parse"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tc.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestDecodeAndLoadFile(t *testing.T) {
	t.Parallel()

	defs, err := Decode(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	assert.Len(t, defs, 4)

	path := filepath.Join(t.TempDir(), "definitions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))
	defs, err = LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, defs, 4)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFile("")
	assert.Error(t, err)
}
