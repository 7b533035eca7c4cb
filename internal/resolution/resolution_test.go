package resolution

import (
	"testing"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	program  = domain.ProgramScope("P4M")
	portland = domain.ClinicScope("P4M", "CLN-PDX")
	west     = domain.LocationScope("P4M", "CLN-PDX", "LOC-W")
	east     = domain.LocationScope("P4M", "CLN-PDX", "LOC-E")
	salem    = domain.ClinicScope("P4M", "CLN-SLM")
)

func strPtr(s string) *string { return &s }

func row(key string, scope domain.Scope, value string) *domain.ConfigValue {
	return &domain.ConfigValue{
		Key:     key,
		Scope:   scope,
		Value:   value,
		Source:  domain.SourceManual,
		Version: 1,
	}
}

func def(key string, defaultValue *string) *domain.Definition {
	return &domain.Definition{
		Key:          key,
		Category:     "contact",
		DataType:     domain.DataTypeText,
		AppliesTo:    domain.AppliesToAll,
		DefaultValue: defaultValue,
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	withDefault := def("fax", strPtr("none"))
	noDefault := def("helpdesk_phone", nil)

	tests := []struct {
		name         string
		def          *domain.Definition
		rows         []*domain.ConfigValue
		scope        domain.Scope
		wantValue    *string
		wantLevel    domain.Level
		wantOverride bool
	}{
		{
			name:      "default when nothing stored",
			def:       withDefault,
			scope:     west,
			wantValue: strPtr("none"),
			wantLevel: domain.LevelDefault,
		},
		{
			name:      "null default when nothing stored",
			def:       noDefault,
			scope:     west,
			wantLevel: domain.LevelDefault,
		},
		{
			name:      "program value inherited by location",
			def:       noDefault,
			rows:      []*domain.ConfigValue{row("helpdesk_phone", program, "800.555.0000")},
			scope:     west,
			wantValue: strPtr("800.555.0000"),
			wantLevel: domain.LevelProgram,
		},
		{
			name: "clinic shadows program",
			def:  noDefault,
			rows: []*domain.ConfigValue{
				row("helpdesk_phone", program, "800.555.0000"),
				row("helpdesk_phone", portland, "503.216.6407"),
			},
			scope:        west,
			wantValue:    strPtr("503.216.6407"),
			wantLevel:    domain.LevelClinic,
			wantOverride: true,
		},
		{
			name: "location beats clinic and program",
			def:  noDefault,
			rows: []*domain.ConfigValue{
				row("helpdesk_phone", program, "1"),
				row("helpdesk_phone", portland, "2"),
				row("helpdesk_phone", west, "3"),
			},
			scope:        west,
			wantValue:    strPtr("3"),
			wantLevel:    domain.LevelLocation,
			wantOverride: true,
		},
		{
			name:         "sibling location value is ignored",
			def:          noDefault,
			rows:         []*domain.ConfigValue{row("helpdesk_phone", east, "3")},
			scope:        west,
			wantLevel:    domain.LevelDefault,
			wantOverride: false,
		},
		{
			name:         "override with no program value",
			def:          withDefault,
			rows:         []*domain.ConfigValue{row("fax", portland, "503.000.0000")},
			scope:        portland,
			wantValue:    strPtr("503.000.0000"),
			wantLevel:    domain.LevelClinic,
			wantOverride: true,
		},
		{
			name:      "other keys are ignored",
			def:       withDefault,
			rows:      []*domain.ConfigValue{row("helpdesk_phone", west, "x")},
			scope:     west,
			wantValue: strPtr("none"),
			wantLevel: domain.LevelDefault,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Resolve(tc.def, tc.scope, NewSnapshot(tc.rows))
			assert.Equal(t, tc.wantValue, got.Value)
			assert.Equal(t, tc.wantLevel, got.Level)
			assert.Equal(t, tc.wantOverride, got.IsOverride)
			assert.Equal(t, tc.scope, got.Scope)
		})
	}
}

func TestResolveDefaultIsNeverAnOverride(t *testing.T) {
	t.Parallel()

	d := def("lab_default_test_code", strPtr("CBC01"))
	for _, scope := range []domain.Scope{program, portland, west} {
		got := Resolve(d, scope, NewSnapshot(nil))
		assert.False(t, got.IsOverride, scope.String())
		assert.Equal(t, domain.LevelDefault, got.Level)
		assert.Empty(t, got.Source)
		assert.Empty(t, got.Rationale)
		assert.Equal(t, domain.Scope{}, got.Origin)
	}
}

func TestResolveCopiesProvenance(t *testing.T) {
	t.Parallel()

	r := row("helpdesk_phone", portland, "503.216.6407")
	r.Source = domain.SourceImport
	r.SourceDocument = "portland-intake.docx"
	r.Rationale = "clinic runs its own desk"
	r.Version = 4

	got := Resolve(def("helpdesk_phone", nil), west, NewSnapshot([]*domain.ConfigValue{r}))
	assert.Equal(t, domain.SourceImport, got.Source)
	assert.Equal(t, "portland-intake.docx", got.SourceDocument)
	assert.Equal(t, "clinic runs its own desk", got.Rationale)
	assert.Equal(t, 4, got.Version)
	assert.Equal(t, portland, got.Origin)
}

func TestChain(t *testing.T) {
	t.Parallel()

	d := def("helpdesk_phone", strPtr("800.000.0000"))
	snap := NewSnapshot([]*domain.ConfigValue{
		row("helpdesk_phone", program, "800.555.0000"),
		row("helpdesk_phone", west, "503.000.0001"),
	})

	t.Run("location scope has four links", func(t *testing.T) {
		t.Parallel()
		links := Chain(d, west, snap)
		require.Len(t, links, 4)

		levels := []domain.Level{domain.LevelDefault, domain.LevelProgram, domain.LevelClinic, domain.LevelLocation}
		for i, link := range links {
			assert.Equal(t, levels[i], link.Level)
		}
		assert.Equal(t, "800.000.0000", *links[0].Value)
		assert.Equal(t, "800.555.0000", *links[1].Value)
		assert.Nil(t, links[2].Value, "nothing stored at the clinic")
		assert.Equal(t, "503.000.0001", *links[3].Value)

		assert.False(t, links[1].Effective)
		assert.True(t, links[3].Effective)
	})

	t.Run("program scope has default and program", func(t *testing.T) {
		t.Parallel()
		links := Chain(d, program, snap)
		require.Len(t, links, 2)
		assert.True(t, links[1].Effective)
		assert.False(t, links[0].Effective)
	})

	t.Run("default link is effective when nothing is stored", func(t *testing.T) {
		t.Parallel()
		links := Chain(d, salem, NewSnapshot(nil))
		require.Len(t, links, 3)
		assert.True(t, links[0].Effective)
		assert.Nil(t, links[0].Row)
	})

	t.Run("chain agrees with resolve", func(t *testing.T) {
		t.Parallel()
		for _, scope := range []domain.Scope{program, portland, west, east, salem} {
			var effective Link
			for _, link := range Chain(d, scope, snap) {
				if link.Effective {
					effective = link
				}
			}
			got := Resolve(d, scope, snap)
			assert.Equal(t, got.Level, effective.Level, scope.String())
			assert.Equal(t, got.Value, effective.Value, scope.String())
		}
	})
}

func TestShadowsAncestor(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot([]*domain.ConfigValue{row("k", program, "a")})
	assert.False(t, snap.ShadowsAncestor("k", program))
	assert.True(t, snap.ShadowsAncestor("k", portland))
	assert.True(t, snap.ShadowsAncestor("k", west))
	assert.False(t, snap.ShadowsAncestor("other", west))
}
