package service_test

import (
	"testing"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearProgram(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		keepStructure bool
		want          service.ClearReport
	}{
		{
			name:          "values only",
			keepStructure: true,
			want:          service.ClearReport{ConfigValues: 3},
		},
		{
			name: "everything below the program",
			want: service.ClearReport{ConfigValues: 3, Providers: 1, Locations: 2, Clinics: 2},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			backends(t, func(t *testing.T, f *fixture) {
				f.seed(t)
				f.define(t, &domain.Definition{Key: "k"})
				f.define(t, &domain.Definition{Key: "fax"})
				f.set(t, "k", p4m, "program")
				f.set(t, "k", west, "location")
				f.set(t, "fax", portland, "503.555.0199")
				_, _, err := f.providers.Add(f.ctx, service.AddProviderRequest{LocationID: "LOC-W", Name: "Jane Smith, MD"})
				require.NoError(t, err)
				before := len(f.events.snapshot())

				report, err := f.values.ClearProgram(f.ctx, service.ClearRequest{
					ProgramID:     "P4M",
					KeepStructure: tc.keepStructure,
					Actor:         "importer",
				})
				require.NoError(t, err)
				assert.Equal(t, tc.want, *report)

				rows, err := f.stores.Values.ListByProgram(f.ctx, "P4M", "")
				require.NoError(t, err)
				assert.Empty(t, rows)

				// History is kept and gains a delete per cleared value.
				entries := f.history(t, "k", west)
				require.Len(t, entries, 2)
				assert.Equal(t, "deleted", entries[0].Action())
				assert.Equal(t, "importer", entries[0].ChangedBy)
				assert.Equal(t, "cleared for reimport", entries[0].Reason)
				assert.Equal(t, "location", *entries[0].OldValue)
				assert.Len(t, f.events.snapshot(), before+3)

				h, err := f.hierarchy.Load(f.ctx, "P4M")
				require.NoError(t, err, "the program itself is kept")
				providers, err := f.providers.List(f.ctx, service.ProviderFilter{ProgramID: "P4M"})
				require.NoError(t, err)
				if tc.keepStructure {
					assert.Len(t, h.Clinics, 2)
					assert.Len(t, providers, 1)
				} else {
					assert.Empty(t, h.Clinics)
					assert.Empty(t, providers)
				}

				// The program can be filled again after clearing.
				row := f.set(t, "k", p4m, "reimported")
				assert.Equal(t, 2, row.Version, "versions continue across the clear")
			})
		})
	}
}

func TestClearProgram_UnknownProgram(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, f *fixture) {
		_, err := f.values.ClearProgram(f.ctx, service.ClearRequest{ProgramID: "NOPE"})
		assert.ErrorIs(t, err, domain.ErrInvalidScope)
	})
}
