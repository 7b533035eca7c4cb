package service_test

import (
	"regexp"
	"testing"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchyService(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, f *fixture) {
		program := &domain.Program{Name: "Prevention4ME", Prefix: "p4m"}
		require.NoError(t, f.hierarchy.CreateProgram(f.ctx, program))
		assert.Regexp(t, regexp.MustCompile(`^P4M-[0-9A-F]{8}$`), program.ID)

		clinic := &domain.Clinic{ProgramID: program.ID, Name: "Portland"}
		require.NoError(t, f.hierarchy.CreateClinic(f.ctx, clinic))
		assert.Regexp(t, `^CLN-[0-9A-F]{8}$`, clinic.ID)

		location := &domain.Location{ClinicID: clinic.ID, Name: "West"}
		require.NoError(t, f.hierarchy.CreateLocation(f.ctx, location))
		assert.Regexp(t, `^LOC-[0-9A-F]{8}$`, location.ID)
		assert.True(t, location.Active)

		h, err := f.hierarchy.Load(f.ctx, program.ID)
		require.NoError(t, err)
		require.Len(t, h.Clinics, 1)
		require.Len(t, h.Clinics[0].Locations, 1)
		assert.Equal(t, []domain.Scope{domain.LocationScope(program.ID, clinic.ID, location.ID)}, h.LeafScopes())

		require.NoError(t, f.hierarchy.SetLocationActive(f.ctx, location.ID, false))
		h, err = f.hierarchy.Load(f.ctx, program.ID)
		require.NoError(t, err)
		assert.Empty(t, h.LeafScopes())

		programs, err := f.hierarchy.Programs(f.ctx)
		require.NoError(t, err)
		assert.Len(t, programs, 1)
	})
}

func TestHierarchyService_Errors(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, f *fixture) {
		f.seed(t)

		err := f.hierarchy.CreateProgram(f.ctx, &domain.Program{ID: "P4M", Name: "again"})
		assert.Error(t, err)

		err = f.hierarchy.CreateProgram(f.ctx, &domain.Program{Name: " "})
		assert.ErrorIs(t, err, domain.ErrValidation)

		err = f.hierarchy.CreateClinic(f.ctx, &domain.Clinic{ProgramID: "NOPE", Name: "Bend"})
		assert.Error(t, err)

		err = f.hierarchy.CreateLocation(f.ctx, &domain.Location{ClinicID: "CLN-NOPE", Name: "North"})
		assert.Error(t, err)

		assert.Error(t, f.hierarchy.SetLocationActive(f.ctx, "LOC-NOPE", true))

		_, err = f.hierarchy.Load(f.ctx, "NOPE")
		assert.ErrorIs(t, err, domain.ErrInvalidScope)
	})
}

func TestHierarchyService_FindProgram(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, f *fixture) {
		f.seed(t)

		for _, identifier := range []string{"P4M", " P4M ", "Prevention4ME", "prevention", "4me"} {
			p, err := f.hierarchy.FindProgram(f.ctx, identifier)
			require.NoError(t, err, identifier)
			assert.Equal(t, "P4M", p.ID, identifier)
		}

		_, err := f.hierarchy.FindProgram(f.ctx, "Discover")
		assert.ErrorIs(t, err, store.ErrProgramNotFound)
		_, err = f.hierarchy.FindProgram(f.ctx, "  ")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestHierarchyService_AttachProgram(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, f *fixture) {
		f.seed(t)
		require.NoError(t, f.hierarchy.CreateProgram(f.ctx, &domain.Program{ID: "DISC", Name: "Discover", Prefix: "DSC"}))

		rel, err := f.hierarchy.AttachProgram(f.ctx, "P4M", "DISC", "")
		require.NoError(t, err)
		assert.Equal(t, domain.RelationshipUses, rel.Type)
		assert.NotZero(t, rel.ID)

		attached, err := f.hierarchy.AttachedPrograms(f.ctx, "P4M")
		require.NoError(t, err)
		require.Len(t, attached, 1)
		assert.Equal(t, "Discover", attached[0].Name)
		assert.Equal(t, domain.RelationshipUses, attached[0].RelationshipType)

		tests := []struct {
			name     string
			parent   string
			attached string
			relType  domain.RelationshipType
			wantErr  error
		}{
			{"already attached", "P4M", "DISC", domain.RelationshipRequires, store.ErrDuplicate},
			{"self", "P4M", "P4M", "", domain.ErrValidation},
			{"unknown type", "DISC", "P4M", "owns", domain.ErrValidation},
			{"unknown parent", "NOPE", "DISC", "", domain.ErrInvalidScope},
			{"unknown attached", "DISC", "NOPE", "", domain.ErrInvalidScope},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.hierarchy.AttachProgram(f.ctx, tc.parent, tc.attached, tc.relType)
				assert.ErrorIs(t, err, tc.wantErr)
			})
		}

		none, err := f.hierarchy.AttachedPrograms(f.ctx, "DISC")
		require.NoError(t, err)
		assert.Empty(t, none, "attachment is one-way")
	})
}
