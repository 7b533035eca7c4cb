package resolution

import (
	"testing"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		def      *domain.Definition
		rows     []*domain.ConfigValue
		child    domain.Scope
		parent   domain.Scope
		wantKind ChangeKind
		wantNone bool
	}{
		{
			name:     "inherited value is not a difference",
			def:      def("k", nil),
			rows:     []*domain.ConfigValue{row("k", program, "a")},
			child:    west,
			parent:   portland,
			wantNone: true,
		},
		{
			name:     "override with the same value is not a difference",
			def:      def("k", nil),
			rows:     []*domain.ConfigValue{row("k", program, "a"), row("k", west, "a")},
			child:    west,
			parent:   portland,
			wantNone: true,
		},
		{
			name:     "child override over nothing",
			def:      def("k", nil),
			rows:     []*domain.ConfigValue{row("k", west, "a")},
			child:    west,
			parent:   portland,
			wantKind: ChangeAdded,
		},
		{
			name:     "child override over a default",
			def:      def("k", strPtr("d")),
			rows:     []*domain.ConfigValue{row("k", portland, "a")},
			child:    portland,
			parent:   program,
			wantKind: ChangeAdded,
		},
		{
			name:     "inherited override over a default",
			def:      def("k", strPtr("d")),
			rows:     []*domain.ConfigValue{row("k", portland, "x")},
			child:    west,
			parent:   program,
			wantKind: ChangeAdded,
		},
		{
			name:     "child override over a parent value",
			def:      def("k", nil),
			rows:     []*domain.ConfigValue{row("k", program, "a"), row("k", portland, "b")},
			child:    portland,
			parent:   program,
			wantKind: ChangeChanged,
		},
		{
			name: "closer ancestor hides the parent value",
			def:  def("k", nil),
			rows: []*domain.ConfigValue{
				row("k", program, "a"),
				row("k", portland, "b"),
			},
			child:    west,
			parent:   program,
			wantKind: ChangeRemoved,
		},
		{
			name:     "parent outside the child's chain",
			def:      def("k", nil),
			rows:     []*domain.ConfigValue{row("k", salem, "s")},
			child:    west,
			parent:   salem,
			wantKind: ChangeRemoved,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			snap := NewSnapshot(tc.rows)
			got := Diff([]*domain.Definition{tc.def}, tc.child, tc.parent, snap)

			c := Resolve(tc.def, tc.child, snap)
			p := Resolve(tc.def, tc.parent, snap)
			assert.Equal(t, c.Equal(p), len(got) == 0, "empty iff the resolved values match")

			if tc.wantNone {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tc.wantKind, got[0].Kind)
			assert.Equal(t, "k", got[0].Key)
		})
	}
}

func TestDiffManyKeys(t *testing.T) {
	t.Parallel()

	defs := []*domain.Definition{def("a", nil), def("b", strPtr("x")), def("c", nil)}
	snap := NewSnapshot([]*domain.ConfigValue{
		row("a", program, "1"),
		row("b", portland, "y"),
		row("c", program, "3"),
		row("c", portland, "4"),
	})

	got := Diff(defs, portland, program, snap)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Key)
	assert.Equal(t, ChangeAdded, got[0].Kind)
	assert.Equal(t, "c", got[1].Key)
	assert.Equal(t, ChangeChanged, got[1].Kind)
}
