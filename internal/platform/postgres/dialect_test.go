package postgres_test

import (
	"testing"
	"time"

	"github.com/phrazzld/hierconf/internal/platform/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect(t *testing.T) {
	t.Parallel()

	d := postgres.Dialect{}
	assert.Equal(t, "postgres", d.Name())
	assert.Equal(t,
		"SELECT 1 FROM config_values WHERE program_id = $1 AND clinic_id IN ('', $2)",
		d.Rebind("SELECT 1 FROM config_values WHERE program_id = ? AND clinic_id IN ('', ?)"))

	local := time.Date(2025, 3, 1, 9, 30, 0, 0, time.FixedZone("PST", -8*3600))
	got, ok := d.TimeArg(local).(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(local))
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	src := postgres.Migrations()
	assert.Equal(t, "postgres", src.Dialect)

	for _, name := range []string{"00001_init_schema.sql", "00002_providers_and_relationships.sql"} {
		raw, err := src.FS.Open(name)
		require.NoError(t, err, name)
		_ = raw.Close()
	}
}
