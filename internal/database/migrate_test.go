package database

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := LoadMigrations(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	first := migrations[0]
	assert.Equal(t, "001", first.Version)
	assert.Equal(t, "migrations/001_create_blobs_table.up.sql", first.Up)
	assert.Equal(t, "migrations/001_create_blobs_table.down.sql", first.Down)

	up, err := fs.ReadFile(migrationsFS, first.Up)
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS blobs")
}

func TestLoadMigrations(t *testing.T) {
	tests := []struct {
		name     string
		files    fstest.MapFS
		versions []string
		wantErr  string
	}{
		{
			name: "sorted by version",
			files: fstest.MapFS{
				"m/002_b.up.sql":   {Data: []byte("SELECT 2")},
				"m/002_b.down.sql": {Data: []byte("SELECT -2")},
				"m/001_a.up.sql":   {Data: []byte("SELECT 1")},
				"m/README.md":      {Data: []byte("ignored")},
			},
			versions: []string{"001", "002"},
		},
		{
			name: "down without up",
			files: fstest.MapFS{
				"m/001_a.down.sql": {Data: []byte("SELECT 1")},
			},
			wantErr: "has no up file",
		},
		{
			name: "missing version prefix",
			files: fstest.MapFS{
				"m/create.up.sql": {Data: []byte("SELECT 1")},
			},
			wantErr: "no version prefix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			migrations, err := LoadMigrations(tt.files, "m")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)

			versions := make([]string, 0, len(migrations))
			for _, m := range migrations {
				versions = append(versions, m.Version)
			}
			assert.Equal(t, tt.versions, versions)
		})
	}
}
