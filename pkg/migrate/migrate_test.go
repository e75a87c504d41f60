package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"m/001_create_bands.up.sql":   {Data: []byte(`CREATE TABLE bands (name TEXT PRIMARY KEY)`)},
		"m/001_create_bands.down.sql": {Data: []byte(`DROP TABLE bands`)},
		"m/002_add_settings.up.sql":   {Data: []byte(`CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT)`)},
		"m/002_add_settings.down.sql": {Data: []byte(`DROP TABLE settings`)},
		"m/README.md":                 {Data: []byte(`ignored`)},
	}
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n))
	return n > 0
}

func TestFSProviderGetMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testFS(), "m", "").GetMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create bands", migrations[0].Name)
	assert.NotEmpty(t, migrations[0].Down)
	assert.Equal(t, 2, migrations[1].Version)
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testFS(), "m", "schema_migrations"))

	applied, err := m.MigrateUp()
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.True(t, tableExists(t, db, "settings"))

	version, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	// nothing left to apply
	applied, err = m.MigrateUp()
	require.NoError(t, err)
	assert.Zero(t, applied)

	require.NoError(t, m.MigrateDown(1))
	assert.False(t, tableExists(t, db, "settings"))
	assert.True(t, tableExists(t, db, "bands"))
	version, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	assert.Error(t, m.MigrateDown(1))
}
