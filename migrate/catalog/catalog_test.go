package catalog

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
}

func TestListAllSortsNumerically(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "migrations/10_add_index.sql", "CREATE INDEX i ON t(a);")
	writeScript(t, fs, "migrations/9_create_table.sql", "CREATE TABLE t (a INTEGER);")
	writeScript(t, fs, "migrations/2_seed.sql", "INSERT INTO t VALUES (1);")

	descriptors, err := New(fs, "migrations").ListAll()
	require.NoError(t, err)
	require.Len(t, descriptors, 3)

	// Lexical order would put 10 before 9.
	assert.Equal(t, int64(2), descriptors[0].Version)
	assert.Equal(t, int64(9), descriptors[1].Version)
	assert.Equal(t, int64(10), descriptors[2].Version)
	assert.Equal(t, "create_table", descriptors[1].Name)
}

func TestListAllCreatesMissingDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()

	descriptors, err := New(fs, "migrations").ListAll()
	require.NoError(t, err)
	assert.Empty(t, descriptors)

	exists, err := afero.DirExists(fs, "migrations/rollback")
	require.NoError(t, err)
	assert.True(t, exists, "bootstrap should create the rollback subdirectory too")
}

func TestListAllPairsRollbackScripts(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "migrations/001_init.sql", "CREATE TABLE a (id INTEGER);")
	writeScript(t, fs, "migrations/002_extend.sql", "CREATE TABLE b (id INTEGER);")
	writeScript(t, fs, "migrations/rollback/001_init.rollback.sql", "DROP TABLE a;")

	descriptors, err := New(fs, "migrations").ListAll()
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	assert.True(t, descriptors[0].HasRollback())
	assert.Equal(t, "migrations/rollback/001_init.rollback.sql", descriptors[0].RollbackPath)
	assert.False(t, descriptors[1].HasRollback())
}

func TestListAllRejectsDuplicateVersions(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "migrations/001_first.sql", "SELECT 1;")
	writeScript(t, fs, "migrations/1_second.sql", "SELECT 2;")

	_, err := New(fs, "migrations").ListAll()
	var dup *DuplicateVersionError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, int64(1), dup.Version)
}

func TestListAllRejectsMalformedNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "migrations/init.sql", "SELECT 1;")

	_, err := New(fs, "migrations").ListAll()
	var malformed *MalformedVersionError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "init.sql", malformed.Identifier)
}

func TestListAllIgnoresNonSQLFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "migrations/README.md", "# notes")
	writeScript(t, fs, "migrations/001_init.sql", "SELECT 1;")

	descriptors, err := New(fs, "migrations").ListAll()
	require.NoError(t, err)
	assert.Len(t, descriptors, 1)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		identifier string
		version    int64
		wantErr    bool
	}{
		{"001_init.sql", 1, false},
		{"42_add_users", 42, false},
		{"0_bootstrap.sql", 0, false},
		{"10_b.sql", 10, false},
		{"init.sql", 0, true},
		{"_5_no.sql", 0, true},
		{"", 0, true},
		// Past int64 range: must fail, not silently wrap.
		{"99999999999999999999_x.sql", 0, true},
		{"9223372036854775807_max.sql", 9223372036854775807, false},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			version, err := ParseVersion(tt.identifier)
			if tt.wantErr {
				var malformed *MalformedVersionError
				require.True(t, errors.As(err, &malformed))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.version, version)
		})
	}
}

func TestReadScriptReturnsExactBytes(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := "CREATE TABLE t (a INTEGER);\n-- trailing comment\n"
	writeScript(t, fs, "migrations/001_init.sql", content)

	c := New(fs, "migrations")
	descriptors, err := c.ListAll()
	require.NoError(t, err)

	got, err := c.ReadScript(descriptors[0])
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestReadRollbackWithoutPairFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "migrations/001_init.sql", "SELECT 1;")

	c := New(fs, "migrations")
	descriptors, err := c.ListAll()
	require.NoError(t, err)

	_, err = c.ReadRollback(descriptors[0])
	assert.Error(t, err)
}

func TestNextVersionToleratesGaps(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeScript(t, fs, "migrations/001_a.sql", "SELECT 1;")
	writeScript(t, fs, "migrations/005_b.sql", "SELECT 2;")

	next, err := New(fs, "migrations").NextVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(6), next)
}

func TestScaffold(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(fs, "migrations")

	d, err := c.Scaffold("Add Users!")
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Version)
	assert.Equal(t, "add_users", d.Name)
	assert.Equal(t, "migrations/001_add_users.sql", d.ScriptPath)
	assert.Equal(t, "migrations/rollback/001_add_users.rollback.sql", d.RollbackPath)

	for _, path := range []string{d.ScriptPath, d.RollbackPath} {
		exists, err := afero.Exists(fs, path)
		require.NoError(t, err)
		assert.True(t, exists, path)
	}

	second, err := c.Scaffold("add-index")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	_, err = c.Scaffold("!!!")
	assert.Error(t, err)
}
