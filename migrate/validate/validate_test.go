package validate

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlock/driftlock/migrate/catalog"
	"github.com/driftlock/driftlock/migrate/executor"
	"github.com/driftlock/driftlock/migrate/ledger"
)

type env struct {
	fs        afero.Fs
	catalog   *catalog.Catalog
	executor  *executor.Executor
	validator *Validator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	fs := afero.NewMemMapFs()
	cat := catalog.New(fs, "migrations")
	led := ledger.New(db, "sqlite")
	return &env{
		fs:        fs,
		catalog:   cat,
		executor:  executor.New(db, cat, led),
		validator: New(cat, led),
	}
}

func (e *env) write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(e.fs, path, []byte(content), 0644))
}

func TestValidateCleanLedger(t *testing.T) {
	e := newEnv(t)
	e.write(t, "migrations/001_a.sql", "CREATE TABLE a (x INTEGER);")
	e.write(t, "migrations/002_b.sql", "CREATE TABLE b (x INTEGER);")

	ctx := context.Background()
	_, err := e.executor.ApplyPending(ctx)
	require.NoError(t, err)

	result, err := e.validator.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Equal(t, 2, result.Checked)
}

func TestValidateEmptyLedger(t *testing.T) {
	e := newEnv(t)

	result, err := e.validator.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Valid())
	assert.Zero(t, result.Checked)
}

func TestValidateReportsSingleChecksumViolation(t *testing.T) {
	e := newEnv(t)
	e.write(t, "migrations/001_a.sql", "CREATE TABLE a (x INTEGER);")
	e.write(t, "migrations/002_b.sql", "CREATE TABLE b (x INTEGER);")

	ctx := context.Background()
	_, err := e.executor.ApplyPending(ctx)
	require.NoError(t, err)

	e.write(t, "migrations/002_b.sql", "CREATE TABLE b (x INTEGER, y INTEGER);")

	result, err := e.validator.Validate(ctx)
	require.NoError(t, err)
	assert.False(t, result.Valid())
	require.Len(t, result.Violations, 1)

	violation := result.Violations[0]
	assert.Equal(t, int64(2), violation.Version)
	assert.False(t, violation.MissingFile)
	assert.NotEqual(t, violation.Expected, violation.Actual)
	assert.Len(t, violation.Actual, 64)
}

func TestValidateReportsMissingFile(t *testing.T) {
	e := newEnv(t)
	e.write(t, "migrations/001_a.sql", "CREATE TABLE a (x INTEGER);")

	ctx := context.Background()
	_, err := e.executor.ApplyPending(ctx)
	require.NoError(t, err)

	require.NoError(t, e.fs.Remove("migrations/001_a.sql"))

	result, err := e.validator.Validate(ctx)
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)
	assert.True(t, result.Violations[0].MissingFile)
	assert.Equal(t, int64(1), result.Violations[0].Version)
	assert.Empty(t, result.Violations[0].Actual)
}

func TestValidateNeverMutates(t *testing.T) {
	e := newEnv(t)
	e.write(t, "migrations/001_a.sql", "CREATE TABLE a (x INTEGER);")

	ctx := context.Background()
	_, err := e.executor.ApplyPending(ctx)
	require.NoError(t, err)

	e.write(t, "migrations/001_a.sql", "CREATE TABLE a (x INTEGER); -- tampered")

	for i := 0; i < 2; i++ {
		result, err := e.validator.Validate(ctx)
		require.NoError(t, err)
		require.Len(t, result.Violations, 1, "violation must persist, never be silently repaired")
	}
}
