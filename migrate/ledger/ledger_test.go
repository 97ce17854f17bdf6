package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertEntry(t *testing.T, l *Ledger, db *sqlx.DB, version int64, name, checksum string) {
	t.Helper()
	ctx := context.Background()
	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	err = l.Insert(ctx, tx, &Entry{
		Version:         version,
		Name:            name,
		Checksum:        checksum,
		AppliedAt:       time.Now().UTC(),
		ExecutionTimeMs: 3,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	l := New(db, "sqlite")
	ctx := context.Background()

	require.NoError(t, l.EnsureSchema(ctx))
	require.NoError(t, l.EnsureSchema(ctx))

	applied, err := l.ListApplied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestEnsureSchemaRejectsUnknownProvider(t *testing.T) {
	db := newTestDB(t)
	l := New(db, "oracle")
	assert.Error(t, l.EnsureSchema(context.Background()))
}

func TestListAppliedOrdersByVersion(t *testing.T) {
	db := newTestDB(t)
	l := New(db, "sqlite")
	ctx := context.Background()
	require.NoError(t, l.EnsureSchema(ctx))

	insertEntry(t, l, db, 3, "third", Checksum([]byte("c")))
	insertEntry(t, l, db, 1, "first", Checksum([]byte("a")))
	insertEntry(t, l, db, 2, "second", Checksum([]byte("b")))

	applied, err := l.ListApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 3)
	assert.Equal(t, int64(1), applied[0].Version)
	assert.Equal(t, int64(2), applied[1].Version)
	assert.Equal(t, int64(3), applied[2].Version)
	assert.Equal(t, "second", applied[1].Name)
}

func TestGetReturnsNilWhenAbsent(t *testing.T) {
	db := newTestDB(t)
	l := New(db, "sqlite")
	ctx := context.Background()
	require.NoError(t, l.EnsureSchema(ctx))

	entry, err := l.Get(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestInsertRejectsDuplicateVersion(t *testing.T) {
	db := newTestDB(t)
	l := New(db, "sqlite")
	ctx := context.Background()
	require.NoError(t, l.EnsureSchema(ctx))

	insertEntry(t, l, db, 1, "first", Checksum([]byte("a")))

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	err = l.Insert(ctx, tx, &Entry{Version: 1, Name: "again", Checksum: Checksum([]byte("x")), AppliedAt: time.Now().UTC()})
	assert.Error(t, err)
	_ = tx.Rollback()
}

func TestDeleteByVersion(t *testing.T) {
	db := newTestDB(t)
	l := New(db, "sqlite")
	ctx := context.Background()
	require.NoError(t, l.EnsureSchema(ctx))

	insertEntry(t, l, db, 1, "first", Checksum([]byte("a")))
	insertEntry(t, l, db, 2, "second", Checksum([]byte("b")))

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, l.DeleteByVersion(ctx, tx, 2))
	require.NoError(t, tx.Commit())

	applied, err := l.ListApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, int64(1), applied[0].Version)

	tx, err = db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	err = l.DeleteByVersion(ctx, tx, 2)
	assert.Error(t, err, "deleting an absent version should fail")
	_ = tx.Rollback()
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("CREATE TABLE t (a INTEGER);"))
	b := Checksum([]byte("CREATE TABLE t (a INTEGER);"))
	c := Checksum([]byte("CREATE TABLE t (a INTEGER); -- edited"))

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
