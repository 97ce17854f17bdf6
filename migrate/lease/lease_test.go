package lease

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

func TestAcquireAndRelease(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	guard := New(db, "sqlite")
	held, err := guard.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, held.Token())

	require.NoError(t, held.Release(ctx))

	// Released lease is immediately reacquirable.
	again, err := guard.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, held.Token(), again.Token())
}

func TestSecondAcquireIsRejected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := New(db, "sqlite")
	held, err := first.Acquire(ctx)
	require.NoError(t, err)
	defer func() { _ = held.Release(ctx) }()

	second := New(db, "sqlite")
	_, err = second.Acquire(ctx)
	var heldErr *HeldError
	require.ErrorAs(t, err, &heldErr)
	assert.NotEmpty(t, heldErr.Holder)
}

func TestExpiredLeaseIsStolen(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	crashed := New(db, "sqlite").WithTTL(time.Millisecond)
	held, err := crashed.Acquire(ctx)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	// The crashed holder never released; its expiry lets a new run proceed.
	successor := New(db, "sqlite")
	stolen, err := successor.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, held.Token(), stolen.Token())

	// Releasing the stale lease must not clobber the stolen one.
	require.NoError(t, held.Release(ctx))
	_, err = New(db, "sqlite").Acquire(ctx)
	var heldErr *HeldError
	require.ErrorAs(t, err, &heldErr)
}
