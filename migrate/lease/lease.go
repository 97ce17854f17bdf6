// Package lease guards apply and rollback runs against a second operator
// process racing the same datastore. The guard is a single lease row inside
// the target database: acquired before the pending set is computed, released
// when the run finishes, and stealable once its expiry passes so a crashed
// holder cannot wedge the tool forever.
package lease

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TableName is the lease table. Like the ledger it is engine-owned and never
// part of a user migration.
const TableName = "_driftlock_lease"

// DefaultTTL bounds how long a crashed process can hold the lease.
const DefaultTTL = 5 * time.Minute

// HeldError indicates another process currently holds the lease.
type HeldError struct {
	Holder    string
	ExpiresAt time.Time
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("migration lease held by %s until %s", e.Holder, e.ExpiresAt.Format(time.RFC3339))
}

// Guard acquires and releases the lease row.
type Guard struct {
	db       *sqlx.DB
	provider string
	holder   string
	ttl      time.Duration
}

type leaseRow struct {
	ID         int64     `db:"id"`
	Token      string    `db:"token"`
	Holder     string    `db:"holder"`
	AcquiredAt time.Time `db:"acquired_at"`
	ExpiresAt  time.Time `db:"expires_at"`
}

// New creates a guard. The holder label defaults to hostname/pid.
func New(db *sqlx.DB, provider string) *Guard {
	hostname, _ := os.Hostname()
	return &Guard{
		db:       db,
		provider: provider,
		holder:   fmt.Sprintf("%s/%d", hostname, os.Getpid()),
		ttl:      DefaultTTL,
	}
}

// WithTTL overrides the lease expiry window.
func (g *Guard) WithTTL(ttl time.Duration) *Guard {
	g.ttl = ttl
	return g
}

// Lease is a held lease. Release it when the run finishes.
type Lease struct {
	guard *Guard
	token string
}

// Token returns the uuid identifying this acquisition.
func (l *Lease) Token() string {
	return l.token
}

// Acquire takes the lease, stealing an expired one if necessary. A live
// lease held elsewhere yields a HeldError.
func (g *Guard) Acquire(ctx context.Context) (*Lease, error) {
	if err := g.ensureSchema(ctx); err != nil {
		return nil, err
	}

	token := uuid.NewString()
	now := time.Now().UTC()

	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin lease transaction: %w", err)
	}

	var current leaseRow
	query := tx.Rebind(fmt.Sprintf(`SELECT id, token, holder, acquired_at, expires_at FROM %s WHERE id = ?`, TableName))
	err = tx.GetContext(ctx, &current, query, 1)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		insert := tx.Rebind(fmt.Sprintf(`INSERT INTO %s (id, token, holder, acquired_at, expires_at)
			VALUES (?, ?, ?, ?, ?)`, TableName))
		if _, err := tx.ExecContext(ctx, insert, 1, token, g.holder, now, now.Add(g.ttl)); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to insert lease: %w", err)
		}
	case err != nil:
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to read lease: %w", err)
	case current.ExpiresAt.After(now):
		_ = tx.Rollback()
		return nil, &HeldError{Holder: current.Holder, ExpiresAt: current.ExpiresAt}
	default:
		// Expired: steal it, guarded by the old token so two stealers
		// cannot both win.
		update := tx.Rebind(fmt.Sprintf(`UPDATE %s SET token = ?, holder = ?, acquired_at = ?, expires_at = ?
			WHERE id = ? AND token = ?`, TableName))
		res, err := tx.ExecContext(ctx, update, token, g.holder, now, now.Add(g.ttl), 1, current.Token)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to steal expired lease: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			_ = tx.Rollback()
			return nil, &HeldError{Holder: current.Holder, ExpiresAt: current.ExpiresAt}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit lease acquisition: %w", err)
	}

	return &Lease{guard: g, token: token}, nil
}

// Release gives the lease up. Releasing a lease that was already stolen
// after expiry is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	query := l.guard.db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND token = ?`, TableName))
	if _, err := l.guard.db.ExecContext(ctx, query, 1, l.token); err != nil {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

func (g *Guard) ensureSchema(ctx context.Context) error {
	ddl := g.createTableSQL()
	if ddl == "" {
		return fmt.Errorf("unsupported provider %q", g.provider)
	}
	if _, err := g.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create lease table: %w", err)
	}
	return nil
}

func (g *Guard) createTableSQL() string {
	switch g.provider {
	case "postgresql", "postgres":
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INT PRIMARY KEY,
				token VARCHAR(36) NOT NULL,
				holder VARCHAR(255) NOT NULL,
				acquired_at TIMESTAMP NOT NULL,
				expires_at TIMESTAMP NOT NULL
			)
		`, TableName)
	case "mysql":
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INT PRIMARY KEY,
				token VARCHAR(36) NOT NULL,
				holder VARCHAR(255) NOT NULL,
				acquired_at TIMESTAMP NOT NULL,
				expires_at TIMESTAMP NOT NULL
			)
		`, TableName)
	case "sqlite", "sqlite3":
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY,
				token TEXT NOT NULL,
				holder TEXT NOT NULL,
				acquired_at DATETIME NOT NULL,
				expires_at DATETIME NOT NULL
			)
		`, TableName)
	default:
		return ""
	}
}
