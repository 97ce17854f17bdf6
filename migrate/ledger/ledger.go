// Package ledger maintains the durable record of applied migrations inside
// the target datastore itself.
package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// TableName is the ledger table. It is created by the engine on first use
// and is never part of a user migration.
const TableName = "_driftlock_migrations"

// Entry is one applied migration. Once written, the checksum for a version
// is immutable truth: a later mismatch against the on-disk script is drift.
type Entry struct {
	ID              int64     `db:"id"`
	Version         int64     `db:"version"`
	Name            string    `db:"name"`
	Checksum        string    `db:"checksum"`
	AppliedAt       time.Time `db:"applied_at"`
	ExecutionTimeMs int64     `db:"execution_time_ms"`
}

// Ledger reads and writes the migration history table.
type Ledger struct {
	db       *sqlx.DB
	provider string
}

// New creates a ledger over an open database handle. Supported providers:
// postgres, mysql, sqlite.
func New(db *sqlx.DB, provider string) *Ledger {
	return &Ledger{db: db, provider: provider}
}

// EnsureSchema idempotently creates the ledger table. Safe to call on every
// startup.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	ddl := l.createTableSQL()
	if ddl == "" {
		return fmt.Errorf("unsupported provider %q", l.provider)
	}
	if _, err := l.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create ledger table: %w", err)
	}
	return nil
}

// ListApplied returns every ledger entry ordered by version ascending.
func (l *Ledger) ListApplied(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	query := fmt.Sprintf(`SELECT id, version, name, checksum, applied_at, execution_time_ms
		FROM %s ORDER BY version ASC`, TableName)
	if err := l.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	return entries, nil
}

// Get returns the entry at version, or nil when none has been recorded.
func (l *Ledger) Get(ctx context.Context, version int64) (*Entry, error) {
	var entry Entry
	query := l.db.Rebind(fmt.Sprintf(`SELECT id, version, name, checksum, applied_at, execution_time_ms
		FROM %s WHERE version = ?`, TableName))
	err := l.db.GetContext(ctx, &entry, query, version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger for version %d: %w", version, err)
	}
	return &entry, nil
}

// Insert records an applied migration. It runs on the executor-owned
// transaction that also executed the script, never standalone.
func (l *Ledger) Insert(ctx context.Context, tx *sqlx.Tx, entry *Entry) error {
	query := tx.Rebind(fmt.Sprintf(`INSERT INTO %s (version, name, checksum, applied_at, execution_time_ms)
		VALUES (?, ?, ?, ?, ?)`, TableName))
	_, err := tx.ExecContext(ctx, query,
		entry.Version, entry.Name, entry.Checksum, entry.AppliedAt, entry.ExecutionTimeMs)
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", entry.Version, err)
	}
	return nil
}

// DeleteByVersion removes the entry at version. Like Insert it only ever
// runs on an executor-owned transaction.
func (l *Ledger) DeleteByVersion(ctx context.Context, tx *sqlx.Tx, version int64) error {
	query := tx.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE version = ?`, TableName))
	res, err := tx.ExecContext(ctx, query, version)
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry %d: %w", version, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no ledger entry for version %d", version)
	}
	return nil
}

// Checksum returns the hex sha256 digest of a script's exact byte content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (l *Ledger) createTableSQL() string {
	switch l.provider {
	case "postgresql", "postgres":
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id SERIAL PRIMARY KEY,
				version BIGINT NOT NULL UNIQUE,
				name VARCHAR(255) NOT NULL,
				checksum VARCHAR(64) NOT NULL,
				applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				execution_time_ms BIGINT NOT NULL DEFAULT 0
			)
		`, TableName)
	case "mysql":
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INT AUTO_INCREMENT PRIMARY KEY,
				version BIGINT NOT NULL UNIQUE,
				name VARCHAR(255) NOT NULL,
				checksum VARCHAR(64) NOT NULL,
				applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				execution_time_ms INT NOT NULL DEFAULT 0
			)
		`, TableName)
	case "sqlite", "sqlite3":
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				version INTEGER NOT NULL UNIQUE,
				name TEXT NOT NULL,
				checksum TEXT NOT NULL,
				applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				execution_time_ms INTEGER NOT NULL DEFAULT 0
			)
		`, TableName)
	default:
		return ""
	}
}
