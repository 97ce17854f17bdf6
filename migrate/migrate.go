// Package migrate wires the migration engine together: catalog discovery,
// the version ledger, the executor, and the integrity validator, all sharing
// one explicitly constructed database handle whose lifecycle belongs to the
// caller.
package migrate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/afero"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/driftlock/driftlock/migrate/catalog"
	"github.com/driftlock/driftlock/migrate/executor"
	"github.com/driftlock/driftlock/migrate/ledger"
	"github.com/driftlock/driftlock/migrate/lease"
	"github.com/driftlock/driftlock/migrate/validate"
)

// Engine bundles the engine components over one database handle. Close the
// engine (or the handle, if you supplied it) when done.
type Engine struct {
	DB        *sqlx.DB
	Provider  string
	Catalog   *catalog.Catalog
	Executor  *executor.Executor
	Ledger    *ledger.Ledger
	Validator *validate.Validator
}

type settings struct {
	fs       afero.Fs
	log      *slog.Logger
	useLease bool
}

// Option configures engine construction.
type Option func(*settings)

// WithFs overrides the filesystem the catalog scans. Tests use an in-memory
// one.
func WithFs(fs afero.Fs) Option {
	return func(s *settings) { s.fs = fs }
}

// WithLogger sets the debug logger passed to the executor.
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) { s.log = log }
}

// WithoutLease disables the cross-process lease guard, restoring plain
// single-operator-process behavior.
func WithoutLease() Option {
	return func(s *settings) { s.useLease = false }
}

// Open connects to the database named by databaseURL, detecting the provider
// from the URL, and builds an engine over the migrations directory.
func Open(databaseURL, dir string, opts ...Option) (*Engine, error) {
	provider := DetectProvider(databaseURL)
	db, err := sqlx.Connect(DriverName(provider), DSN(provider, databaseURL))
	if err != nil {
		return nil, err
	}
	return NewEngine(db, provider, dir, opts...), nil
}

// NewEngine builds an engine over an already-open handle. The caller keeps
// responsibility for closing the handle unless it calls Engine.Close.
func NewEngine(db *sqlx.DB, provider, dir string, opts ...Option) *Engine {
	s := settings{
		fs:       afero.NewOsFs(),
		useLease: true,
	}
	for _, opt := range opts {
		opt(&s)
	}

	cat := catalog.New(s.fs, dir)
	led := ledger.New(db, provider)

	exOpts := []executor.Option{}
	if s.useLease {
		exOpts = append(exOpts, executor.WithLease(lease.New(db, provider)))
	}
	if s.log != nil {
		exOpts = append(exOpts, executor.WithLogger(s.log))
	}

	return &Engine{
		DB:        db,
		Provider:  provider,
		Catalog:   cat,
		Ledger:    led,
		Executor:  executor.New(db, cat, led, exOpts...),
		Validator: validate.New(cat, led),
	}
}

// Close releases the underlying database handle.
func (e *Engine) Close() error {
	return e.DB.Close()
}

// AutoApply is the startup hook for services: apply every pending migration
// before serving traffic. It opens its own connection and closes it when
// done.
func AutoApply(ctx context.Context, databaseURL, dir string, opts ...Option) (*executor.Report, error) {
	engine, err := Open(databaseURL, dir, opts...)
	if err != nil {
		return nil, err
	}
	defer engine.Close()
	return engine.Executor.ApplyPending(ctx)
}

// DetectProvider infers the provider from a connection string.
func DetectProvider(databaseURL string) string {
	switch {
	case strings.HasPrefix(databaseURL, "mysql://"), strings.Contains(databaseURL, "@tcp("):
		return "mysql"
	case strings.HasPrefix(databaseURL, "sqlite://"), strings.HasPrefix(databaseURL, "file:"),
		strings.HasSuffix(databaseURL, ".db"), databaseURL == ":memory:":
		return "sqlite"
	default:
		return "postgres"
	}
}

// DriverName maps a provider to its registered database/sql driver.
// The PostgreSQL driver registers as "postgres", SQLite as "sqlite3".
func DriverName(provider string) string {
	switch provider {
	case "postgresql", "postgres":
		return "postgres"
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return provider
	}
}

// DSN strips URL schemes the drivers do not understand. The postgres driver
// accepts full URLs; mysql and sqlite expect bare DSNs.
func DSN(provider, databaseURL string) string {
	switch provider {
	case "mysql":
		return strings.TrimPrefix(databaseURL, "mysql://")
	case "sqlite", "sqlite3":
		return strings.TrimPrefix(databaseURL, "sqlite://")
	default:
		return databaseURL
	}
}
