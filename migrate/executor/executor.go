// Package executor orchestrates ordered application and rollback of
// migrations. Every apply or rollback step runs inside one transaction that
// also covers the ledger mutation, so no partial state is observable outside
// a transaction boundary.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/driftlock/driftlock/migrate/catalog"
	"github.com/driftlock/driftlock/migrate/ledger"
	"github.com/driftlock/driftlock/migrate/lease"
)

// Executor applies pending migrations strictly sequentially, in ascending
// version order, one transaction per step. It assumes it is the only writer
// within the process; cross-process races are guarded by the optional lease.
type Executor struct {
	db      *sqlx.DB
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	guard   *lease.Guard
	log     *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLease enables the cross-process lease guard around apply, rollback,
// and reset runs.
func WithLease(g *lease.Guard) Option {
	return func(e *Executor) { e.guard = g }
}

// WithLogger sets the debug logger. Discarded by default.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// New creates an executor over an open database handle.
func New(db *sqlx.DB, cat *catalog.Catalog, led *ledger.Ledger, opts ...Option) *Executor {
	e := &Executor{
		db:      db,
		catalog: cat,
		ledger:  led,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Applied describes one migration committed by a run.
type Applied struct {
	Version  int64
	Name     string
	Duration time.Duration
}

// Report summarizes an apply run. Zero applied migrations means the
// datastore was already up to date, which is not an error.
type Report struct {
	Applied []Applied
}

// UpToDate reports whether the run found nothing pending.
func (r *Report) UpToDate() bool {
	return len(r.Applied) == 0
}

// ApplyPending applies every catalog migration absent from the ledger, in
// ascending version order. Drift on any already-applied script aborts the
// run before the first pending migration is touched. A failing script rolls
// its transaction back and stops the run; earlier commits stand.
func (e *Executor) ApplyPending(ctx context.Context) (*Report, error) {
	if err := e.ledger.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return e.applyPending(ctx)
}

func (e *Executor) applyPending(ctx context.Context) (*Report, error) {
	descriptors, err := e.catalog.ListAll()
	if err != nil {
		return nil, err
	}
	applied, err := e.ledger.ListApplied(ctx)
	if err != nil {
		return nil, err
	}

	appliedByVersion := make(map[int64]ledger.Entry, len(applied))
	for _, entry := range applied {
		appliedByVersion[entry.Version] = entry
	}

	// Verify already-applied scripts before applying anything new: drift is
	// a fatal integrity violation, not something to migrate past.
	report := &Report{}
	var pending []catalog.Descriptor
	for _, d := range descriptors {
		entry, ok := appliedByVersion[d.Version]
		if !ok {
			pending = append(pending, d)
			continue
		}
		content, err := e.catalog.ReadScript(d)
		if err != nil {
			return report, err
		}
		if sum := ledger.Checksum(content); sum != entry.Checksum {
			return report, &ChecksumMismatchError{
				Version:  d.Version,
				Name:     d.Name,
				Expected: entry.Checksum,
				Actual:   sum,
			}
		}
	}

	for _, d := range pending {
		content, err := e.catalog.ReadScript(d)
		if err != nil {
			return report, err
		}
		sum := ledger.Checksum(content)

		// Re-check against a race with another process that may have
		// applied this version since the pending set was computed.
		existing, err := e.ledger.Get(ctx, d.Version)
		if err != nil {
			return report, err
		}
		if existing != nil {
			if existing.Checksum == sum {
				e.log.Debug("migration already applied, skipping",
					"version", d.Version, "name", d.Name)
				continue
			}
			return report, &ChecksumMismatchError{
				Version:  d.Version,
				Name:     d.Name,
				Expected: existing.Checksum,
				Actual:   sum,
			}
		}

		duration, err := e.applyOne(ctx, d, content, sum)
		if err != nil {
			return report, err
		}
		report.Applied = append(report.Applied, Applied{
			Version:  d.Version,
			Name:     d.Name,
			Duration: duration,
		})
	}

	return report, nil
}

// Rollback reverses one applied migration using its paired rollback script.
// A nil target selects the highest applied version; an empty ledger is then
// a no-op and returns (nil, nil). An explicit target must exist in the
// ledger. Script execution and the ledger deletion commit atomically.
func (e *Executor) Rollback(ctx context.Context, target *int64) (*ledger.Entry, error) {
	if err := e.ledger.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	entry, err := e.resolveTarget(ctx, target)
	if err != nil || entry == nil {
		return nil, err
	}
	if err := e.rollbackOne(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Reset rolls back every applied migration in strict descending version
// order, one transaction per entry so a failure partway leaves a consistent,
// inspectable ledger, then applies the full catalog again.
func (e *Executor) Reset(ctx context.Context) (*Report, error) {
	if err := e.ledger.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	applied, err := e.ledger.ListApplied(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(applied) - 1; i >= 0; i-- {
		if err := e.rollbackOne(ctx, &applied[i]); err != nil {
			return nil, err
		}
	}

	return e.applyPending(ctx)
}

func (e *Executor) applyOne(ctx context.Context, d catalog.Descriptor, content []byte, sum string) (time.Duration, error) {
	start := time.Now()

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for migration %d: %w", d.Version, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		_ = tx.Rollback()
		return 0, &ExecutionError{Version: d.Version, Name: d.Name, Err: err}
	}

	duration := time.Since(start)
	entry := &ledger.Entry{
		Version:         d.Version,
		Name:            d.Name,
		Checksum:        sum,
		AppliedAt:       time.Now().UTC(),
		ExecutionTimeMs: duration.Milliseconds(),
	}
	if err := e.ledger.Insert(ctx, tx, entry); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, &ExecutionError{Version: d.Version, Name: d.Name,
			Err: fmt.Errorf("commit failed: %w", err)}
	}

	e.log.Debug("applied migration",
		"version", d.Version, "name", d.Name, "duration", duration)
	return duration, nil
}

func (e *Executor) rollbackOne(ctx context.Context, entry *ledger.Entry) error {
	d, err := e.findDescriptor(entry.Version)
	if err != nil {
		return err
	}
	if d == nil || !d.HasRollback() {
		return &MissingRollbackScriptError{Version: entry.Version, Name: entry.Name}
	}

	content, err := e.catalog.ReadRollback(*d)
	if err != nil {
		return err
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for rollback of %d: %w", entry.Version, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		_ = tx.Rollback()
		return &ExecutionError{Version: entry.Version, Name: entry.Name,
			Err: fmt.Errorf("rollback script failed: %w", err)}
	}
	if err := e.ledger.DeleteByVersion(ctx, tx, entry.Version); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &ExecutionError{Version: entry.Version, Name: entry.Name,
			Err: fmt.Errorf("commit failed: %w", err)}
	}

	e.log.Debug("rolled back migration", "version", entry.Version, "name", entry.Name)
	return nil
}

func (e *Executor) resolveTarget(ctx context.Context, target *int64) (*ledger.Entry, error) {
	if target != nil {
		entry, err := e.ledger.Get(ctx, *target)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, &NotFoundError{Version: *target}
		}
		return entry, nil
	}

	applied, err := e.ledger.ListApplied(ctx)
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		return nil, nil
	}
	return &applied[len(applied)-1], nil
}

func (e *Executor) findDescriptor(version int64) (*catalog.Descriptor, error) {
	descriptors, err := e.catalog.ListAll()
	if err != nil {
		return nil, err
	}
	for i := range descriptors {
		if descriptors[i].Version == version {
			return &descriptors[i], nil
		}
	}
	return nil, nil
}

func (e *Executor) acquire(ctx context.Context) (func(), error) {
	if e.guard == nil {
		return func() {}, nil
	}
	held, err := e.guard.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := held.Release(ctx); err != nil {
			e.log.Warn("failed to release migration lease", "error", err)
		}
	}, nil
}
