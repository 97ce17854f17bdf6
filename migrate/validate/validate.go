// Package validate recomputes on-disk script checksums for every ledger
// entry and reports drift. It never mutates state and is intended as a
// pre-flight health check independent of apply and rollback.
package validate

import (
	"context"

	"github.com/driftlock/driftlock/migrate/catalog"
	"github.com/driftlock/driftlock/migrate/ledger"
)

// Violation records one integrity failure for an applied migration: either
// the script file is gone, or its content no longer hashes to the recorded
// checksum.
type Violation struct {
	Version     int64
	Name        string
	Expected    string
	Actual      string // empty when the script file is missing
	MissingFile bool
}

// Result is the outcome of a validation pass.
type Result struct {
	Checked    int
	Violations []Violation
}

// Valid reports whether every ledger entry matched its on-disk script.
func (r *Result) Valid() bool {
	return len(r.Violations) == 0
}

// Validator cross-checks the ledger against the catalog.
type Validator struct {
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
}

// New creates a validator.
func New(cat *catalog.Catalog, led *ledger.Ledger) *Validator {
	return &Validator{catalog: cat, ledger: led}
}

// Validate checks every ledger entry. Violations are reported in ascending
// version order; the pass never stops early and never repairs anything.
func (v *Validator) Validate(ctx context.Context) (*Result, error) {
	if err := v.ledger.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	applied, err := v.ledger.ListApplied(ctx)
	if err != nil {
		return nil, err
	}
	descriptors, err := v.catalog.ListAll()
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int64]catalog.Descriptor, len(descriptors))
	for _, d := range descriptors {
		byVersion[d.Version] = d
	}

	result := &Result{Checked: len(applied)}
	for _, entry := range applied {
		d, ok := byVersion[entry.Version]
		if !ok {
			result.Violations = append(result.Violations, Violation{
				Version:     entry.Version,
				Name:        entry.Name,
				Expected:    entry.Checksum,
				MissingFile: true,
			})
			continue
		}

		content, err := v.catalog.ReadScript(d)
		if err != nil {
			result.Violations = append(result.Violations, Violation{
				Version:     entry.Version,
				Name:        entry.Name,
				Expected:    entry.Checksum,
				MissingFile: true,
			})
			continue
		}

		if sum := ledger.Checksum(content); sum != entry.Checksum {
			result.Violations = append(result.Violations, Violation{
				Version:  entry.Version,
				Name:     entry.Name,
				Expected: entry.Checksum,
				Actual:   sum,
			})
		}
	}

	return result, nil
}
