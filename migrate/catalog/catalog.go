// Package catalog discovers migration scripts and their paired rollback
// scripts on a filesystem and exposes them in ascending version order.
package catalog

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const (
	// RollbackDir is the subdirectory holding paired rollback scripts.
	RollbackDir = "rollback"

	scriptSuffix   = ".sql"
	rollbackSuffix = ".rollback.sql"
)

// Pattern matches: {version}_{name}.sql
// Version is a non-negative integer, padded or not.
// Name can contain letters, numbers, underscores, and hyphens.
var scriptPattern = regexp.MustCompile(`^(\d+)_([A-Za-z0-9_-]+)\.sql$`)

// Descriptor describes one discovered migration. It is derived from the
// filesystem on every scan and never persisted.
type Descriptor struct {
	Version      int64
	Name         string
	ScriptPath   string
	RollbackPath string // empty when no paired rollback script exists
}

// HasRollback reports whether a paired rollback script was found.
func (d Descriptor) HasRollback() bool {
	return d.RollbackPath != ""
}

// Catalog scans a migrations directory. All IO goes through the afero
// filesystem so tests can run against an in-memory one.
type Catalog struct {
	fs  afero.Fs
	dir string
}

// New creates a catalog over dir. The directory is created lazily on the
// first scan if it does not exist.
func New(fs afero.Fs, dir string) *Catalog {
	return &Catalog{fs: fs, dir: dir}
}

// Dir returns the migrations directory the catalog scans.
func (c *Catalog) Dir() string {
	return c.dir
}

// ListAll returns every discovered migration in ascending numeric version
// order. Filenames are sorted by parsed version, not lexically, so version 9
// always precedes version 10 regardless of zero padding. A missing directory
// is created empty and yields zero descriptors.
func (c *Catalog) ListAll() ([]Descriptor, error) {
	if err := c.ensureDirs(); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory %s: %w", c.dir, err)
	}

	seen := make(map[int64]string) // version -> filename, for duplicate detection
	var descriptors []Descriptor

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, rollbackSuffix) {
			// Rollback variants are resolved through their forward pair.
			continue
		}
		if !strings.HasSuffix(name, scriptSuffix) {
			continue
		}

		m := scriptPattern.FindStringSubmatch(name)
		if m == nil {
			return nil, &MalformedVersionError{Identifier: name}
		}
		version, err := ParseVersion(name)
		if err != nil {
			return nil, err
		}

		if existing, ok := seen[version]; ok {
			return nil, &DuplicateVersionError{Version: version, FileA: existing, FileB: name}
		}
		seen[version] = name

		d := Descriptor{
			Version:    version,
			Name:       m[2],
			ScriptPath: filepath.Join(c.dir, name),
		}

		rollbackName := strings.TrimSuffix(name, scriptSuffix) + rollbackSuffix
		rollbackPath := filepath.Join(c.dir, RollbackDir, rollbackName)
		if ok, _ := afero.Exists(c.fs, rollbackPath); ok {
			d.RollbackPath = rollbackPath
		}

		descriptors = append(descriptors, d)
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Version < descriptors[j].Version
	})

	return descriptors, nil
}

// ParseVersion extracts the numeric version prefix from a migration
// identifier such as "001_init.sql" or "42_add_index".
func ParseVersion(identifier string) (int64, error) {
	var digits int
	for digits < len(identifier) && identifier[digits] >= '0' && identifier[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return 0, &MalformedVersionError{Identifier: identifier}
	}

	version, err := strconv.ParseInt(identifier[:digits], 10, 64)
	if err != nil {
		// A prefix too large for int64 is no version at all.
		return 0, &MalformedVersionError{Identifier: identifier}
	}
	return version, nil
}

// ReadScript returns the exact byte content of the forward script.
func (c *Catalog) ReadScript(d Descriptor) ([]byte, error) {
	content, err := afero.ReadFile(c.fs, d.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration script %s: %w", d.ScriptPath, err)
	}
	return content, nil
}

// ReadRollback returns the exact byte content of the paired rollback script.
func (c *Catalog) ReadRollback(d Descriptor) ([]byte, error) {
	if !d.HasRollback() {
		return nil, fmt.Errorf("migration %d_%s has no rollback script", d.Version, d.Name)
	}
	content, err := afero.ReadFile(c.fs, d.RollbackPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rollback script %s: %w", d.RollbackPath, err)
	}
	return content, nil
}

// NextVersion returns the version the next scaffolded migration should use:
// one past the highest discovered version, or 1 for an empty catalog.
func (c *Catalog) NextVersion() (int64, error) {
	descriptors, err := c.ListAll()
	if err != nil {
		return 0, err
	}
	if len(descriptors) == 0 {
		return 1, nil
	}
	return descriptors[len(descriptors)-1].Version + 1, nil
}

// Scaffold writes an empty forward script and its rollback stub for the next
// version. The name is sanitized to the allowed charset. Versions are
// zero-padded to three digits for readability; the parser never depends on
// the padding.
func (c *Catalog) Scaffold(name string) (Descriptor, error) {
	clean := sanitizeName(name)
	if clean == "" {
		return Descriptor{}, fmt.Errorf("migration name %q contains no usable characters", name)
	}

	version, err := c.NextVersion()
	if err != nil {
		return Descriptor{}, err
	}

	filename := fmt.Sprintf("%03d_%s%s", version, clean, scriptSuffix)
	scriptPath := filepath.Join(c.dir, filename)
	rollbackPath := filepath.Join(c.dir, RollbackDir, fmt.Sprintf("%03d_%s%s", version, clean, rollbackSuffix))

	script := fmt.Sprintf("-- Migration: %s\n-- Forward schema changes go below.\n\n", filename)
	if err := afero.WriteFile(c.fs, scriptPath, []byte(script), 0644); err != nil {
		return Descriptor{}, fmt.Errorf("failed to write migration script: %w", err)
	}

	rollback := fmt.Sprintf("-- Rollback: %s\n-- Statements reversing %s go below.\n\n", filename, filename)
	if err := afero.WriteFile(c.fs, rollbackPath, []byte(rollback), 0644); err != nil {
		return Descriptor{}, fmt.Errorf("failed to write rollback stub: %w", err)
	}

	return Descriptor{
		Version:      version,
		Name:         clean,
		ScriptPath:   scriptPath,
		RollbackPath: rollbackPath,
	}, nil
}

func (c *Catalog) ensureDirs() error {
	if err := c.fs.MkdirAll(filepath.Join(c.dir, RollbackDir), 0755); err != nil {
		return fmt.Errorf("failed to create migrations directory %s: %w", c.dir, err)
	}
	return nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	name = strings.ReplaceAll(name, " ", "_")

	var b strings.Builder
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '_', ch == '-':
			b.WriteRune(ch)
		}
	}
	return strings.Trim(b.String(), "_-")
}
