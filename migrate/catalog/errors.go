package catalog

import "fmt"

// MalformedVersionError indicates a script filename without a parseable
// numeric version prefix.
type MalformedVersionError struct {
	Identifier string
}

func (e *MalformedVersionError) Error() string {
	return fmt.Sprintf("migration %q has no numeric version prefix", e.Identifier)
}

// DuplicateVersionError indicates two scripts sharing one version number.
// Detected at discovery time, before anything is applied.
type DuplicateVersionError struct {
	Version int64
	FileA   string
	FileB   string
}

func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("duplicate migration version %d: %s and %s", e.Version, e.FileA, e.FileB)
}
