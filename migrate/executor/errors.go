package executor

import "fmt"

// ChecksumMismatchError indicates an applied script whose on-disk content no
// longer matches the digest recorded at apply time. The run aborts before
// anything new is applied.
type ChecksumMismatchError struct {
	Version  int64
	Name     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("migration %d_%s changed after it was applied: recorded checksum %s, current %s",
		e.Version, e.Name, e.Expected, e.Actual)
}

// ExecutionError wraps a script or commit failure for one migration. The
// transaction it occurred in has already been rolled back.
type ExecutionError struct {
	Version int64
	Name    string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("migration %d_%s failed: %v", e.Version, e.Name, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// MissingRollbackScriptError indicates a rollback was requested for a
// migration that has no paired rollback script. Raised before any
// transaction opens, so the ledger is untouched.
type MissingRollbackScriptError struct {
	Version int64
	Name    string
}

func (e *MissingRollbackScriptError) Error() string {
	return fmt.Sprintf("migration %d_%s has no rollback script", e.Version, e.Name)
}

// NotFoundError indicates an explicitly requested version absent from the
// ledger.
type NotFoundError struct {
	Version int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("version %d is not applied", e.Version)
}
