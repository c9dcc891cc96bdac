/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As; the API layer maps these to
  HTTP status codes.

ERROR CATEGORIES:
  1. Purge errors   - blocked, unauthorized, already purged, partial failure
  2. Store errors   - missing paths, malformed documents
  3. Resolution     - dangling references; NEVER raised from the builder,
                      which degrades them to "N/A" placeholders instead

SEE ALSO:
  - purge.go: produces the purge error family
  - builder.go: degrades resolution failures instead of returning them
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrLogNotFound is returned when a purge targets a log that no longer
	// exists. A second purge of the same logId lands here instead of
	// corrupting state further.
	ErrLogNotFound = errors.New("transaction log not found")

	// ErrNotPurgeable is returned when the entry's source type is outside
	// the purge allow-list (e.g. a physical-count variance row).
	ErrNotPurgeable = errors.New("entry is not purgeable")

	// ErrNotAuthorized is returned when the purge capability is missing or
	// was minted for a non-administrator role.
	ErrNotAuthorized = errors.New("purge requires the System Administrator role")

	// ErrPurgeBlocked is the sentinel wrapped by PurgeBlockedError.
	ErrPurgeBlocked = errors.New("purge blocked by dependent transactions")

	// ErrPartialPurge is the sentinel wrapped by PartialPurgeError.
	ErrPartialPurge = errors.New("purge partially applied")

	// ErrPathNotFound is returned by stores when a key path does not exist.
	ErrPathNotFound = errors.New("path not found")

	// ErrMalformedDocument is returned when a stored document cannot be
	// decoded into its collection's record shape.
	ErrMalformedDocument = errors.New("malformed document")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PurgeBlockedError reports why a receive purge was refused. Nothing has
// been deleted when this error is returned.
type PurgeBlockedError struct {
	LogID  LogID
	Reason string
}

func (e *PurgeBlockedError) Error() string {
	return fmt.Sprintf("purge of %s blocked: %s", e.LogID, e.Reason)
}

func (e *PurgeBlockedError) Unwrap() error { return ErrPurgeBlocked }

// PurgeStep identifies a sub-step of the purge sequence for failure
// reporting.
type PurgeStep string

const (
	StepReversal PurgeStep = "quantity_reversal"
	StepAudit    PurgeStep = "audit"
)

// StepFailure records one failed sub-step after the delete batch committed.
type StepFailure struct {
	Step  PurgeStep
	Path  string
	Cause error
}

func (f StepFailure) String() string {
	return fmt.Sprintf("%s %s: %v", f.Step, f.Path, f.Cause)
}

// PartialPurgeError reports a purge whose atomic delete batch committed but
// whose follow-up steps did not all succeed. The listed failures are what an
// operator must reconcile manually; there is no automatic rollback of the
// already-applied deletes.
type PartialPurgeError struct {
	LogID    LogID
	Table    Collection
	Failures []StepFailure
}

func (e *PartialPurgeError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("purge of %s/%s deleted the log but %d step(s) failed: %s",
		e.Table, e.LogID, len(e.Failures), strings.Join(parts, "; "))
}

func (e *PartialPurgeError) Unwrap() error { return ErrPartialPurge }
