/*
errors.go - Centralized error types for the ledger client

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages (claims, policies) wrap these errors with additional
  context rather than defining their own taxonomy.

ERROR CATEGORIES:
  1. Validation errors  - Malformed identifier/amount/date. Resolved locally,
                          BEFORE any network call.
  2. Precondition errors - Local state-machine check failed. Also resolved
                          before any network call.
  3. Dry-run errors     - The ledger rejected the non-committing simulation.
                          The committing phase is never attempted.
  4. Submission errors  - The committing call failed after a successful dry
                          run. Carries the transaction hash if one was produced.
  5. Schema errors      - A tuple reply was missing a required field under
                          both resolution strategies (named and positional).

  Gas-estimation failure is deliberately NOT in this taxonomy: it is recovered
  locally with a fixed fallback limit and never surfaced to callers.

USAGE:
  Callers dispatch with errors.Is():

    if errors.Is(err, ledger.ErrPrecondition) {
        // claim was in the wrong status; re-read and retry
    }

SEE ALSO:
  - submit.go: Produces DryRunError / SubmissionError
  - tuple.go: Produces SchemaMismatchError
  - claims/code.go, claims/statemachine.go: Produce validation/precondition errors
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when an identifier, amount, or timestamp is
	// malformed. Nothing is ever sent to the ledger for these inputs.
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition is returned when a local state-machine check rejects an
	// operation before submission (wrong status, missing participant, etc.).
	// The ledger re-validates independently; this check exists to fail fast
	// instead of wasting a transaction.
	ErrPrecondition = errors.New("precondition failed")

	// ErrDryRunRejected is returned when the ledger rejects the non-committing
	// simulation of a state-changing call. The commit phase is never attempted.
	ErrDryRunRejected = errors.New("dry run rejected")

	// ErrSubmissionFailed is returned when the committing call fails after a
	// successful dry run.
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrSchemaMismatch is returned when a tuple reply is missing a required
	// field under both the named and the positional resolution strategy.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrNotFound is returned when a read resolves to no record (for example
	// a claim code the ledger has never seen).
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes a malformed input field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PreconditionError describes a rejected local state-machine check.
type PreconditionError struct {
	Op     string // attempted transition, e.g. "approve-payout"
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// DryRunError carries the ledger-supplied revert reason, verbatim, when the
// non-committing simulation fails.
type DryRunError struct {
	Method string
	Cause  error
}

func (e *DryRunError) Error() string {
	return fmt.Sprintf("dry run of %s rejected: %v", e.Method, e.Cause)
}

func (e *DryRunError) Unwrap() error { return ErrDryRunRejected }

// SubmissionError describes a failed commit. TxHash is the zero hash when the
// failure occurred before a transaction identifier was produced.
type SubmissionError struct {
	Method string
	TxHash string
	Cause  error
}

func (e *SubmissionError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("submission of %s failed (tx %s): %v", e.Method, e.TxHash, e.Cause)
	}
	return fmt.Sprintf("submission of %s failed: %v", e.Method, e.Cause)
}

func (e *SubmissionError) Unwrap() error { return ErrSubmissionFailed }

// SchemaMismatchError identifies the field that could not be resolved.
type SchemaMismatchError struct {
	Field string
	Index int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("field %q absent by name and at position %d", e.Field, e.Index)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }
