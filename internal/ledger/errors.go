// =============================================================================
// Photo Sale Ledger - Error Taxonomy
// =============================================================================
//
// Ledger operations never panic and never leave a half-written main ledger.
// Mutations report their outcome through Result; the sentinel errors below
// let callers branch with errors.Is, and Reason carries the same information
// as a machine-readable string.
//
//   | Error                | Reason              | Meaning                         |
//   |----------------------|---------------------|---------------------------------|
//   | ErrNotFound          | not_found           | reference absent                |
//   | ErrIO                | io_error            | file unreadable or unwritable   |
//   | ErrValidation        | validation          | missing or malformed input      |
//   | ErrEmptyLedger       | empty_ledger        | header only, no data            |
//   | ErrBOMCorruption     | bom_corruption      | more than one BOM in a file     |
//   | ErrInvalidTransition | invalid_transition  | status would move backward      |
//   | (none)               | already_applied     | idempotent no-op, success=true  |
//
// =============================================================================

package ledger

import (
	"errors"
	"fmt"

	"github.com/ginjaninja78/photo-sale-ledger/internal/csvcodec"
)

var (
	ErrNotFound          = errors.New("reference not found")
	ErrIO                = errors.New("ledger I/O failure")
	ErrValidation        = errors.New("validation failed")
	ErrEmptyLedger       = errors.New("ledger is empty")
	ErrBOMCorruption     = csvcodec.ErrBOMCorruption
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Reason is the machine-readable outcome of an operation.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNotFound          Reason = "not_found"
	ReasonIO                Reason = "io_error"
	ReasonValidation        Reason = "validation"
	ReasonEmptyLedger       Reason = "empty_ledger"
	ReasonBOMCorruption     Reason = "bom_corruption"
	ReasonInvalidTransition Reason = "invalid_transition"
	ReasonAlreadyApplied    Reason = "already_applied"
)

// ReasonOf maps an error to its Reason.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrValidation):
		return ReasonValidation
	case errors.Is(err, ErrEmptyLedger):
		return ReasonEmptyLedger
	case errors.Is(err, ErrBOMCorruption):
		return ReasonBOMCorruption
	case errors.Is(err, ErrInvalidTransition):
		return ReasonInvalidTransition
	default:
		return ReasonIO
	}
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of a ledger mutation.
type Result struct {
	// Success is true when the mutation was applied or was already applied.
	Success bool

	// Message is a human-readable description, shown verbatim to the operator.
	Message string

	// Reason is empty on a plain success.
	Reason Reason

	// Err is the underlying error on failure.
	Err error

	// Reference is the order the operation targeted, if any.
	Reference string

	// RowsAffected is the number of ledger rows rewritten.
	RowsAffected int
}

// succeeded builds a successful Result.
func succeeded(ref string, rows int, format string, args ...interface{}) Result {
	return Result{
		Success:      true,
		Message:      fmt.Sprintf(format, args...),
		Reference:    ref,
		RowsAffected: rows,
	}
}

// alreadyApplied builds a successful no-op Result.
func alreadyApplied(ref string, format string, args ...interface{}) Result {
	return Result{
		Success:   true,
		Message:   fmt.Sprintf(format, args...),
		Reason:    ReasonAlreadyApplied,
		Reference: ref,
	}
}

// failed builds a failed Result from an error.
func failed(ref string, err error) Result {
	return Result{
		Success:   false,
		Message:   err.Error(),
		Reason:    ReasonOf(err),
		Err:       err,
		Reference: ref,
	}
}

// ioError wraps err as ErrIO unless it already carries a more specific
// sentinel.
func ioError(action string, err error) error {
	if errors.Is(err, ErrBOMCorruption) {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	return fmt.Errorf("%w: failed to %s: %v", ErrIO, action, err)
}
