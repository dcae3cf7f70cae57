package assessment

import (
	"errors"
	"fmt"

	"orm-platform/internal/risk"
)

var (
	ErrNotFound = errors.New("assessment: not found")

	// ErrConcurrencyConflict is returned on an optimistic-lock mismatch:
	// the form changed between read and write. Callers retry with fresh
	// state; the engine never silently overwrites.
	ErrConcurrencyConflict = errors.New("assessment: version conflict")
)

// ValidationError reports a missing or malformed required field or risk
// code. These are business-rule outcomes surfaced verbatim to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("assessment: invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TransitionError reports an illegal status change, e.g. submitting with
// zero hazards or mutating a terminal form.
type TransitionError struct {
	From   Status
	Op     string
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("assessment: cannot %s from status %q: %s", e.Op, e.From, e.Reason)
}

// BlockReasonHighResidual is the machine-readable reason code carried by
// every hard-stop rejection and by the stored approval_block_reason field.
const BlockReasonHighResidual = "highest_residual_risk_h_or_eh"

// ApprovalBlockedError is the hard-stop outcome: approval denied because the
// highest residual risk is H or EH. No role, flag, or parameter overrides
// it. It is structured, not a generic validation failure, so the surface
// layer can render the reason code verbatim.
type ApprovalBlockedError struct {
	Reason              string
	HighestResidualRisk risk.Level
	Message             string
}

func (e *ApprovalBlockedError) Error() string {
	return fmt.Sprintf("assessment: approval blocked (%s): %s", e.Reason, e.Message)
}

func newApprovalBlocked(level risk.Level) *ApprovalBlockedError {
	return &ApprovalBlockedError{
		Reason:              BlockReasonHighResidual,
		HighestResidualRisk: level,
		Message:             fmt.Sprintf("highest residual risk is %s; mitigate to M or L before approval", level),
	}
}
