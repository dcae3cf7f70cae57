package assessment

// ApprovalGate centralizes the approval and submission rules so the service
// layer, the HTTP surface, and the export renderer all consult one
// implementation instead of re-deriving the H/EH check.
//
// Decisions are pure functions over (status, approval_blocked, hazard
// count). No side effects, no persistence.

type GateDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

const (
	DenyReasonBlocked     = BlockReasonHighResidual
	DenyReasonNoHazards   = "no_hazards"
	DenyReasonWrongStatus = "wrong_status"
	DenyReasonSupplement  = "supplemental_page"
	DenyReasonTerminal    = "terminal_status"
)

func allow() GateDecision             { return GateDecision{Allowed: true} }
func deny(reason string) GateDecision { return GateDecision{Reason: reason} }

// EvaluateSubmission decides whether a form may move to pending_approval.
// Submission requires a non-supplemental form in draft or
// pending_mitigation, at least one hazard row, and an unblocked aggregate.
func EvaluateSubmission(t FormType, status Status, blocked bool, hazardCount int) GateDecision {
	if t.Supplemental() {
		return deny(DenyReasonSupplement)
	}
	if status != StatusDraft && status != StatusPendingMitigation {
		if status.Terminal() {
			return deny(DenyReasonTerminal)
		}
		return deny(DenyReasonWrongStatus)
	}
	if hazardCount == 0 {
		return deny(DenyReasonNoHazards)
	}
	if blocked {
		return deny(DenyReasonBlocked)
	}
	return allow()
}

// EvaluateApproval decides whether a form may be approved.
//
// The blocked check dominates: a blocked form is reported as blocked even
// when its status would also disqualify it, so the hard stop is what the
// caller sees and what gets audited.
func EvaluateApproval(t FormType, status Status, blocked bool, hazardCount int) GateDecision {
	if t.Supplemental() {
		return deny(DenyReasonSupplement)
	}
	if blocked {
		return deny(DenyReasonBlocked)
	}
	if status != StatusPendingApproval {
		if status.Terminal() {
			return deny(DenyReasonTerminal)
		}
		return deny(DenyReasonWrongStatus)
	}
	if hazardCount == 0 {
		return deny(DenyReasonNoHazards)
	}
	return allow()
}
