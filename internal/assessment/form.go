package assessment

import (
	"time"

	"orm-platform/internal/risk"
)

// Aggregate operations on Form. All hazard mutations go through these; the
// service layer recomputes derived fields (via Recompute) immediately after
// every mutation and before anything is persisted, so the derived pair is
// never observable stale.

func terminalGuard(f *Form, op string) error {
	if f.Status.Terminal() {
		return &TransitionError{From: f.Status, Op: op, Reason: DenyReasonTerminal}
	}
	return nil
}

// AddHazard appends a validated row, preserving insertion order.
func (f *Form) AddHazard(row HazardRow) error {
	if err := terminalGuard(f, "add hazard"); err != nil {
		return err
	}
	if err := validateRow(row); err != nil {
		return err
	}
	f.Hazards = append(f.Hazards, row)
	return nil
}

// UpdateHazard replaces the row with the same id in place.
func (f *Form) UpdateHazard(id string, row HazardRow) error {
	if err := terminalGuard(f, "update hazard"); err != nil {
		return err
	}
	i, ok := f.hazard(id)
	if !ok {
		return ErrNotFound
	}
	row.ID = id
	if err := validateRow(row); err != nil {
		return err
	}
	f.Hazards[i] = row
	return nil
}

// RemoveHazard deletes the row with the given id.
func (f *Form) RemoveHazard(id string) error {
	if err := terminalGuard(f, "remove hazard"); err != nil {
		return err
	}
	i, ok := f.hazard(id)
	if !ok {
		return ErrNotFound
	}
	f.Hazards = append(f.Hazards[:i], f.Hazards[i+1:]...)
	return nil
}

// UpdateHeader edits header fields only. Derived fields are never
// caller-settable.
func (f *Form) UpdateHeader(activity, preparedByID, preparedByText string) error {
	if err := terminalGuard(f, "update header"); err != nil {
		return err
	}
	if activity != "" {
		f.Activity = activity
	}
	if preparedByID != "" {
		f.PreparedByID = preparedByID
	}
	if preparedByText != "" {
		f.PreparedByText = preparedByText
	}
	return nil
}

// Recompute re-derives HighestResidualRisk, ApprovalBlocked and BlockReason
// from the form's own rows plus any supplement rows folded in by the
// caller. Idempotent: running it twice with no intervening mutation yields
// the same derived pair.
//
// Status handling: a draft whose aggregate reaches H/EH shifts to
// pending_mitigation. Recompute never advances status past mitigation and
// never reverts a pending_approval form; a later approval attempt on a
// re-blocked form simply fails at the gate.
func (f *Form) Recompute(supplementRows ...HazardRow) {
	levels := f.residualLevels()
	for _, h := range supplementRows {
		levels = append(levels, h.ResidualRisk)
	}

	f.HighestResidualRisk = risk.Highest(levels)
	f.ApprovalBlocked = f.HighestResidualRisk.RequiresMitigation()
	if f.ApprovalBlocked {
		f.BlockReason = BlockReasonHighResidual
	} else {
		f.BlockReason = ""
	}

	if f.ApprovalBlocked && f.Status == StatusDraft {
		f.Status = StatusPendingMitigation
	}
}

// HazardCount is the number of rows participating in the aggregate,
// including folded supplement rows.
func (f *Form) hazardCountWith(supplementRows []HazardRow) int {
	return len(f.Hazards) + len(supplementRows)
}

// SubmitForApproval transitions draft/pending_mitigation to
// pending_approval, gated on an unblocked, non-empty aggregate.
func (f *Form) SubmitForApproval(supplementRows []HazardRow) error {
	d := EvaluateSubmission(f.Type, f.Status, f.ApprovalBlocked, f.hazardCountWith(supplementRows))
	if !d.Allowed {
		return &TransitionError{From: f.Status, Op: "submit for approval", Reason: d.Reason}
	}
	f.Status = StatusPendingApproval
	return nil
}

// Approve is the hard-stop gate. A blocked form fails with
// ApprovalBlockedError regardless of caller identity; there is no
// override. (The paper form permits command-level sign-off at H/EH; this
// engine deliberately requires mitigation first.)
func (f *Form) Approve(approverID string, now time.Time, supplementRows []HazardRow) error {
	if approverID == "" {
		return invalidField("approver", "required")
	}
	d := EvaluateApproval(f.Type, f.Status, f.ApprovalBlocked, f.hazardCountWith(supplementRows))
	if !d.Allowed {
		if d.Reason == DenyReasonBlocked {
			return newApprovalBlocked(f.HighestResidualRisk)
		}
		return &TransitionError{From: f.Status, Op: "approve", Reason: d.Reason}
	}
	f.Status = StatusApproved
	f.ApprovedByID = approverID
	f.ApprovedAt = now
	return nil
}

// Disapprove moves any non-terminal form to the terminal disapproved
// status, recording the note.
func (f *Form) Disapprove(note string) error {
	if f.Type.Supplemental() {
		return &TransitionError{From: f.Status, Op: "disapprove", Reason: DenyReasonSupplement}
	}
	if err := terminalGuard(f, "disapprove"); err != nil {
		return err
	}
	f.Status = StatusDisapproved
	f.DisapprovalNote = note
	return nil
}

func validateRow(row HazardRow) error {
	if row.HazardOutcome == "" {
		return invalidField("hazard_outcome", "required")
	}
	if row.ControlText == "" {
		return invalidField("control_text", "required")
	}
	if !row.InitialRisk.Valid() {
		return invalidField("initial_risk", "must be one of L, M, H, EH")
	}
	if !row.ResidualRisk.Valid() {
		return invalidField("residual_risk", "must be one of L, M, H, EH")
	}
	return nil
}
