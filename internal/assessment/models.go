package assessment

import (
	"time"

	"orm-platform/internal/risk"
)

// FormType selects the CAPF variant. 160 is the deliberate assessment,
// 160S the real-time worksheet, 160HL a hazard-listing supplement that is
// always attached to a parent 160/160S and has no approval state of its own.

type FormType string

const (
	FormType160   FormType = "160"
	FormType160S  FormType = "160S"
	FormType160HL FormType = "160HL"
)

func (t FormType) Valid() bool {
	switch t {
	case FormType160, FormType160S, FormType160HL:
		return true
	default:
		return false
	}
}

func (t FormType) Supplemental() bool { return t == FormType160HL }

type Status string

const (
	StatusDraft             Status = "draft"
	StatusPendingMitigation Status = "pending_mitigation"
	StatusPendingApproval   Status = "pending_approval"
	StatusApproved          Status = "approved"
	StatusDisapproved       Status = "disapproved"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusDisapproved
}

// HazardRow is one hazard/outcome entry on a form: an initial (pre-control)
// risk, the mitigating control, and the residual (post-control) risk.
type HazardRow struct {
	ID string `json:"id" db:"id"`

	SubActivity   string `json:"sub_activity" db:"sub_activity"`
	HazardOutcome string `json:"hazard_outcome" db:"hazard_outcome"`

	InitialRisk risk.Level `json:"initial_risk" db:"initial_risk"`

	ControlText  string `json:"control_text" db:"control_text"`
	ImplementHow string `json:"implement_how,omitempty" db:"implement_how"`
	ImplementWho string `json:"implement_who,omitempty" db:"implement_who"`

	ResidualRisk risk.Level `json:"residual_risk" db:"residual_risk"`
}

// Form is the aggregate root for one CAPF 160/160S/160HL assessment.
//
// Derived-field invariant: HighestResidualRisk is the max residual risk
// over all hazard rows (own rows plus any 160HL supplement rows), and
// ApprovalBlocked is true exactly when that level is H or EH. Both are
// recomputed synchronously with every hazard mutation; no caller may
// observe them stale. They are never settable from outside.
type Form struct {
	ID         string `json:"id" db:"id"`
	IncidentID string `json:"incident_id" db:"incident_id"`

	Type FormType `json:"form_type" db:"form_type"`

	// ParentID links a 160HL supplement to its parent 160/160S form.
	// Empty for non-supplemental forms.
	ParentID string `json:"parent_id,omitempty" db:"parent_id"`

	Activity       string `json:"activity" db:"activity"`
	PreparedByID   string `json:"prepared_by_id" db:"prepared_by_id"`
	PreparedByText string `json:"prepared_by_text,omitempty" db:"prepared_by_text"`

	Date time.Time `json:"date" db:"date"`

	// Hazards preserves insertion order for display; order carries no
	// meaning for the risk computation.
	Hazards []HazardRow `json:"hazards"`

	HighestResidualRisk risk.Level `json:"highest_residual_risk" db:"highest_residual_risk"`
	ApprovalBlocked     bool       `json:"approval_blocked" db:"approval_blocked"`
	BlockReason         string     `json:"approval_block_reason,omitempty" db:"approval_block_reason"`

	Status Status `json:"status" db:"status"`

	ApprovedByID string    `json:"approved_by_id,omitempty" db:"approved_by_id"`
	ApprovedAt   time.Time `json:"approved_at,omitempty" db:"approved_at"`

	DisapprovalNote string `json:"disapproval_note,omitempty" db:"disapproval_note"`

	// Version is the optimistic-concurrency token compared at write time.
	Version int64 `json:"version" db:"version"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (f *Form) hazard(id string) (int, bool) {
	for i := range f.Hazards {
		if f.Hazards[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// residualLevels collects the residual risks of the form's own rows.
func (f *Form) residualLevels() []risk.Level {
	out := make([]risk.Level, 0, len(f.Hazards))
	for _, h := range f.Hazards {
		out = append(out, h.ResidualRisk)
	}
	return out
}

// HazardInput is the caller-supplied hazard payload. Risk values may arrive
// either as a canonical level code or as a likelihood/severity pair to be
// resolved through the matrix; both entry paths yield a canonical level.
type HazardInput struct {
	SubActivity   string `json:"sub_activity"`
	HazardOutcome string `json:"hazard_outcome"`

	InitialRisk       string `json:"initial_risk,omitempty"`
	InitialLikelihood string `json:"initial_likelihood,omitempty"`
	InitialSeverity   string `json:"initial_severity,omitempty"`

	ControlText  string `json:"control_text"`
	ImplementHow string `json:"implement_how,omitempty"`
	ImplementWho string `json:"implement_who,omitempty"`

	ResidualRisk       string `json:"residual_risk,omitempty"`
	ResidualLikelihood string `json:"residual_likelihood,omitempty"`
	ResidualSeverity   string `json:"residual_severity,omitempty"`

	// TemplateID optionally names a catalog template whose hazard/control
	// text prefills empty fields.
	TemplateID string `json:"template_id,omitempty"`
}

// Filters narrows form listings. Zero values mean "any".
type Filters struct {
	IncidentID          string
	Type                FormType
	Status              Status
	HighestResidualRisk risk.Level
}
