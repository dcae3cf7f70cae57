package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orm-platform/internal/audit"
	"orm-platform/internal/catalog"
	"orm-platform/internal/risk"

	"github.com/google/uuid"
)

// FormRepository is the persistence contract for forms and their hazard
// rows. Save compares the version supplied on the form against the stored
// one and returns ErrConcurrencyConflict on mismatch; it never silently
// overwrites.

type FormRepository interface {
	Create(ctx context.Context, f Form) error
	Load(ctx context.Context, id string) (Form, error)
	Save(ctx context.Context, f Form) (Form, error)
	List(ctx context.Context, flt Filters) ([]Form, error)
	ListSupplements(ctx context.Context, parentID string) ([]Form, error)
}

// TemplateSource resolves hazard templates for row prefill. Read-only.
type TemplateSource interface {
	Find(ctx context.Context, id string) (catalog.Template, bool, error)
}

// Service orchestrates form operations.
//
// Every public call is one logical transaction: hazard mutation, recompute,
// any status shift and the audit write either all take effect or the call
// fails. The audit recorder is a required collaborator; a recording failure
// fails the call.
type Service struct {
	repo      FormRepository
	recorder  *audit.Service
	matrix    *risk.Matrix
	templates TemplateSource

	clock func() time.Time
}

// NewService wires the engine. templates may be nil when no catalog is
// deployed; everything else is mandatory.
func NewService(repo FormRepository, recorder *audit.Service, matrix *risk.Matrix, templates TemplateSource) *Service {
	return &Service{
		repo:      repo,
		recorder:  recorder,
		matrix:    matrix,
		templates: templates,
		clock:     time.Now,
	}
}

type CreateFormRequest struct {
	IncidentID string `json:"incident_id"`
	Type       string `json:"form_type"`

	// ParentID is required for 160HL supplements and forbidden otherwise.
	ParentID string `json:"parent_id,omitempty"`

	Activity       string `json:"activity"`
	PreparedByID   string `json:"prepared_by_id"`
	PreparedByText string `json:"prepared_by_text,omitempty"`
}

func (s *Service) CreateForm(ctx context.Context, actorID string, req CreateFormRequest) (Form, error) {
	if req.IncidentID == "" {
		return Form{}, invalidField("incident_id", "required")
	}
	if req.Activity == "" {
		return Form{}, invalidField("activity", "required")
	}
	if req.PreparedByID == "" {
		return Form{}, invalidField("prepared_by_id", "required")
	}
	formType := FormType(req.Type)
	if !formType.Valid() {
		return Form{}, invalidField("form_type", "must be one of 160, 160S, 160HL")
	}

	if formType.Supplemental() {
		if req.ParentID == "" {
			return Form{}, invalidField("parent_id", "required for a 160HL supplement")
		}
		parent, err := s.repo.Load(ctx, req.ParentID)
		if err != nil {
			return Form{}, err
		}
		if parent.Type.Supplemental() {
			return Form{}, invalidField("parent_id", "a 160HL cannot supplement another 160HL")
		}
		if parent.Status.Terminal() {
			return Form{}, invalidField("parent_id", "parent form is terminal")
		}
		if parent.IncidentID != req.IncidentID {
			return Form{}, invalidField("parent_id", "parent belongs to a different incident")
		}
	} else if req.ParentID != "" {
		return Form{}, invalidField("parent_id", "only 160HL supplements carry a parent")
	}

	now := s.clock().UTC()
	f := Form{
		ID:             uuid.NewString(),
		IncidentID:     req.IncidentID,
		Type:           formType,
		ParentID:       req.ParentID,
		Activity:       req.Activity,
		PreparedByID:   req.PreparedByID,
		PreparedByText: req.PreparedByText,
		Date:           now,
		Status:         StatusDraft,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return Form{}, err
	}
	if err := s.record(ctx, f, actorID, audit.ActionCreate, fmt.Sprintf("form_type=%s", f.Type)); err != nil {
		return Form{}, err
	}
	return f, nil
}

// GetForm returns a form and, for parents, its 160HL supplements.
func (s *Service) GetForm(ctx context.Context, id string) (Form, []Form, error) {
	f, err := s.repo.Load(ctx, id)
	if err != nil {
		return Form{}, nil, err
	}
	if f.Type.Supplemental() {
		return f, nil, nil
	}
	supp, err := s.repo.ListSupplements(ctx, f.ID)
	if err != nil {
		return Form{}, nil, err
	}
	return f, supp, nil
}

func (s *Service) ListForms(ctx context.Context, flt Filters) ([]Form, error) {
	return s.repo.List(ctx, flt)
}

type HeaderUpdate struct {
	Activity       string `json:"activity,omitempty"`
	PreparedByID   string `json:"prepared_by_id,omitempty"`
	PreparedByText string `json:"prepared_by_text,omitempty"`
}

func (s *Service) UpdateHeader(ctx context.Context, formID, actorID string, upd HeaderUpdate) (Form, error) {
	f, err := s.repo.Load(ctx, formID)
	if err != nil {
		return Form{}, err
	}
	if err := f.UpdateHeader(upd.Activity, upd.PreparedByID, upd.PreparedByText); err != nil {
		return Form{}, err
	}
	f.UpdatedAt = s.clock().UTC()
	saved, err := s.repo.Save(ctx, f)
	if err != nil {
		return Form{}, err
	}
	if err := s.record(ctx, saved, actorID, audit.ActionHeaderUpdate, ""); err != nil {
		return Form{}, err
	}
	return saved, nil
}

func (s *Service) AddHazard(ctx context.Context, formID, actorID string, in HazardInput) (Form, HazardRow, error) {
	f, err := s.repo.Load(ctx, formID)
	if err != nil {
		return Form{}, HazardRow{}, err
	}

	row, err := s.buildRow(ctx, in)
	if err != nil {
		return Form{}, HazardRow{}, err
	}
	if err := f.AddHazard(row); err != nil {
		return Form{}, HazardRow{}, err
	}

	saved, effective, err := s.saveWithRecompute(ctx, f)
	if err != nil {
		return Form{}, HazardRow{}, err
	}
	if err := s.record(ctx, saved, actorID, audit.ActionHazardAdd, fmt.Sprintf("hazard=%s residual=%s", row.ID, row.ResidualRisk)); err != nil {
		return Form{}, HazardRow{}, err
	}
	if err := s.recordRecompute(ctx, effective, actorID); err != nil {
		return Form{}, HazardRow{}, err
	}
	return effective, row, nil
}

func (s *Service) UpdateHazard(ctx context.Context, formID, hazardID, actorID string, in HazardInput) (Form, HazardRow, error) {
	f, err := s.repo.Load(ctx, formID)
	if err != nil {
		return Form{}, HazardRow{}, err
	}
	i, ok := f.hazard(hazardID)
	if !ok {
		return Form{}, HazardRow{}, ErrNotFound
	}

	row, err := s.mergeRow(ctx, f.Hazards[i], in)
	if err != nil {
		return Form{}, HazardRow{}, err
	}
	if err := f.UpdateHazard(hazardID, row); err != nil {
		return Form{}, HazardRow{}, err
	}

	saved, effective, err := s.saveWithRecompute(ctx, f)
	if err != nil {
		return Form{}, HazardRow{}, err
	}
	if err := s.record(ctx, saved, actorID, audit.ActionHazardUpdate, fmt.Sprintf("hazard=%s residual=%s", row.ID, row.ResidualRisk)); err != nil {
		return Form{}, HazardRow{}, err
	}
	if err := s.recordRecompute(ctx, effective, actorID); err != nil {
		return Form{}, HazardRow{}, err
	}
	return effective, row, nil
}

func (s *Service) RemoveHazard(ctx context.Context, formID, hazardID, actorID string) (Form, error) {
	f, err := s.repo.Load(ctx, formID)
	if err != nil {
		return Form{}, err
	}
	if err := f.RemoveHazard(hazardID); err != nil {
		return Form{}, err
	}

	saved, effective, err := s.saveWithRecompute(ctx, f)
	if err != nil {
		return Form{}, err
	}
	if err := s.record(ctx, saved, actorID, audit.ActionHazardRemove, fmt.Sprintf("hazard=%s", hazardID)); err != nil {
		return Form{}, err
	}
	if err := s.recordRecompute(ctx, effective, actorID); err != nil {
		return Form{}, err
	}
	return effective, nil
}

// Submit moves a draft/pending_mitigation form to pending_approval. The
// transition is always an explicit caller action; recompute never advances
// status on its own.
func (s *Service) Submit(ctx context.Context, formID, actorID string) (Form, error) {
	f, err := s.repo.Load(ctx, formID)
	if err != nil {
		return Form{}, err
	}
	suppRows, err := s.supplementRows(ctx, f)
	if err != nil {
		return Form{}, err
	}
	if err := f.SubmitForApproval(suppRows); err != nil {
		return Form{}, err
	}
	f.UpdatedAt = s.clock().UTC()
	saved, err := s.repo.Save(ctx, f)
	if err != nil {
		return Form{}, err
	}
	if err := s.record(ctx, saved, actorID, audit.ActionSubmit, ""); err != nil {
		return Form{}, err
	}
	return saved, nil
}

// Approve is the hard-stop gate. Whether it succeeds, is blocked, or is
// otherwise denied, exactly one audit entry is recorded; a blocked attempt
// is itself an auditable event, never a silent rejection.
func (s *Service) Approve(ctx context.Context, formID, approverID string) (Form, error) {
	f, err := s.repo.Load(ctx, formID)
	if err != nil {
		return Form{}, err
	}
	suppRows, err := s.supplementRows(ctx, f)
	if err != nil {
		return Form{}, err
	}

	now := s.clock().UTC()
	approveErr := f.Approve(approverID, now, suppRows)

	var blocked *ApprovalBlockedError
	switch {
	case errors.As(approveErr, &blocked):
		detail := fmt.Sprintf("reason=%s highest_residual_risk=%s", blocked.Reason, blocked.HighestResidualRisk)
		if err := s.record(ctx, f, approverID, audit.ActionApproveBlocked, detail); err != nil {
			return Form{}, err
		}
		return Form{}, approveErr
	case approveErr != nil:
		if err := s.record(ctx, f, approverID, audit.ActionApproveAttempt, approveErr.Error()); err != nil {
			return Form{}, err
		}
		return Form{}, approveErr
	}

	f.UpdatedAt = now
	saved, err := s.repo.Save(ctx, f)
	if err != nil {
		return Form{}, err
	}
	if err := s.record(ctx, saved, approverID, audit.ActionApprove, ""); err != nil {
		return Form{}, err
	}
	return saved, nil
}

func (s *Service) Disapprove(ctx context.Context, formID, actorID, note string) (Form, error) {
	f, err := s.repo.Load(ctx, formID)
	if err != nil {
		return Form{}, err
	}
	if err := f.Disapprove(note); err != nil {
		return Form{}, err
	}
	f.UpdatedAt = s.clock().UTC()
	saved, err := s.repo.Save(ctx, f)
	if err != nil {
		return Form{}, err
	}
	if err := s.record(ctx, saved, actorID, audit.ActionDisapprove, note); err != nil {
		return Form{}, err
	}
	return saved, nil
}

// Export renders a consistent snapshot of a form packet. Exporting a 160HL
// resolves to its parent so the rendered packet always carries the
// authoritative status and watermark.
func (s *Service) Export(ctx context.Context, formID, actorID string) (ExportDocument, error) {
	f, err := s.repo.Load(ctx, formID)
	if err != nil {
		return ExportDocument{}, err
	}
	if f.Type.Supplemental() {
		f, err = s.repo.Load(ctx, f.ParentID)
		if err != nil {
			return ExportDocument{}, err
		}
	}

	// Every supplement edit bumps the parent's version, so an unchanged
	// version across the two reads pins them to one snapshot. Retry a few
	// times before giving up on a hot form.
	const snapshotAttempts = 3
	var supplements []Form
	for attempt := 0; ; attempt++ {
		supplements, err = s.repo.ListSupplements(ctx, f.ID)
		if err != nil {
			return ExportDocument{}, err
		}
		check, err := s.repo.Load(ctx, f.ID)
		if err != nil {
			return ExportDocument{}, err
		}
		if check.Version == f.Version {
			break
		}
		if attempt == snapshotAttempts-1 {
			return ExportDocument{}, ErrConcurrencyConflict
		}
		f = check
	}

	doc := BuildExport(f, supplements, s.clock().UTC())
	if err := s.record(ctx, f, actorID, audit.ActionExport, fmt.Sprintf("version=%d", f.Version)); err != nil {
		return ExportDocument{}, err
	}
	return doc, nil
}

// FormIncident reports which incident a form belongs to, for caller-side
// scope checks.
func (s *Service) FormIncident(ctx context.Context, id string) (string, error) {
	f, err := s.repo.Load(ctx, id)
	if err != nil {
		return "", err
	}
	return f.IncidentID, nil
}

// AuditTrail returns the recorded history of a form.
func (s *Service) AuditTrail(ctx context.Context, formID string) ([]audit.Entry, error) {
	if _, err := s.repo.Load(ctx, formID); err != nil {
		return nil, err
	}
	return s.recorder.Trail(ctx, formID)
}

/* ===================== internals ===================== */

// saveWithRecompute persists a mutated form and synchronously re-derives
// the aggregate of the effective form. For a supplement the effective form
// is the parent: its derived fields fold in every supplement's rows.
// Returns (saved target, saved effective).
func (s *Service) saveWithRecompute(ctx context.Context, f Form) (Form, Form, error) {
	now := s.clock().UTC()
	f.UpdatedAt = now

	if !f.Type.Supplemental() {
		suppRows, err := s.supplementRows(ctx, f)
		if err != nil {
			return Form{}, Form{}, err
		}
		f.Recompute(suppRows...)
		saved, err := s.repo.Save(ctx, f)
		if err != nil {
			return Form{}, Form{}, err
		}
		return saved, saved, nil
	}

	// A supplement writes through to its parent; once the parent is
	// terminal it is closed to changes from any page.
	parent, err := s.repo.Load(ctx, f.ParentID)
	if err != nil {
		return Form{}, Form{}, err
	}
	if err := terminalGuard(&parent, "edit supplement"); err != nil {
		return Form{}, Form{}, err
	}

	saved, err := s.repo.Save(ctx, f)
	if err != nil {
		return Form{}, Form{}, err
	}

	suppRows, err := s.supplementRows(ctx, parent)
	if err != nil {
		return Form{}, Form{}, err
	}
	parent.Recompute(suppRows...)
	parent.UpdatedAt = now
	savedParent, err := s.repo.Save(ctx, parent)
	if err != nil {
		return Form{}, Form{}, err
	}
	return saved, savedParent, nil
}

// supplementRows flattens the hazard rows of every 160HL attached to f.
// Supplements have no supplements of their own.
func (s *Service) supplementRows(ctx context.Context, f Form) ([]HazardRow, error) {
	if f.Type.Supplemental() {
		return nil, nil
	}
	supp, err := s.repo.ListSupplements(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	var rows []HazardRow
	for _, sf := range supp {
		rows = append(rows, sf.Hazards...)
	}
	return rows, nil
}

func (s *Service) record(ctx context.Context, f Form, actorID string, action audit.Action, detail string) error {
	return s.recorder.Record(ctx, audit.Entry{
		IncidentID: f.IncidentID,
		FormID:     f.ID,
		ActorID:    actorID,
		Action:     action,
		Detail:     detail,
	})
}

func (s *Service) recordRecompute(ctx context.Context, effective Form, actorID string) error {
	detail := fmt.Sprintf("highest_residual_risk=%s approval_blocked=%t", effective.HighestResidualRisk, effective.ApprovalBlocked)
	return s.record(ctx, effective, actorID, audit.ActionRecompute, detail)
}

func (s *Service) buildRow(ctx context.Context, in HazardInput) (HazardRow, error) {
	row := HazardRow{
		ID:            uuid.NewString(),
		SubActivity:   in.SubActivity,
		HazardOutcome: in.HazardOutcome,
		ControlText:   in.ControlText,
		ImplementHow:  in.ImplementHow,
		ImplementWho:  in.ImplementWho,
	}

	if in.TemplateID != "" {
		if s.templates == nil {
			return HazardRow{}, invalidField("template_id", "hazard catalog not configured")
		}
		tpl, ok, err := s.templates.Find(ctx, in.TemplateID)
		if err != nil {
			return HazardRow{}, err
		}
		if !ok {
			return HazardRow{}, invalidField("template_id", "unknown template")
		}
		if row.SubActivity == "" {
			row.SubActivity = tpl.Title
		}
		if row.HazardOutcome == "" {
			row.HazardOutcome = tpl.Description
		}
		if row.ControlText == "" {
			row.ControlText = tpl.DefaultControls
		}
	}

	var err error
	row.InitialRisk, err = s.resolveLevel("initial_risk", in.InitialRisk, in.InitialLikelihood, in.InitialSeverity)
	if err != nil {
		return HazardRow{}, err
	}
	row.ResidualRisk, err = s.resolveLevel("residual_risk", in.ResidualRisk, in.ResidualLikelihood, in.ResidualSeverity)
	if err != nil {
		return HazardRow{}, err
	}
	return row, nil
}

// mergeRow applies a partial update over an existing row. Empty input
// fields keep their current values; any supplied risk value is re-resolved
// to a canonical level.
func (s *Service) mergeRow(ctx context.Context, existing HazardRow, in HazardInput) (HazardRow, error) {
	_ = ctx
	row := existing

	if in.SubActivity != "" {
		row.SubActivity = in.SubActivity
	}
	if in.HazardOutcome != "" {
		row.HazardOutcome = in.HazardOutcome
	}
	if in.ControlText != "" {
		row.ControlText = in.ControlText
	}
	if in.ImplementHow != "" {
		row.ImplementHow = in.ImplementHow
	}
	if in.ImplementWho != "" {
		row.ImplementWho = in.ImplementWho
	}

	if in.InitialRisk != "" || in.InitialLikelihood != "" || in.InitialSeverity != "" {
		lvl, err := s.resolveLevel("initial_risk", in.InitialRisk, in.InitialLikelihood, in.InitialSeverity)
		if err != nil {
			return HazardRow{}, err
		}
		row.InitialRisk = lvl
	}
	if in.ResidualRisk != "" || in.ResidualLikelihood != "" || in.ResidualSeverity != "" {
		lvl, err := s.resolveLevel("residual_risk", in.ResidualRisk, in.ResidualLikelihood, in.ResidualSeverity)
		if err != nil {
			return HazardRow{}, err
		}
		row.ResidualRisk = lvl
	}
	return row, nil
}

// resolveLevel canonicalizes either entry path: a direct risk code, or a
// likelihood/severity pair run through the matrix.
func (s *Service) resolveLevel(field, code, likelihood, severity string) (risk.Level, error) {
	if code != "" {
		lvl, err := risk.ParseLevel(code)
		if err != nil {
			return risk.LevelNone, invalidField(field, err.Error())
		}
		return lvl, nil
	}

	if likelihood != "" || severity != "" {
		if likelihood == "" || severity == "" {
			return risk.LevelNone, invalidField(field, "likelihood and severity must be supplied together")
		}
		if s.matrix == nil {
			return risk.LevelNone, invalidField(field, "risk matrix not configured")
		}
		l, err := risk.ParseLikelihood(likelihood)
		if err != nil {
			return risk.LevelNone, invalidField(field, err.Error())
		}
		sev, err := risk.ParseSeverity(severity)
		if err != nil {
			return risk.LevelNone, invalidField(field, err.Error())
		}
		lvl, err := s.matrix.Level(l, sev)
		if err != nil {
			return risk.LevelNone, invalidField(field, err.Error())
		}
		return lvl, nil
	}

	return risk.LevelNone, invalidField(field, "risk code or likelihood/severity required")
}
