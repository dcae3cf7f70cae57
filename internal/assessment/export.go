package assessment

import (
	"fmt"
	"strings"
	"time"

	"orm-platform/internal/risk"
)

// WatermarkPendingMitigation is stamped on every rendered artifact while
// the form's aggregate blocks approval.
const WatermarkPendingMitigation = "NOT APPROVED — PENDING MITIGATION"

// ExportDocument is the provider-agnostic render of one form packet: the
// parent form plus the rows of every attached 160HL supplement. It is built
// from a single versioned read so the watermark always matches the data.

type ExportDocument struct {
	FormID     string   `json:"form_id"`
	IncidentID string   `json:"incident_id"`
	FormType   FormType `json:"form_type"`

	Activity   string    `json:"activity"`
	PreparedBy string    `json:"prepared_by"`
	Date       time.Time `json:"date"`

	Status              Status     `json:"status"`
	HighestResidualRisk risk.Level `json:"highest_residual_risk"`

	// Watermark is present only while approval is blocked.
	Watermark string `json:"watermark,omitempty"`

	ApprovedBy string    `json:"approved_by,omitempty"`
	ApprovedAt time.Time `json:"approved_at,omitempty"`

	Hazards []ExportHazard `json:"hazards"`

	SupplementPages int       `json:"supplement_pages"`
	Version         int64     `json:"version"`
	GeneratedAt     time.Time `json:"generated_at"`
}

type ExportHazard struct {
	SubActivity   string     `json:"sub_activity"`
	HazardOutcome string     `json:"hazard_outcome"`
	InitialRisk   risk.Level `json:"initial_risk"`
	ControlText   string     `json:"control_text"`
	ImplementHow  string     `json:"implement_how,omitempty"`
	ImplementWho  string     `json:"implement_who,omitempty"`
	ResidualRisk  risk.Level `json:"residual_risk"`

	// Supplemental marks rows folded in from a 160HL page.
	Supplemental bool `json:"supplemental,omitempty"`
}

// BuildExport assembles the document from one consistent snapshot of the
// parent and its supplements. Supplement rows render after the parent's
// own rows, preserving each page's insertion order.
func BuildExport(f Form, supplements []Form, now time.Time) ExportDocument {
	doc := ExportDocument{
		FormID:              f.ID,
		IncidentID:          f.IncidentID,
		FormType:            f.Type,
		Activity:            f.Activity,
		PreparedBy:          preparedBy(f),
		Date:                f.Date,
		Status:              f.Status,
		HighestResidualRisk: f.HighestResidualRisk,
		ApprovedBy:          f.ApprovedByID,
		ApprovedAt:          f.ApprovedAt,
		SupplementPages:     len(supplements),
		Version:             f.Version,
		GeneratedAt:         now,
	}
	if f.ApprovalBlocked {
		doc.Watermark = WatermarkPendingMitigation
	}

	for _, h := range f.Hazards {
		doc.Hazards = append(doc.Hazards, exportHazard(h, false))
	}
	for _, sf := range supplements {
		for _, h := range sf.Hazards {
			doc.Hazards = append(doc.Hazards, exportHazard(h, true))
		}
	}
	return doc
}

func exportHazard(h HazardRow, supplemental bool) ExportHazard {
	return ExportHazard{
		SubActivity:   h.SubActivity,
		HazardOutcome: h.HazardOutcome,
		InitialRisk:   h.InitialRisk,
		ControlText:   h.ControlText,
		ImplementHow:  h.ImplementHow,
		ImplementWho:  h.ImplementWho,
		ResidualRisk:  h.ResidualRisk,
		Supplemental:  supplemental,
	}
}

func preparedBy(f Form) string {
	if f.PreparedByText != "" {
		return f.PreparedByText
	}
	return f.PreparedByID
}

// RenderText produces a plain-text rendering of the document. Print layout
// fidelity is out of scope; this is the line-oriented form used by ops
// tooling and tests.
func (d ExportDocument) RenderText() string {
	var b strings.Builder

	fmt.Fprintf(&b, "CAPF %s - OPERATIONAL RISK MANAGEMENT\n", d.FormType)
	if d.Watermark != "" {
		fmt.Fprintf(&b, "*** %s ***\n", d.Watermark)
	}
	fmt.Fprintf(&b, "Incident: %s\n", d.IncidentID)
	fmt.Fprintf(&b, "Activity: %s\n", d.Activity)
	fmt.Fprintf(&b, "Prepared by: %s on %s\n", d.PreparedBy, d.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Status: %s\n", d.Status)

	level := string(d.HighestResidualRisk)
	if level == "" {
		level = "no rating"
	}
	fmt.Fprintf(&b, "Highest residual risk: %s\n", level)

	for i, h := range d.Hazards {
		marker := ""
		if h.Supplemental {
			marker = " (160HL)"
		}
		fmt.Fprintf(&b, "%d.%s %s | initial %s | control: %s | residual %s\n",
			i+1, marker, h.HazardOutcome, h.InitialRisk, h.ControlText, h.ResidualRisk)
	}

	if d.Status == StatusApproved {
		fmt.Fprintf(&b, "Approved by %s at %s\n", d.ApprovedBy, d.ApprovedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Generated %s (form version %d)\n", d.GeneratedAt.Format(time.RFC3339), d.Version)
	return b.String()
}
