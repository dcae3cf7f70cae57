package reporting

import (
	"context"
	"errors"

	"orm-platform/internal/assessment"
	"orm-platform/internal/risk"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// FormSource abstracts form listing for reporting. The assessment
// repository satisfies it directly.

type FormSource interface {
	List(ctx context.Context, flt assessment.Filters) ([]assessment.Form, error)
}

type Service struct {
	forms FormSource
}

func NewService(forms FormSource) *Service { return &Service{forms: forms} }

// FormsSummary folds the incident's forms into status and risk counts.
// Supplement pages count separately: their rows already roll up into their
// parent's aggregate, so counting their (empty) derived fields would skew
// the risk histogram.
func (s *Service) FormsSummary(ctx context.Context, req FormsSummaryRequest) (FormsSummary, error) {
	if req.IncidentID == "" {
		return FormsSummary{}, ErrInvalidRequest
	}
	if s.forms == nil {
		return FormsSummary{}, errors.New("reporting: form source not configured")
	}

	rows, err := s.forms.List(ctx, assessment.Filters{IncidentID: req.IncidentID})
	if err != nil {
		return FormsSummary{}, err
	}

	out := FormsSummary{IncidentID: req.IncidentID}
	for _, f := range rows {
		if f.Type.Supplemental() {
			out.SupplementPages++
			continue
		}
		out.TotalForms++
		if f.ApprovalBlocked {
			out.BlockedForms++
		}

		switch f.Status {
		case assessment.StatusDraft:
			out.DraftForms++
		case assessment.StatusPendingMitigation:
			out.PendingMitigationForms++
		case assessment.StatusPendingApproval:
			out.PendingApprovalForms++
		case assessment.StatusApproved:
			out.ApprovedForms++
		case assessment.StatusDisapproved:
			out.DisapprovedForms++
		}

		switch f.HighestResidualRisk {
		case risk.LevelLow:
			out.LowRiskForms++
		case risk.LevelMedium:
			out.MediumRiskForms++
		case risk.LevelHigh:
			out.HighRiskForms++
		case risk.LevelExtremelyHigh:
			out.ExtremelyHighRiskForms++
		default:
			out.UnratedForms++
		}
	}
	return out, nil
}
