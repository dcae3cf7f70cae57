package reporting

import (
	"context"
	"errors"
	"testing"

	"orm-platform/internal/assessment"
	"orm-platform/internal/risk"
)

type stubSource struct {
	forms []assessment.Form
	err   error
}

func (s stubSource) List(ctx context.Context, flt assessment.Filters) ([]assessment.Form, error) {
	_ = ctx
	if s.err != nil {
		return nil, s.err
	}
	var out []assessment.Form
	for _, f := range s.forms {
		if flt.IncidentID != "" && f.IncidentID != flt.IncidentID {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func TestFormsSummary_RequiresIncident(t *testing.T) {
	svc := NewService(stubSource{})
	if _, err := svc.FormsSummary(context.Background(), FormsSummaryRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestFormsSummary_Counts(t *testing.T) {
	src := stubSource{forms: []assessment.Form{
		{IncidentID: "inc-1", Type: assessment.FormType160, Status: assessment.StatusDraft, HighestResidualRisk: risk.LevelLow},
		{IncidentID: "inc-1", Type: assessment.FormType160S, Status: assessment.StatusPendingMitigation, HighestResidualRisk: risk.LevelHigh, ApprovalBlocked: true},
		{IncidentID: "inc-1", Type: assessment.FormType160, Status: assessment.StatusApproved, HighestResidualRisk: risk.LevelMedium},
		{IncidentID: "inc-1", Type: assessment.FormType160, Status: assessment.StatusDraft},
		{IncidentID: "inc-1", Type: assessment.FormType160HL, ParentID: "p", Status: assessment.StatusDraft},
		{IncidentID: "inc-2", Type: assessment.FormType160, Status: assessment.StatusDraft},
	}}

	sum, err := NewService(src).FormsSummary(context.Background(), FormsSummaryRequest{IncidentID: "inc-1"})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if sum.TotalForms != 4 {
		t.Fatalf("expected 4 forms, got %d", sum.TotalForms)
	}
	if sum.SupplementPages != 1 {
		t.Fatalf("expected 1 supplement page, got %d", sum.SupplementPages)
	}
	if sum.DraftForms != 2 || sum.PendingMitigationForms != 1 || sum.ApprovedForms != 1 {
		t.Fatalf("unexpected status counts: %+v", sum)
	}
	if sum.BlockedForms != 1 {
		t.Fatalf("expected 1 blocked form, got %d", sum.BlockedForms)
	}
	if sum.LowRiskForms != 1 || sum.MediumRiskForms != 1 || sum.HighRiskForms != 1 || sum.UnratedForms != 1 {
		t.Fatalf("unexpected risk counts: %+v", sum)
	}
}

func TestFormsSummary_PropagatesSourceError(t *testing.T) {
	src := stubSource{err: errors.New("db down")}
	if _, err := NewService(src).FormsSummary(context.Background(), FormsSummaryRequest{IncidentID: "inc-1"}); err == nil {
		t.Fatalf("expected error")
	}
}
