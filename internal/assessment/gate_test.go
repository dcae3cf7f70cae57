package assessment

import "testing"

func TestEvaluateSubmission(t *testing.T) {
	cases := []struct {
		name    string
		typ     FormType
		status  Status
		blocked bool
		hazards int
		allowed bool
		reason  string
	}{
		{"draft with hazards", FormType160, StatusDraft, false, 2, true, ""},
		{"pending mitigation unblocked", FormType160S, StatusPendingMitigation, false, 1, true, ""},
		{"zero hazards", FormType160, StatusDraft, false, 0, false, DenyReasonNoHazards},
		{"blocked aggregate", FormType160, StatusPendingMitigation, true, 3, false, DenyReasonBlocked},
		{"already pending approval", FormType160, StatusPendingApproval, false, 1, false, DenyReasonWrongStatus},
		{"approved is terminal", FormType160, StatusApproved, false, 1, false, DenyReasonTerminal},
		{"disapproved is terminal", FormType160, StatusDisapproved, false, 1, false, DenyReasonTerminal},
		{"supplement never submits", FormType160HL, StatusDraft, false, 1, false, DenyReasonSupplement},
	}

	for _, tc := range cases {
		d := EvaluateSubmission(tc.typ, tc.status, tc.blocked, tc.hazards)
		if d.Allowed != tc.allowed {
			t.Fatalf("%s: allowed=%t, want %t", tc.name, d.Allowed, tc.allowed)
		}
		if d.Reason != tc.reason {
			t.Fatalf("%s: reason=%q, want %q", tc.name, d.Reason, tc.reason)
		}
	}
}

func TestEvaluateApproval(t *testing.T) {
	cases := []struct {
		name    string
		typ     FormType
		status  Status
		blocked bool
		hazards int
		allowed bool
		reason  string
	}{
		{"pending approval unblocked", FormType160, StatusPendingApproval, false, 1, true, ""},
		{"blocked form", FormType160, StatusPendingApproval, true, 1, false, DenyReasonBlocked},
		{"draft not submitted", FormType160, StatusDraft, false, 1, false, DenyReasonWrongStatus},
		{"approved is terminal", FormType160, StatusApproved, false, 1, false, DenyReasonTerminal},
		{"zero hazards", FormType160, StatusPendingApproval, false, 0, false, DenyReasonNoHazards},
		{"supplement never approved", FormType160HL, StatusDraft, false, 1, false, DenyReasonSupplement},
	}

	for _, tc := range cases {
		d := EvaluateApproval(tc.typ, tc.status, tc.blocked, tc.hazards)
		if d.Allowed != tc.allowed {
			t.Fatalf("%s: allowed=%t, want %t", tc.name, d.Allowed, tc.allowed)
		}
		if d.Reason != tc.reason {
			t.Fatalf("%s: reason=%q, want %q", tc.name, d.Reason, tc.reason)
		}
	}
}

// The hard stop must win over every other deny reason so a blocked attempt
// is reported (and audited) as blocked, not as a status problem.
func TestEvaluateApproval_BlockedDominatesStatus(t *testing.T) {
	d := EvaluateApproval(FormType160, StatusDraft, true, 1)
	if d.Allowed {
		t.Fatalf("expected deny")
	}
	if d.Reason != DenyReasonBlocked {
		t.Fatalf("expected %q, got %q", DenyReasonBlocked, d.Reason)
	}
}
