package reporting

// FormsSummaryRequest requests aggregated ORM form metrics for one
// incident. Cross-incident analytics are intentionally not offered.

type FormsSummaryRequest struct {
	IncidentID string `json:"incident_id"`
}

type FormsSummary struct {
	IncidentID string `json:"incident_id"`

	TotalForms      int `json:"total_forms"`
	SupplementPages int `json:"supplement_pages"`

	DraftForms             int `json:"draft_forms"`
	PendingMitigationForms int `json:"pending_mitigation_forms"`
	PendingApprovalForms   int `json:"pending_approval_forms"`
	ApprovedForms          int `json:"approved_forms"`
	DisapprovedForms       int `json:"disapproved_forms"`

	// BlockedForms counts forms currently failing the hard-stop gate.
	BlockedForms int `json:"blocked_forms"`

	LowRiskForms           int `json:"low_risk_forms"`
	MediumRiskForms        int `json:"medium_risk_forms"`
	HighRiskForms          int `json:"high_risk_forms"`
	ExtremelyHighRiskForms int `json:"extremely_high_risk_forms"`
	UnratedForms           int `json:"unrated_forms"`
}
