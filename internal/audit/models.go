package audit

import "time"

// Entry is an immutable, append-only audit record.
//
// Invariants:
// - Entries are never updated or deleted.
// - Every mutating form operation and every approval attempt (including
//   blocked ones) produces a corresponding entry.
// - Audit is NOT best-effort: recording failures must fail the triggering
//   operation. Rejection is never silent.
//
// Storage recommendation (Postgres):
// - Table audit_entries with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.

type Entry struct {
	ID         string `json:"id" db:"id"`
	IncidentID string `json:"incident_id" db:"incident_id"`

	// FormID references the ORM form the action targeted.
	FormID string `json:"form_id" db:"form_id"`

	// Action indicates the business category of the record.
	Action Action `json:"action" db:"action"`

	// ActorID is the authenticated user causing the event.
	ActorID string `json:"actor_id,omitempty" db:"actor_id"`

	// Detail is a short free-text description for internal ops.
	Detail string `json:"detail,omitempty" db:"detail"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Action string

const (
	ActionCreate         Action = "create"
	ActionHeaderUpdate   Action = "header_update"
	ActionHazardAdd      Action = "hazard_add"
	ActionHazardUpdate   Action = "hazard_update"
	ActionHazardRemove   Action = "hazard_remove"
	ActionRecompute      Action = "recompute"
	ActionSubmit         Action = "submit"
	ActionApproveAttempt Action = "approve_attempt"
	ActionApproveBlocked Action = "approve_blocked"
	ActionApprove        Action = "approve"
	ActionDisapprove     Action = "disapprove"
	ActionExport         Action = "export"
)
