package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists audit entries in the audit_entries table.
//
// The table is INSERT-only; no update or delete statements exist here by
// design.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO audit_entries (id, incident_id, form_id, action, actor_id, detail, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.IncidentID,
		e.FormID,
		e.Action,
		e.ActorID,
		e.Detail,
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) ListByForm(ctx context.Context, formID string) ([]Entry, error) {
	const q = `
SELECT id, incident_id, form_id, action, actor_id, detail, created_at
FROM audit_entries
WHERE form_id = $1
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.IncidentID, &e.FormID, &e.Action, &e.ActorID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
