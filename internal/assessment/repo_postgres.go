package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"orm-platform/internal/risk"
	"orm-platform/pkg/utils"
)

// PostgresRepo persists forms and hazard rows.
//
// Tables:
// - orm_forms (version column is the optimistic-concurrency token)
// - orm_hazards (position column preserves insertion order)
//
// Save writes the form and replaces its hazard rows in one transaction; the
// version predicate on the UPDATE serializes concurrent writers per form
// without any cross-form locking.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const formColumns = `
id, incident_id, form_type, parent_id, activity, prepared_by_id, prepared_by_text,
date, highest_residual_risk, approval_blocked, approval_block_reason, status,
approved_by_id, approved_ts, disapproval_note, version, created_at, updated_at
`

func (r *PostgresRepo) Create(ctx context.Context, f Form) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertForm(ctx, tx, f); err != nil {
			return err
		}
		return insertHazards(ctx, tx, f)
	})
}

func (r *PostgresRepo) Load(ctx context.Context, id string) (Form, error) {
	q := fmt.Sprintf(`SELECT %s FROM orm_forms WHERE id = $1`, formColumns)

	f, err := scanForm(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return Form{}, err
	}
	f.Hazards, err = loadHazards(ctx, r.db, f.ID)
	if err != nil {
		return Form{}, err
	}
	return f, nil
}

func (r *PostgresRepo) Save(ctx context.Context, f Form) (Form, error) {
	out := f
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
UPDATE orm_forms
SET activity = $1, prepared_by_id = $2, prepared_by_text = $3,
    highest_residual_risk = $4, approval_blocked = $5, approval_block_reason = $6,
    status = $7, approved_by_id = $8, approved_ts = $9, disapproval_note = $10,
    version = version + 1, updated_at = $11
WHERE id = $12 AND version = $13
`
		res, err := tx.ExecContext(ctx, q,
			f.Activity,
			f.PreparedByID,
			f.PreparedByText,
			string(f.HighestResidualRisk),
			f.ApprovalBlocked,
			f.BlockReason,
			f.Status,
			f.ApprovedByID,
			nullableTime(f.ApprovedAt),
			f.DisapprovalNote,
			f.UpdatedAt,
			f.ID,
			f.Version,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// Either the form is gone or another writer advanced the
			// version; disambiguate for the caller.
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orm_forms WHERE id = $1)`, f.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			return ErrConcurrencyConflict
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM orm_hazards WHERE form_id = $1`, f.ID); err != nil {
			return err
		}
		if err := insertHazards(ctx, tx, f); err != nil {
			return err
		}
		out.Version = f.Version + 1
		return nil
	})
	if err != nil {
		return Form{}, err
	}
	return out, nil
}

func (r *PostgresRepo) List(ctx context.Context, flt Filters) ([]Form, error) {
	q := fmt.Sprintf(`SELECT %s FROM orm_forms WHERE 1=1`, formColumns)
	var args []any

	add := func(clause string, v any) {
		args = append(args, v)
		q += fmt.Sprintf(" AND %s = $%d", clause, len(args))
	}
	if flt.IncidentID != "" {
		add("incident_id", flt.IncidentID)
	}
	if flt.Type != "" {
		add("form_type", string(flt.Type))
	}
	if flt.Status != "" {
		add("status", string(flt.Status))
	}
	if flt.HighestResidualRisk != "" {
		add("highest_residual_risk", string(flt.HighestResidualRisk))
	}
	q += " ORDER BY created_at, id"

	return r.queryForms(ctx, q, args...)
}

func (r *PostgresRepo) ListSupplements(ctx context.Context, parentID string) ([]Form, error) {
	q := fmt.Sprintf(`SELECT %s FROM orm_forms WHERE parent_id = $1 AND form_type = $2 ORDER BY created_at, id`, formColumns)
	return r.queryForms(ctx, q, parentID, string(FormType160HL))
}

/* ===================== scan helpers ===================== */

func (r *PostgresRepo) queryForms(ctx context.Context, q string, args ...any) ([]Form, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		out[i].Hazards, err = loadHazards(ctx, r.db, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (Form, error) {
	var f Form
	var parentID, blockReason, approvedBy, disapprovalNote, preparedByText sql.NullString
	var approvedAt sql.NullTime
	var level string

	err := row.Scan(
		&f.ID,
		&f.IncidentID,
		&f.Type,
		&parentID,
		&f.Activity,
		&f.PreparedByID,
		&preparedByText,
		&f.Date,
		&level,
		&f.ApprovalBlocked,
		&blockReason,
		&f.Status,
		&approvedBy,
		&approvedAt,
		&disapprovalNote,
		&f.Version,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Form{}, ErrNotFound
		}
		return Form{}, err
	}

	f.ParentID = parentID.String
	f.PreparedByText = preparedByText.String
	f.BlockReason = blockReason.String
	f.ApprovedByID = approvedBy.String
	f.DisapprovalNote = disapprovalNote.String
	if approvedAt.Valid {
		f.ApprovedAt = approvedAt.Time
	}
	f.HighestResidualRisk = riskLevelFromDB(level)
	return f, nil
}

func loadHazards(ctx context.Context, db *sql.DB, formID string) ([]HazardRow, error) {
	const q = `
SELECT id, sub_activity, hazard_outcome, initial_risk, control_text, implement_how, implement_who, residual_risk
FROM orm_hazards
WHERE form_id = $1
ORDER BY position
`
	rows, err := db.QueryContext(ctx, q, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HazardRow
	for rows.Next() {
		var h HazardRow
		var initial, residual string
		if err := rows.Scan(&h.ID, &h.SubActivity, &h.HazardOutcome, &initial, &h.ControlText, &h.ImplementHow, &h.ImplementWho, &residual); err != nil {
			return nil, err
		}
		h.InitialRisk = riskLevelFromDB(initial)
		h.ResidualRisk = riskLevelFromDB(residual)
		out = append(out, h)
	}
	return out, rows.Err()
}

func insertForm(ctx context.Context, tx *sql.Tx, f Form) error {
	const q = `
INSERT INTO orm_forms (
  id, incident_id, form_type, parent_id, activity, prepared_by_id, prepared_by_text,
  date, highest_residual_risk, approval_blocked, approval_block_reason, status,
  approved_by_id, approved_ts, disapproval_note, version, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
)
`
	_, err := tx.ExecContext(ctx, q,
		f.ID,
		f.IncidentID,
		string(f.Type),
		nullableString(f.ParentID),
		f.Activity,
		f.PreparedByID,
		f.PreparedByText,
		f.Date,
		string(f.HighestResidualRisk),
		f.ApprovalBlocked,
		f.BlockReason,
		string(f.Status),
		f.ApprovedByID,
		nullableTime(f.ApprovedAt),
		f.DisapprovalNote,
		f.Version,
		f.CreatedAt,
		f.UpdatedAt,
	)
	return err
}

func insertHazards(ctx context.Context, tx *sql.Tx, f Form) error {
	const q = `
INSERT INTO orm_hazards (
  id, form_id, position, sub_activity, hazard_outcome, initial_risk,
  control_text, implement_how, implement_who, residual_risk
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`
	for i, h := range f.Hazards {
		_, err := tx.ExecContext(ctx, q,
			h.ID,
			f.ID,
			i,
			h.SubActivity,
			h.HazardOutcome,
			string(h.InitialRisk),
			h.ControlText,
			h.ImplementHow,
			h.ImplementWho,
			string(h.ResidualRisk),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// riskLevelFromDB trusts stored values; construction-time validation keeps
// the column within the closed set.
func riskLevelFromDB(v string) risk.Level { return risk.Level(v) }
