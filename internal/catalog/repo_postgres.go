package catalog

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo reads the hazard_templates table. SELECT-only: the table is
// owned by the catalog collaborator and this engine never writes to it.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Find(ctx context.Context, id string) (Template, bool, error) {
	const q = `
SELECT id, title, description, default_controls
FROM hazard_templates
WHERE id = $1
`
	var t Template
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Title, &t.Description, &t.DefaultControls)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, false, nil
		}
		return Template{}, false, err
	}
	return t, true, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Template, error) {
	const q = `
SELECT id, title, description, default_controls
FROM hazard_templates
ORDER BY title, id
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.DefaultControls); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
