package template

import (
	"context"
	"database/sql"
	"errors"
)

// SQLRepo persists templates in Postgres.
//
// Assumed table:
//
//	templates (
//	  id TEXT PRIMARY KEY,
//	  title TEXT NOT NULL,
//	  body TEXT NOT NULL,
//	  created_by TEXT NOT NULL,
//	  created_at TIMESTAMPTZ NOT NULL,
//	  updated_at TIMESTAMPTZ NOT NULL
//	)
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

func (r *SQLRepo) List(ctx context.Context) ([]Template, error) {
	const q = `
SELECT id, title, body, created_by, created_at, updated_at
FROM templates
ORDER BY title ASC
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Title, &t.Body, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLRepo) Get(ctx context.Context, id string) (Template, error) {
	const q = `
SELECT id, title, body, created_by, created_at, updated_at
FROM templates
WHERE id = $1
`
	var t Template
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Title, &t.Body, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	return t, err
}

func (r *SQLRepo) Insert(ctx context.Context, t Template) error {
	const q = `
INSERT INTO templates (id, title, body, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.Title, t.Body, t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *SQLRepo) Update(ctx context.Context, t Template) error {
	const q = `
UPDATE templates SET title = $2, body = $3, updated_at = $4 WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, t.ID, t.Title, t.Body, t.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM templates WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
