package user

import (
	"context"
	"database/sql"
	"errors"
)

// SQLRepo persists users in Postgres.
//
// Assumed table:
//
//	users (
//	  id TEXT PRIMARY KEY,
//	  username TEXT NOT NULL UNIQUE,
//	  display_name TEXT NOT NULL,
//	  role TEXT NOT NULL,
//	  disabled BOOLEAN NOT NULL DEFAULT FALSE,
//	  password_hash TEXT NOT NULL,
//	  created_at TIMESTAMPTZ NOT NULL
//	)
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

const userColumns = `id, username, display_name, role, disabled, password_hash, created_at`

func (r *SQLRepo) List(ctx context.Context) ([]User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
ORDER BY username ASC
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Disabled, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLRepo) Get(ctx context.Context, id string) (User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *SQLRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE username = $1
`
	return r.scanOne(r.db.QueryRowContext(ctx, q, username))
}

func (r *SQLRepo) Insert(ctx context.Context, u User) error {
	const q = `
INSERT INTO users (id, username, display_name, role, disabled, password_hash, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Username, u.DisplayName, u.Role, u.Disabled, u.PasswordHash, u.CreatedAt)
	return err
}

func (r *SQLRepo) Update(ctx context.Context, u User) error {
	const q = `
UPDATE users
SET display_name = $2, role = $3, disabled = $4, password_hash = $5
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, u.ID, u.DisplayName, u.Role, u.Disabled, u.PasswordHash)
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
	const q = `DELETE FROM users WHERE id = $1`
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

func (r *SQLRepo) scanOne(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Disabled, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}
