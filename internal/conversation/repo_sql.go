package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// SQLRepo persists conversations in Postgres.
//
// Assumed table:
//
//	conversations (
//	  id TEXT PRIMARY KEY,
//	  phone TEXT NOT NULL UNIQUE,
//	  display_name TEXT NOT NULL,
//	  archived BOOLEAN NOT NULL DEFAULT FALSE,
//	  metadata JSONB NOT NULL DEFAULT '{}',
//	  created_at TIMESTAMPTZ NOT NULL,
//	  updated_at TIMESTAMPTZ NOT NULL
//	)
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

const convColumns = `id, phone, display_name, archived, metadata, created_at, updated_at`

func (r *SQLRepo) List(ctx context.Context, archived bool, search string) ([]Conversation, error) {
	q := `
SELECT ` + convColumns + `
FROM conversations
WHERE archived = $1
`
	args := []any{archived}
	if search != "" {
		q += ` AND (phone ILIKE '%' || $2 || '%' OR display_name ILIKE '%' || $2 || '%')`
		args = append(args, search)
	}
	q += ` ORDER BY (metadata->>'last_message_at') DESC NULLS LAST, updated_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

func (r *SQLRepo) Get(ctx context.Context, id string) (Conversation, error) {
	const q = `
SELECT ` + convColumns + `
FROM conversations
WHERE id = $1
`
	conv, err := scanConversation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	return conv, err
}

func (r *SQLRepo) GetByPhone(ctx context.Context, phone string) (Conversation, error) {
	const q = `
SELECT ` + convColumns + `
FROM conversations
WHERE phone = $1
`
	conv, err := scanConversation(r.db.QueryRowContext(ctx, q, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	return conv, err
}

func (r *SQLRepo) Insert(ctx context.Context, conv Conversation) error {
	const q = `
INSERT INTO conversations (id, phone, display_name, archived, metadata, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	meta, err := json.Marshal(conv.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		conv.ID,
		conv.Phone,
		conv.DisplayName,
		conv.Archived,
		meta,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	return err
}

func (r *SQLRepo) Update(ctx context.Context, conv Conversation) error {
	const q = `
UPDATE conversations
SET display_name = $2, archived = $3, metadata = $4, updated_at = $5
WHERE id = $1
`
	meta, err := json.Marshal(conv.Metadata)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, q,
		conv.ID,
		conv.DisplayName,
		conv.Archived,
		meta,
		conv.UpdatedAt,
	)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (Conversation, error) {
	var conv Conversation
	var meta []byte
	if err := row.Scan(
		&conv.ID,
		&conv.Phone,
		&conv.DisplayName,
		&conv.Archived,
		&meta,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return Conversation{}, err
	}
	conv.Metadata = DecodeMetadata(meta)
	return conv, nil
}
