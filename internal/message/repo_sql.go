package message

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// SQLRepo persists messages in Postgres.
//
// Assumed table:
//
//	messages (
//	  id TEXT PRIMARY KEY,
//	  conversation_id TEXT NOT NULL REFERENCES conversations(id),
//	  direction TEXT NOT NULL,
//	  body TEXT NOT NULL DEFAULT '',
//	  media JSONB,
//	  reply_to_id TEXT,
//	  sender_id TEXT,
//	  status TEXT NOT NULL,
//	  created_at TIMESTAMPTZ NOT NULL
//	)
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

const msgColumns = `id, conversation_id, direction, body, media, reply_to_id, sender_id, status, created_at`

func (r *SQLRepo) ListByConversation(ctx context.Context, conversationID string, limit int, beforeID string) ([]Message, error) {
	q := `
SELECT ` + msgColumns + `
FROM messages
WHERE conversation_id = $1
`
	args := []any{conversationID}
	if beforeID != "" {
		q += `
AND created_at < (SELECT created_at FROM messages WHERE id = $2)
`
		args = append(args, beforeID)
		q += `ORDER BY created_at DESC LIMIT $3`
	} else {
		q += `ORDER BY created_at DESC LIMIT $2`
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLRepo) Get(ctx context.Context, id string) (Message, error) {
	const q = `
SELECT ` + msgColumns + `
FROM messages
WHERE id = $1
`
	m, err := scanMessage(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, ErrNotFound
	}
	return m, err
}

func (r *SQLRepo) Insert(ctx context.Context, m Message) error {
	const q = `
INSERT INTO messages (id, conversation_id, direction, body, media, reply_to_id, sender_id, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	media, err := marshalMedia(m.Media)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		m.ID,
		m.ConversationID,
		m.Direction,
		m.Body,
		media,
		nullString(m.ReplyToID),
		nullString(m.SenderID),
		m.Status,
		m.CreatedAt,
	)
	return err
}

func (r *SQLRepo) UpdateStatus(ctx context.Context, id string, status Status) error {
	const q = `UPDATE messages SET status = $2 WHERE id = $1`
	return r.execOne(ctx, q, id, status)
}

func (r *SQLRepo) UpdateMedia(ctx context.Context, id string, media *Media) error {
	raw, err := marshalMedia(media)
	if err != nil {
		return err
	}
	const q = `UPDATE messages SET media = $2 WHERE id = $1`
	return r.execOne(ctx, q, id, raw)
}

func (r *SQLRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM messages WHERE id = $1`
	return r.execOne(ctx, q, id)
}

func (r *SQLRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
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

func scanMessage(row interface{ Scan(...any) error }) (Message, error) {
	var m Message
	var media []byte
	var replyTo, sender sql.NullString
	if err := row.Scan(
		&m.ID,
		&m.ConversationID,
		&m.Direction,
		&m.Body,
		&media,
		&replyTo,
		&sender,
		&m.Status,
		&m.CreatedAt,
	); err != nil {
		return Message{}, err
	}
	m.ReplyToID = replyTo.String
	m.SenderID = sender.String
	if len(media) > 0 {
		var md Media
		// Malformed media blobs degrade to no media rather than failing the row.
		if err := json.Unmarshal(media, &md); err == nil {
			m.Media = &md
		}
	}
	return m, nil
}

func marshalMedia(m *Media) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
