package webhookevent

import (
	"context"
	"database/sql"
	"time"
)

// SQLRepo persists webhook events in Postgres.
//
// Assumed table (INSERT-only policy recommended):
//
//	webhook_events (
//	  id TEXT PRIMARY KEY,
//	  kind TEXT NOT NULL,
//	  payload JSONB NOT NULL,
//	  received_at TIMESTAMPTZ NOT NULL,
//	  processed_at TIMESTAMPTZ,
//	  process_error TEXT NOT NULL DEFAULT ''
//	)
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

func (r *SQLRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO webhook_events (id, kind, payload, received_at, processed_at, process_error)
VALUES ($1,$2,$3,$4,$5,$6)
`
	var processedAt *time.Time
	if e.ProcessedAt != nil {
		processedAt = e.ProcessedAt
	}
	_, err := r.db.ExecContext(ctx, q, e.ID, e.Kind, []byte(e.Payload), e.ReceivedAt, processedAt, e.ProcessError)
	return err
}

func (r *SQLRepo) List(ctx context.Context, limit, offset int) ([]Event, error) {
	const q = `
SELECT id, kind, payload, received_at, processed_at, process_error
FROM webhook_events
ORDER BY received_at DESC
LIMIT $1 OFFSET $2
`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var payload []byte
		var processedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.Kind, &payload, &e.ReceivedAt, &processedAt, &e.ProcessError); err != nil {
			return nil, err
		}
		e.Payload = payload
		if processedAt.Valid {
			t := processedAt.Time
			e.ProcessedAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLRepo) MarkProcessed(ctx context.Context, id string, at time.Time, processErr string) error {
	const q = `
UPDATE webhook_events SET processed_at = $2, process_error = $3 WHERE id = $1
`
	_, err := r.db.ExecContext(ctx, q, id, at, processErr)
	return err
}
