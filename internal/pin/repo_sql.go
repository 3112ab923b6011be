package pin

import (
	"context"
	"database/sql"

	"whatsapp-console/pkg/utils"
)

// SQLRepo persists pins in Postgres.
//
// Assumed table:
//
//	pins (
//	  user_id TEXT NOT NULL,
//	  conversation_id TEXT NOT NULL,
//	  pinned_at TIMESTAMPTZ NOT NULL,
//	  PRIMARY KEY (user_id, conversation_id)
//	)
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

func (r *SQLRepo) List(ctx context.Context, userID string) ([]Pin, error) {
	const q = `
SELECT user_id, conversation_id, pinned_at
FROM pins
WHERE user_id = $1
ORDER BY pinned_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Pin
	for rows.Next() {
		var p Pin
		if err := rows.Scan(&p.UserID, &p.ConversationID, &p.PinnedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLRepo) Insert(ctx context.Context, p Pin, maxPerUser int) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// Serialize inserts for one user. Row locks cannot cover rows a
		// racing transaction has not committed yet, so under READ
		// COMMITTED two inserts could both count 9 and both succeed.
		const lock = `SELECT pg_advisory_xact_lock(hashtext($1))`
		if _, err := tx.ExecContext(ctx, lock, p.UserID); err != nil {
			return err
		}

		var n int
		const count = `SELECT COUNT(*) FROM pins WHERE user_id = $1`
		if err := tx.QueryRowContext(ctx, count, p.UserID).Scan(&n); err != nil {
			return err
		}
		if n >= maxPerUser {
			return ErrPinLimit
		}

		const insert = `
INSERT INTO pins (user_id, conversation_id, pinned_at)
VALUES ($1,$2,$3)
ON CONFLICT (user_id, conversation_id) DO NOTHING
`
		_, err := tx.ExecContext(ctx, insert, p.UserID, p.ConversationID, p.PinnedAt)
		return err
	})
}

func (r *SQLRepo) Delete(ctx context.Context, userID, conversationID string) error {
	const q = `DELETE FROM pins WHERE user_id = $1 AND conversation_id = $2`
	_, err := r.db.ExecContext(ctx, q, userID, conversationID)
	return err
}

func (r *SQLRepo) Exists(ctx context.Context, userID, conversationID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM pins WHERE user_id = $1 AND conversation_id = $2)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, userID, conversationID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
