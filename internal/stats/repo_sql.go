package stats

import (
	"context"
	"database/sql"
	"time"
)

type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

// DailyActivity joins two date_trunc aggregations: message volume by
// direction, and conversations created. Days with no activity are
// absent from the result.
func (r *SQLRepo) DailyActivity(ctx context.Context, from, to time.Time) ([]DailyActivity, error) {
	const q = `
WITH msg AS (
    SELECT date_trunc('day', created_at) AS day,
           count(*) FILTER (WHERE direction = 'inbound')  AS inbound,
           count(*) FILTER (WHERE direction = 'outbound') AS outbound
    FROM messages
    WHERE created_at >= $1 AND created_at < $2
    GROUP BY 1
), conv AS (
    SELECT date_trunc('day', created_at) AS day,
           count(*) AS started
    FROM conversations
    WHERE created_at >= $1 AND created_at < $2
    GROUP BY 1
)
SELECT COALESCE(msg.day, conv.day) AS day,
       COALESCE(msg.inbound, 0),
       COALESCE(msg.outbound, 0),
       COALESCE(conv.started, 0)
FROM msg
FULL OUTER JOIN conv ON conv.day = msg.day
ORDER BY day`

	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyActivity
	for rows.Next() {
		var d DailyActivity
		if err := rows.Scan(&d.Day, &d.InboundMessages, &d.OutboundMessages, &d.NewConversations); err != nil {
			return nil, err
		}
		d.Day = d.Day.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}
