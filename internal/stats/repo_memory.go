package stats

import (
	"context"
	"sort"
	"time"

	"whatsapp-console/internal/conversation"
	"whatsapp-console/internal/message"
)

// MemoryRepo aggregates over in-memory rows. Used by tests and the
// memory-backed dev mode.
type MemoryRepo struct {
	Messages      []message.Message
	Conversations []conversation.Conversation
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) DailyActivity(ctx context.Context, from, to time.Time) ([]DailyActivity, error) {
	byDay := map[time.Time]*DailyActivity{}
	day := func(t time.Time) time.Time {
		return t.UTC().Truncate(24 * time.Hour)
	}
	get := func(t time.Time) *DailyActivity {
		d := day(t)
		if byDay[d] == nil {
			byDay[d] = &DailyActivity{Day: d}
		}
		return byDay[d]
	}

	for _, m := range r.Messages {
		if m.CreatedAt.Before(from) || !m.CreatedAt.Before(to) {
			continue
		}
		switch m.Direction {
		case message.DirectionInbound:
			get(m.CreatedAt).InboundMessages++
		case message.DirectionOutbound:
			get(m.CreatedAt).OutboundMessages++
		}
	}
	for _, c := range r.Conversations {
		if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
			continue
		}
		get(c.CreatedAt).NewConversations++
	}

	out := make([]DailyActivity, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}
