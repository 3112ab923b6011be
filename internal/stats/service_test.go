package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"whatsapp-console/internal/conversation"
	"whatsapp-console/internal/message"
)

func TestActivitySummary_RejectsInvalidRange(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	now := time.Now()
	if _, err := svc.ActivitySummary(context.Background(), now, now); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestActivitySummary_AggregatesByDay(t *testing.T) {
	repo := NewMemoryRepo()
	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	repo.Messages = []message.Message{
		{ID: "m1", Direction: message.DirectionInbound, CreatedAt: day1},
		{ID: "m2", Direction: message.DirectionOutbound, CreatedAt: day1.Add(time.Minute)},
		{ID: "m3", Direction: message.DirectionInbound, CreatedAt: day2},
	}
	repo.Conversations = []conversation.Conversation{
		{ID: "c1", CreatedAt: day1},
	}
	svc := NewService(repo)

	out, err := svc.ActivitySummary(context.Background(), day1.Add(-time.Hour), day2.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(out.Days))
	}
	if out.Days[0].InboundMessages != 1 || out.Days[0].OutboundMessages != 1 || out.Days[0].NewConversations != 1 {
		t.Fatalf("day 1 mismatch: %+v", out.Days[0])
	}
	if out.TotalInbound != 2 || out.TotalOutbound != 1 || out.TotalNewConversations != 1 {
		t.Fatalf("totals mismatch: %+v", out)
	}
}

func TestActivitySummary_ExcludesRowsOutsideRange(t *testing.T) {
	repo := NewMemoryRepo()
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.Messages = []message.Message{
		{ID: "m1", Direction: message.DirectionInbound, CreatedAt: day.Add(-48 * time.Hour)},
	}
	svc := NewService(repo)

	out, err := svc.ActivitySummary(context.Background(), day.Add(-time.Hour), day.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out.Days) != 0 {
		t.Fatalf("expected no days, got %+v", out.Days)
	}
}
