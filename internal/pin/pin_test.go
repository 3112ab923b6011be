package pin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestPin_EnforcesLimit(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	for i := 0; i < MaxPerUser; i++ {
		if _, err := svc.Pin(ctx, "u1", fmt.Sprintf("conv-%d", i)); err != nil {
			t.Fatalf("pin %d: %v", i, err)
		}
	}
	if _, err := svc.Pin(ctx, "u1", "conv-overflow"); !errors.Is(err, ErrPinLimit) {
		t.Fatalf("expected ErrPinLimit, got %v", err)
	}

	// Another user is unaffected.
	if _, err := svc.Pin(ctx, "u2", "conv-0"); err != nil {
		t.Fatalf("pin other user: %v", err)
	}
}

func TestPin_LimitHoldsUnderConcurrency(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	const racers = 30
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, _ = svc.Pin(ctx, "u1", fmt.Sprintf("conv-%d", i))
		}(i)
	}
	close(start)
	wg.Wait()

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != MaxPerUser {
		t.Fatalf("expected exactly %d pins after racing inserts, got %d", MaxPerUser, len(list))
	}
}

func TestPin_Idempotent(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	first, err := svc.Pin(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	again, err := svc.Pin(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("re-pin: %v", err)
	}
	if !again.PinnedAt.Equal(first.PinnedAt) {
		t.Fatalf("re-pin must not change order position")
	}

	list, _ := svc.List(ctx, "u1")
	if len(list) != 1 {
		t.Fatalf("expected 1 pin, got %d", len(list))
	}
}

func TestUnpin_Idempotent(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Pin(ctx, "u1", "c1"); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if err := svc.Unpin(ctx, "u1", "c1"); err != nil {
		t.Fatalf("unpin: %v", err)
	}
	if err := svc.Unpin(ctx, "u1", "c1"); err != nil {
		t.Fatalf("second unpin: %v", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	i := 0
	svc.clock = func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Minute)
	}

	for _, id := range []string{"c1", "c2", "c3"} {
		if _, err := svc.Pin(ctx, "u1", id); err != nil {
			t.Fatalf("pin %s: %v", id, err)
		}
	}

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ConversationID != "c3" || list[2].ConversationID != "c1" {
		t.Fatalf("unexpected order: %+v", list)
	}
}
