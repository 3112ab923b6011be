package pin

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory repository useful for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	pins []Pin
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) List(ctx context.Context, userID string) ([]Pin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Pin
	for _, p := range r.pins {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PinnedAt.After(out[j].PinnedAt) })
	return out, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, p Pin, maxPerUser int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.pins {
		if e.UserID == p.UserID && e.ConversationID == p.ConversationID {
			return nil
		}
		if e.UserID == p.UserID {
			n++
		}
	}
	if n >= maxPerUser {
		return ErrPinLimit
	}
	r.pins = append(r.pins, p)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.pins {
		if p.UserID == userID && p.ConversationID == conversationID {
			r.pins = append(r.pins[:i], r.pins[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *MemoryRepo) Exists(ctx context.Context, userID, conversationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pins {
		if p.UserID == userID && p.ConversationID == conversationID {
			return true, nil
		}
	}
	return false, nil
}
