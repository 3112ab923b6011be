package conversation

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu    sync.Mutex
	convs map[string]Conversation
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{convs: make(map[string]Conversation)}
}

func (r *MemoryRepo) List(ctx context.Context, archived bool, search string) ([]Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	search = strings.ToLower(search)
	var out []Conversation
	for _, c := range r.convs {
		if c.Archived != archived {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Phone), search) &&
			!strings.Contains(strings.ToLower(c.DisplayName), search) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].UpdatedAt, out[j].UpdatedAt
		if mi := out[i].Metadata.LastMessageAt; mi != nil {
			ti = *mi
		}
		if mj := out[j].Metadata.LastMessageAt; mj != nil {
			tj = *mj
		}
		return ti.After(tj)
	})
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) GetByPhone(ctx context.Context, phone string) (Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.convs {
		if c.Phone == phone {
			return c, nil
		}
	}
	return Conversation{}, ErrNotFound
}

func (r *MemoryRepo) Insert(ctx context.Context, conv Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[conv.ID] = conv
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, conv Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.convs[conv.ID]; !ok {
		return ErrNotFound
	}
	r.convs[conv.ID] = conv
	return nil
}
