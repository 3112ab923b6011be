package message

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory repository useful for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	msgs map[string]Message
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{msgs: make(map[string]Message)}
}

func (r *MemoryRepo) ListByConversation(ctx context.Context, conversationID string, limit int, beforeID string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []Message
	for _, m := range r.msgs {
		if m.ConversationID == conversationID {
			all = append(all, m)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	start := 0
	if beforeID != "" {
		for i, m := range all {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	if start >= len(all) {
		return nil, nil
	}
	all = all[start:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return Message{}, ErrNotFound
	}
	return m, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs[m.ID] = m
	return nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return ErrNotFound
	}
	m.Status = status
	r.msgs[id] = m
	return nil
}

func (r *MemoryRepo) UpdateMedia(ctx context.Context, id string, media *Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return ErrNotFound
	}
	m.Media = media
	r.msgs[id] = m
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.msgs[id]; !ok {
		return ErrNotFound
	}
	delete(r.msgs, id)
	return nil
}
