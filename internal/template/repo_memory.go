package template

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory repository useful for tests.
type MemoryRepo struct {
	mu        sync.Mutex
	templates map[string]Template
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{templates: make(map[string]Template)}
}

func (r *MemoryRepo) List(ctx context.Context) ([]Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, t Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, t Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[t.ID]; !ok {
		return ErrNotFound
	}
	r.templates[t.ID] = t
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[id]; !ok {
		return ErrNotFound
	}
	delete(r.templates, id)
	return nil
}
