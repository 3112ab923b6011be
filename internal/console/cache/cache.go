// Package cache keeps the console's view of server state. Entries are
// fetched through registered loaders and thrown away whenever a push
// event says the server moved on; consistency comes from refetching,
// never from patching cached values in place.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Logical resource keys.
const (
	KeyConversationsActive   = "conversations:active"
	KeyConversationsArchived = "conversations:archived"
	KeyPins                  = "pins"
	KeyTemplates             = "templates"
)

// MessagesKey names the message-list resource of one conversation.
func MessagesKey(conversationID string) string {
	return "messages:" + conversationID
}

var ErrUnknownResource = errors.New("cache: unknown resource")

type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value any
	valid bool
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	loaders map[string]FetchFunc
	log     *slog.Logger
}

func New(log *slog.Logger) *Cache {
	return &Cache{
		entries: map[string]*entry{},
		loaders: map[string]FetchFunc{},
		log:     log,
	}
}

// Register installs the loader for a resource key. Message lists are
// registered lazily as conversations get opened.
func (c *Cache) Register(key string, fn FetchFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaders[key] = fn
}

func (c *Cache) Registered(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.loaders[key]
	return ok
}

// Get returns the cached value, fetching through on miss.
func (c *Cache) Get(ctx context.Context, key string) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.valid {
		c.mu.Unlock()
		return e.value, nil
	}
	fn, ok := c.loaders[key]
	c.mu.Unlock()

	if !ok {
		return nil, ErrUnknownResource
	}
	v, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = &entry{value: v, valid: true}
	c.mu.Unlock()
	return v, nil
}

// Invalidate drops cached values; the next Get refetches.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			e.valid = false
		}
	}
}

// InvalidateAndRefetch drops the keys and eagerly reloads any that
// have a loader. A failed refetch leaves the entry invalid; the next
// Get retries.
func (c *Cache) InvalidateAndRefetch(ctx context.Context, keys ...string) {
	c.Invalidate(keys...)
	for _, k := range keys {
		if !c.Registered(k) {
			continue
		}
		if _, err := c.Get(ctx, k); err != nil {
			c.log.Warn("cache refetch failed", "key", k, "error", err.Error())
		}
	}
}
