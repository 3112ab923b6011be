// Package unread keeps the client-local unread message overlay. The
// counts are derived state, never authoritative: the server does not
// know which conversation the operator is looking at.
package unread

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const fileName = "unread.json"

// Store is a file-backed conversationID→count map. Persistence
// failures are swallowed: counts stay correct in memory for the
// session and simply do not survive a restart.
type Store struct {
	mu       sync.Mutex
	path     string
	counts   map[string]int
	selected string

	// invalidate pokes the conversation-list cache so badges rerender.
	invalidate func()
	log        *slog.Logger
}

func NewStore(stateDir string, invalidate func(), log *slog.Logger) *Store {
	s := &Store{
		path:       filepath.Join(stateDir, fileName),
		counts:     map[string]int{},
		invalidate: invalidate,
		log:        log,
	}
	s.load()
	return s
}

// load reads the persisted map. Corrupt or missing files yield an
// empty overlay; unread counts are not worth failing startup over.
func (s *Store) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var counts map[string]int
	if err := json.Unmarshal(raw, &counts); err != nil || counts == nil {
		s.log.Warn("unread state unreadable, starting empty", "path", s.path)
		return
	}
	s.counts = counts
}

func (s *Store) persist() {
	raw, err := json.Marshal(s.counts)
	if err == nil {
		err = os.WriteFile(s.path, raw, 0o644)
	}
	if err != nil {
		s.log.Warn("unread state not persisted", "error", err.Error())
	}
}

// Increment bumps the count for a conversation unless it is the one
// currently selected: the operator is already looking at it.
func (s *Store) Increment(conversationID string) {
	if conversationID == "" {
		return
	}
	s.mu.Lock()
	if conversationID == s.selected {
		s.mu.Unlock()
		return
	}
	s.counts[conversationID]++
	s.persist()
	s.mu.Unlock()

	if s.invalidate != nil {
		s.invalidate()
	}
}

// Reset clears the count for a conversation.
func (s *Store) Reset(conversationID string) {
	s.mu.Lock()
	_, had := s.counts[conversationID]
	if had {
		delete(s.counts, conversationID)
		s.persist()
	}
	s.mu.Unlock()

	if had && s.invalidate != nil {
		s.invalidate()
	}
}

// SetSelected records the open conversation and resets its count
// synchronously, so the badge disappears the moment the thread opens.
func (s *Store) SetSelected(conversationID string) {
	s.mu.Lock()
	s.selected = conversationID
	s.mu.Unlock()

	if conversationID != "" {
		s.Reset(conversationID)
	}
}

func (s *Store) Count(conversationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[conversationID]
}

// Counts returns a copy of the overlay for merging into list renders.
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}
