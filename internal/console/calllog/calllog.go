// Package calllog persists the console's call history: an append-only,
// capped list shared between console processes through a state file.
package calllog

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	fileName = "calllog.json"

	// MaxEntries caps the log; the oldest entries fall off the tail.
	MaxEntries = 200
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Outcomes of a terminated call.
const (
	OutcomeCompleted = "completed"
	OutcomeMissed    = "missed"
	OutcomeDeclined  = "declined"
	OutcomeCancelled = "cancelled"
)

// Entry is one terminated call. Timestamps are unix milliseconds.
// Entries are immutable once appended.
type Entry struct {
	ID              string `json:"id"`
	ConversationID  string `json:"conversation_id,omitempty"`
	Phone           string `json:"phone"`
	DisplayName     string `json:"display_name"`
	Direction       string `json:"direction"`
	Outcome         string `json:"outcome"`
	StartedAt       int64  `json:"started_at"`
	EndedAt         int64  `json:"ended_at"`
	DurationSeconds int    `json:"duration_seconds"`
}

// valid is the minimal shape check applied on read. One bad entry is
// dropped, not the whole log.
func (e Entry) valid() bool {
	if e.ID == "" || e.Phone == "" || e.DisplayName == "" {
		return false
	}
	if e.Direction != DirectionIncoming && e.Direction != DirectionOutgoing {
		return false
	}
	return e.StartedAt > 0 && e.EndedAt > 0
}

type Store struct {
	mu        sync.Mutex
	path      string
	listeners []func([]Entry)
	// lastRaw is the payload this process last wrote. Watch compares
	// against it to drop the fsnotify echo of our own writes, which
	// Write already delivered to the listeners.
	lastRaw []byte
	log     *slog.Logger
}

func NewStore(stateDir string, log *slog.Logger) *Store {
	return &Store{path: filepath.Join(stateDir, fileName), log: log}
}

// Subscribe registers an in-process listener called after every write.
// Cross-process listeners come through Watch.
func (s *Store) Subscribe(fn func([]Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Read loads the log. Missing or corrupt data yields an empty list;
// individually malformed entries are filtered out.
func (s *Store) Read() []Entry {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	return s.parse(raw)
}

func (s *Store) parse(raw []byte) []Entry {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.Warn("call log unreadable, starting empty", "path", s.path)
		return nil
	}

	out := make([]Entry, 0, len(items))
	for _, item := range items {
		var e Entry
		if err := json.Unmarshal(item, &e); err != nil || !e.valid() {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Write persists the full list and notifies in-process listeners.
// Persistence failures are swallowed; listeners still see the list.
func (s *Store) Write(entries []Entry) {
	raw, err := json.Marshal(entries)
	if err == nil {
		// Record before the file write lands so the watcher cannot see
		// its event ahead of the bookkeeping.
		s.mu.Lock()
		s.lastRaw = raw
		s.mu.Unlock()
		err = os.WriteFile(s.path, raw, 0o644)
	}
	if err != nil {
		s.log.Warn("call log not persisted", "error", err.Error())
	}

	s.mu.Lock()
	listeners := make([]func([]Entry), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(entries)
	}
}

// Append prepends the entry and truncates the tail past the cap. The
// caller may pass the list it already holds to skip a redundant read.
func (s *Store) Append(e Entry, current []Entry) []Entry {
	if current == nil {
		current = s.Read()
	}

	entries := make([]Entry, 0, len(current)+1)
	entries = append(entries, e)
	entries = append(entries, current...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	s.Write(entries)
	return entries
}
