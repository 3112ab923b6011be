package unread

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIncrementAndPersistAcrossReload(t *testing.T) {
	dir := t.TempDir()
	invalidations := 0
	s := NewStore(dir, func() { invalidations++ }, testLogger())

	s.Increment("c1")
	s.Increment("c1")
	s.Increment("c2")

	if s.Count("c1") != 2 || s.Count("c2") != 1 {
		t.Fatalf("counts wrong: c1=%d c2=%d", s.Count("c1"), s.Count("c2"))
	}
	if invalidations != 3 {
		t.Fatalf("expected 3 invalidations, got %d", invalidations)
	}

	// simulated reload
	s2 := NewStore(dir, nil, testLogger())
	if s2.Count("c1") != 2 {
		t.Fatalf("expected persisted count 2, got %d", s2.Count("c1"))
	}
}

func TestIncrement_NoOpOnSelected(t *testing.T) {
	s := NewStore(t.TempDir(), nil, testLogger())
	s.SetSelected("c1")

	s.Increment("c1")
	if s.Count("c1") != 0 {
		t.Fatalf("selected conversation must not accumulate unread, got %d", s.Count("c1"))
	}

	s.Increment("c2")
	if s.Count("c2") != 1 {
		t.Fatalf("other conversations still count, got %d", s.Count("c2"))
	}
}

func TestSetSelected_ResetsSynchronously(t *testing.T) {
	s := NewStore(t.TempDir(), nil, testLogger())
	s.Increment("c1")
	s.Increment("c1")

	s.SetSelected("c1")
	if s.Count("c1") != 0 {
		t.Fatalf("selecting must reset, got %d", s.Count("c1"))
	}
}

func TestResetThenIncrementYieldsOne(t *testing.T) {
	s := NewStore(t.TempDir(), nil, testLogger())
	for i := 0; i < 5; i++ {
		s.Increment("c1")
	}

	s.Reset("c1")
	s.Increment("c1")
	if s.Count("c1") != 1 {
		t.Fatalf("expected 1 after reset+increment, got %d", s.Count("c1"))
	}
}

func TestLoad_CorruptFileYieldsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewStore(dir, nil, testLogger())
	if s.Count("c1") != 0 {
		t.Fatalf("corrupt state must load empty")
	}
	s.Increment("c1")
	if s.Count("c1") != 1 {
		t.Fatalf("store must still work after corrupt load")
	}
}

func TestPersistFailureSwallowed(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil, testLogger())

	// make the state file unwritable by replacing it with a directory
	os.Mkdir(filepath.Join(dir, fileName), 0o755)

	s.Increment("c1")
	if s.Count("c1") != 1 {
		t.Fatalf("in-memory count must survive persist failure, got %d", s.Count("c1"))
	}
}
