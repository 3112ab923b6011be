package calllog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func startWatch(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
}

func TestWatch_ExternalWriteNotifies(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, testLogger())

	got := make(chan []Entry, 1)
	s.Subscribe(func(entries []Entry) { got <- entries })
	startWatch(t, s)

	raw, _ := json.Marshal([]Entry{entry("ext", 1000)})
	if err := os.WriteFile(filepath.Join(dir, fileName), raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case entries := <-got:
		if len(entries) != 1 || entries[0].ID != "ext" {
			t.Fatalf("unexpected entries: %+v", entries)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher never notified on external write")
	}
}

func TestWatch_OwnWriteNotifiesOnce(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, testLogger())

	var calls atomic.Int32
	s.Subscribe(func([]Entry) { calls.Add(1) })
	startWatch(t, s)

	s.Append(entry("own", 1000), nil)

	// Let any watcher echo of the write arrive before counting.
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected exactly one notification for an own write, got %d", n)
	}
}
