package calllog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch delivers cross-process log changes: another console process
// writing the state file triggers a re-read and notifies in-process
// listeners here too. Blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors and atomic writers replace the file,
	// which would silently detach a file-level watch.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != s.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			raw, err := os.ReadFile(s.path)
			if err != nil {
				continue
			}

			s.mu.Lock()
			own := bytes.Equal(raw, s.lastRaw)
			listeners := make([]func([]Entry), len(s.listeners))
			copy(listeners, s.listeners)
			s.mu.Unlock()
			if own {
				// Echo of this process's own write; Write already
				// notified the listeners.
				continue
			}

			entries := s.parse(raw)
			for _, fn := range listeners {
				fn(entries)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("call log watcher error", "error", err.Error())
		}
	}
}
