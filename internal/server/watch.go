package server

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch marks the cached matrix stale whenever a record file in dir changes.
// It returns once the watch is established; watching stops when ctx ends.
func (s *Server) Watch(ctx context.Context, dir string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer func() { _ = fw.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if !isRecordEvent(event) {
					continue
				}
				s.logger.Debug("record changed", "path", event.Name, "op", event.Op.String())
				s.MarkStale()
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watcher error", "dir", dir, "error", err)
			}
		}
	}()

	return nil
}

// isRecordEvent ignores temp files; their rename onto word_N.json is the event that matters
func isRecordEvent(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if !strings.HasPrefix(name, "word_") || !strings.HasSuffix(name, ".json") {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
