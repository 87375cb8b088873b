package watcher

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/citegraph/pkg/logging"
)

// ChangeEvent represents a batch of changed dataset files
type ChangeEvent struct {
	Paths     []string
	Timestamp time.Time
}

// batchWindow groups the events of a single save (write, rename, chmod)
const batchWindow = 100 * time.Millisecond

// FileWatcher watches dataset files for changes. It watches their
// directories so that files replaced by a rename are still seen.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool // cleaned absolute paths
	events  chan ChangeEvent
	stop    sync.Once
}

// NewFileWatcher creates a watcher for the given files
func NewFileWatcher(paths []string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		files:   make(map[string]bool, len(paths)),
		events:  make(chan ChangeEvent, 16),
	}
	for _, p := range paths {
		fw.files[cleanPath(p)] = true
	}
	return fw, nil
}

// Start watches the directories of all files and begins batching events.
// The events channel is closed when ctx is done or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for p := range fw.files {
		dirs[filepath.Dir(p)] = true
	}

	watched := 0
	for _, dir := range slices.Sorted(maps.Keys(dirs)) {
		if err := fw.watcher.Add(dir); err != nil {
			logging.Warn("failed to watch directory", "path", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 && len(dirs) > 0 {
		fw.watcher.Close()
		return fmt.Errorf("none of %d dataset directories could be watched", len(dirs))
	}

	logging.Info("watching dataset files", "files", len(fw.files), "directories", watched)
	go fw.processEvents(ctx)
	return nil
}

// processEvents batches events for watched files
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)

	var pending []string
	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		event := ChangeEvent{Paths: pending, Timestamp: time.Now()}
		pending = nil
		select {
		case fw.events <- event:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			fw.watcher.Close()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				flush()
				return
			}
			if !fw.relevant(event) {
				continue
			}
			logging.Trace("dataset file event", "path", event.Name, "op", event.Op.String())
			if name := cleanPath(event.Name); !slices.Contains(pending, name) {
				pending = append(pending, name)
			}
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// relevant reports whether an event may have changed a watched file's
// content
func (fw *FileWatcher) relevant(event fsnotify.Event) bool {
	if !fw.files[cleanPath(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stop.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}

func cleanPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
