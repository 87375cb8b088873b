package watcher

import (
	"context"
	"sort"

	"github.com/ritzau/citegraph/pkg/logging"
)

// Targets maps dataset files to the views that read them
type Targets map[string][]string

// Add registers the files of a view
func (t Targets) Add(view string, paths ...string) {
	for _, p := range paths {
		key := cleanPath(p)
		t[key] = append(t[key], view)
	}
}

// Paths returns every registered file
func (t Targets) Paths() []string {
	paths := make([]string, 0, len(t))
	for p := range t {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// AffectedViews returns the views to reload for a change, sorted and
// without duplicates
func AffectedViews(event ChangeEvent, targets Targets) []string {
	seen := make(map[string]bool)
	var views []string
	for _, p := range event.Paths {
		for _, v := range targets[cleanPath(p)] {
			if !seen[v] {
				seen[v] = true
				views = append(views, v)
			}
		}
	}
	sort.Strings(views)
	return views
}

// ReloadFunc reloads one view
type ReloadFunc func(ctx context.Context, view string) error

// Run reloads the affected views for each change until events is closed or
// ctx is done. A failed reload is logged and the next change is still
// processed.
func Run(ctx context.Context, events <-chan ChangeEvent, targets Targets, reload ReloadFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			views := AffectedViews(event, targets)
			logging.Info("dataset files changed", "paths", len(event.Paths), "views", views)
			for _, v := range views {
				if err := reload(ctx, v); err != nil {
					logging.Warn("reload failed, keeping previous graph", "view", v, "error", err)
				}
			}
		}
	}
}
