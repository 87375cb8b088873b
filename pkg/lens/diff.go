package lens

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
)

// StyleDiff is the change in node styles between two renders
type StyleDiff struct {
	Changed  []StyledNode `json:"changed"`
	Removed  []string     `json:"removed"`  // Node IDs
	FullSync bool         `json:"fullSync"` // True if Changed holds every node
	Hash     string       `json:"hash"`
}

// StyleSnapshot represents a previous render for diffing
type StyleSnapshot struct {
	Hash   string
	Styles map[string]StyledNode // nodeID -> style
}

// CreateSnapshot creates a snapshot from a rendered graph for diffing
func CreateSnapshot(g *StyledGraph) *StyleSnapshot {
	snapshot := &StyleSnapshot{
		Styles: make(map[string]StyledNode, len(g.Styles)),
	}
	for _, s := range g.Styles {
		snapshot.Styles[s.ID] = s
	}
	snapshot.Hash = hashStyles(g.Styles)
	return snapshot
}

// ComputeDiff computes the style changes from a snapshot to a new render.
// Without a snapshot every style is sent.
func ComputeDiff(old *StyleSnapshot, g *StyledGraph) *StyleDiff {
	hash := hashStyles(g.Styles)
	if old == nil {
		return &StyleDiff{
			Changed:  g.Styles,
			Removed:  []string{},
			FullSync: true,
			Hash:     hash,
		}
	}

	diff := &StyleDiff{
		Changed: make([]StyledNode, 0),
		Removed: make([]string, 0),
		Hash:    hash,
	}
	if hash == old.Hash {
		return diff
	}

	current := make(map[string]bool, len(g.Styles))
	for _, s := range g.Styles {
		current[s.ID] = true
		if prev, exists := old.Styles[s.ID]; !exists || prev != s {
			diff.Changed = append(diff.Changed, s)
		}
	}

	for id := range old.Styles {
		if !current[id] {
			diff.Removed = append(diff.Removed, id)
		}
	}
	sort.Strings(diff.Removed)

	return diff
}

// Empty reports whether the diff carries no changes
func (d *StyleDiff) Empty() bool {
	return !d.FullSync && len(d.Changed) == 0 && len(d.Removed) == 0
}

func hashStyles(styles []StyledNode) string {
	data, err := json.Marshal(styles)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
