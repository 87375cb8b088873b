// Package selection owns the focus node of a view and the relationships
// derived from it.
package selection

import (
	"slices"
	"sort"

	"github.com/ritzau/citegraph/pkg/graph"
	"github.com/ritzau/citegraph/pkg/lens"
	"github.com/ritzau/citegraph/pkg/model"
)

// State is the selection after one transition. The zero State is idle.
// A State is never modified after it has been published.
type State struct {
	Focus        *model.Node
	Neighborhood graph.Neighborhood
	Labels       []string // focus first, then connected IDs in order
}

// IdleState returns the state without a focus
func IdleState() State {
	return State{Neighborhood: graph.EmptyNeighborhood(), Labels: []string{}}
}

func focusedState(node model.Node, nb graph.Neighborhood) State {
	labels := []string{node.ID}
	for _, id := range nb.ConnectedIDs() {
		if id != node.ID {
			labels = append(labels, id)
		}
	}
	return State{Focus: &node, Neighborhood: nb, Labels: labels}
}

// Idle reports whether nothing is selected
func (s State) Idle() bool {
	return s.Focus == nil
}

// FocusID returns the selected node ID, or "" when idle
func (s State) FocusID() string {
	if s.Focus == nil {
		return ""
	}
	return s.Focus.ID
}

// Highlight returns the selection as seen by the encoders
func (s State) Highlight() lens.Selection {
	return lens.Selection{Focus: s.FocusID(), Connected: s.Neighborhood.Connected}
}

// Snapshot is the read-only view of a selection for presentation panels
type Snapshot struct {
	Selected *model.Node  `json:"selected"`
	Citing   []model.Node `json:"citing"`
	Cited    []model.Node `json:"cited"`
	Siblings []model.Node `json:"siblings"`
	Labels   []string     `json:"labels"`
}

func (s State) snapshot() Snapshot {
	snap := Snapshot{
		Citing:   slices.Clone(s.Neighborhood.Citing),
		Cited:    slices.Clone(s.Neighborhood.Cited),
		Siblings: slices.Clone(s.Neighborhood.Siblings),
		Labels:   slices.Clone(s.Labels),
	}
	if s.Focus != nil {
		focus := *s.Focus
		snap.Selected = &focus
	}
	for _, list := range []*[]model.Node{&snap.Citing, &snap.Cited, &snap.Siblings} {
		if *list == nil {
			*list = []model.Node{}
		}
	}
	if snap.Labels == nil {
		snap.Labels = []string{}
	}
	return snap
}

// CitedByImpact returns the cited nodes ordered by impact, highest first.
// Ties keep link order.
func (s Snapshot) CitedByImpact() []model.Node {
	sorted := slices.Clone(s.Cited)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Impact > sorted[j].Impact
	})
	return sorted
}
