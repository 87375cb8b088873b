// Package hierarchy turns a flat id/parent table into a rooted tree with a
// radial layout.
package hierarchy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ritzau/citegraph/pkg/cycles"
	"github.com/ritzau/citegraph/pkg/graph"
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/model"
)

// Row is one record of a hierarchy table. The root row has an empty Parent.
type Row struct {
	ID     string
	Parent string
	Value  float64 // only used for subtree weights
}

// Options configures the radial layout
type Options struct {
	Radius           float64 // distance of the deepest level from the center
	CousinSeparation float64 // gap between adjacent subtrees of different parents, in sibling gaps
}

// DefaultOptions returns the layout options used by the category view
func DefaultOptions() Options {
	return Options{
		Radius:           3000/2 - 30,
		CousinSeparation: 2,
	}
}

// treeNode is a node of the stratified hierarchy
type treeNode struct {
	id       string
	parent   *treeNode
	children []*treeNode
	depth    int
	height   int
	own      float64
	weight   float64
	angle    float64
	radius   float64
}

// Layout is the result of building a hierarchy
type Layout struct {
	Nodes []model.Node `json:"nodes"`
	Links []model.Link `json:"links"`

	root *treeNode
	byID map[string]*treeNode
}

// Build stratifies rows into a tree and computes the radial layout.
// Malformed input is reported as *model.MalformedHierarchyError.
func Build(rows []Row, opts Options) (*Layout, error) {
	if opts.Radius <= 0 {
		opts.Radius = DefaultOptions().Radius
	}
	if opts.CousinSeparation <= 0 {
		opts.CousinSeparation = DefaultOptions().CousinSeparation
	}

	root, byID, err := stratify(rows)
	if err != nil {
		return nil, err
	}

	computeHeights(root)
	computeWeights(root)
	sortChildren(root)

	layoutTidy(root, opts)

	layout := &Layout{
		Nodes: make([]model.Node, 0, len(rows)),
		Links: make([]model.Link, 0, len(rows)-1),
		root:  root,
		byID:  byID,
	}

	for _, n := range breadthFirst(root) {
		x, y := radialPoint(n.angle, n.radius)
		layout.Nodes = append(layout.Nodes, model.Node{ID: n.id, X: x, Y: y})
	}

	for _, row := range rows {
		if row.Parent != "" {
			layout.Links = append(layout.Links, model.Link{Source: row.Parent, Target: row.ID})
		}
	}

	logging.Debug("built hierarchy layout", "nodes", len(layout.Nodes), "links", len(layout.Links), "height", root.height)
	return layout, nil
}

// stratify validates rows and links every row to its parent
func stratify(rows []Row) (*treeNode, map[string]*treeNode, error) {
	byID := make(map[string]*treeNode, len(rows))
	for i, row := range rows {
		if row.ID == "" {
			return nil, nil, &model.MalformedHierarchyError{
				Kind:   model.HierarchyMissingID,
				Detail: fmt.Sprintf("row %d", i+1),
			}
		}
		if _, exists := byID[row.ID]; exists {
			return nil, nil, &model.MalformedHierarchyError{Kind: model.HierarchyDuplicateID, ID: row.ID}
		}
		byID[row.ID] = &treeNode{id: row.ID, own: row.Value}
	}

	parents := graph.NewIDGraph()
	var roots []string
	for _, row := range rows {
		if row.Parent == "" {
			roots = append(roots, row.ID)
			continue
		}
		if _, exists := byID[row.Parent]; !exists {
			return nil, nil, &model.MalformedHierarchyError{
				Kind:   model.HierarchyMissingParent,
				ID:     row.ID,
				Detail: fmt.Sprintf("parent %q not found", row.Parent),
			}
		}
		parents.AddEdge(row.Parent, row.ID)
	}

	if found := cycles.FindCycles(parents); len(found) > 0 {
		return nil, nil, &model.MalformedHierarchyError{
			Kind:   model.HierarchyCycle,
			ID:     found[0].IDs[0],
			Detail: strings.Join(found[0].IDs, " -> "),
		}
	}

	switch len(roots) {
	case 0:
		return nil, nil, &model.MalformedHierarchyError{Kind: model.HierarchyNoRoot}
	case 1:
	default:
		return nil, nil, &model.MalformedHierarchyError{
			Kind:   model.HierarchyMultipleRoots,
			ID:     roots[1],
			Detail: fmt.Sprintf("%d rows without parent", len(roots)),
		}
	}

	for _, row := range rows {
		if row.Parent == "" {
			continue
		}
		child := byID[row.ID]
		parent := byID[row.Parent]
		child.parent = parent
		parent.children = append(parent.children, child)
	}

	root := byID[roots[0]]
	for _, n := range breadthFirst(root) {
		if n.parent != nil {
			n.depth = n.parent.depth + 1
		}
	}
	return root, byID, nil
}

func computeHeights(n *treeNode) int {
	n.height = 0
	for _, c := range n.children {
		if h := computeHeights(c) + 1; h > n.height {
			n.height = h
		}
	}
	return n.height
}

func computeWeights(n *treeNode) float64 {
	n.weight = n.own
	for _, c := range n.children {
		n.weight += computeWeights(c)
	}
	return n.weight
}

// sortChildren orders children by height descending, then by ID, so the
// layout does not depend on input row order
func sortChildren(n *treeNode) {
	sort.SliceStable(n.children, func(i, j int) bool {
		a, b := n.children[i], n.children[j]
		if a.height != b.height {
			return a.height > b.height
		}
		return a.id < b.id
	})
	for _, c := range n.children {
		sortChildren(c)
	}
}

func breadthFirst(root *treeNode) []*treeNode {
	queue := []*treeNode{root}
	for i := 0; i < len(queue); i++ {
		queue = append(queue, queue[i].children...)
	}
	return queue
}

// radialPoint converts polar coordinates to Cartesian, with angle zero
// pointing up
func radialPoint(angle, radius float64) (float64, float64) {
	angle -= math.Pi / 2
	return radius * math.Cos(angle), radius * math.Sin(angle)
}

// Root returns the ID of the root node
func (l *Layout) Root() string {
	return l.root.id
}

// Weight returns the aggregate value of a node and its descendants
func (l *Layout) Weight(id string) float64 {
	if n, ok := l.byID[id]; ok {
		return n.weight
	}
	return 0
}

// Depth returns the distance of a node from the root
func (l *Layout) Depth(id string) int {
	if n, ok := l.byID[id]; ok {
		return n.depth
	}
	return 0
}

// Height returns the distance from a node to its deepest descendant
func (l *Layout) Height(id string) int {
	if n, ok := l.byID[id]; ok {
		return n.height
	}
	return 0
}

// Angle returns the polar angle of a node in [0, 2π)
func (l *Layout) Angle(id string) float64 {
	if n, ok := l.byID[id]; ok {
		return n.angle
	}
	return 0
}

// Radius returns the distance of a node from the center
func (l *Layout) Radius(id string) float64 {
	if n, ok := l.byID[id]; ok {
		return n.radius
	}
	return 0
}

// Parents returns the child -> parent map of the tree
func (l *Layout) Parents() map[string]string {
	parents := make(map[string]string, len(l.byID))
	for id, n := range l.byID {
		if n.parent != nil {
			parents[id] = n.parent.id
		}
	}
	return parents
}

// Graph returns the layout as a graph
func (l *Layout) Graph() *model.Graph {
	return &model.Graph{Nodes: l.Nodes, Links: l.Links}
}
