package graph

import (
	"gonum.org/v1/gonum/graph/simple"
)

// IDGraph is a directed graph keyed by string node IDs, backed by gonum.
// Parallel edges collapse into one and self edges are recorded separately,
// since gonum's simple graphs reject them.
type IDGraph struct {
	graph     *simple.DirectedGraph
	ids       map[string]int64 // Map from node ID to graph ID
	names     map[int64]string // Map from graph ID to node ID
	selfLoops map[string]bool
	nextID    int64
}

// NewIDGraph creates a new empty graph
func NewIDGraph() *IDGraph {
	return &IDGraph{
		graph:     simple.NewDirectedGraph(),
		ids:       make(map[string]int64),
		names:     make(map[int64]string),
		selfLoops: make(map[string]bool),
	}
}

// AddNode adds a node to the graph
func (g *IDGraph) AddNode(id string) {
	if _, exists := g.ids[id]; exists {
		return
	}

	g.ids[id] = g.nextID
	g.names[g.nextID] = id
	g.graph.AddNode(simple.Node(g.nextID))
	g.nextID++
}

// AddEdge adds an edge from source to target, adding missing nodes
func (g *IDGraph) AddEdge(source, target string) {
	g.AddNode(source)
	g.AddNode(target)

	if source == target {
		g.selfLoops[source] = true
		return
	}

	sourceID := g.ids[source]
	targetID := g.ids[target]
	if !g.graph.HasEdgeFromTo(sourceID, targetID) {
		g.graph.SetEdge(g.graph.NewEdge(g.graph.Node(sourceID), g.graph.Node(targetID)))
	}
}

// Has reports whether the node exists
func (g *IDGraph) Has(id string) bool {
	_, exists := g.ids[id]
	return exists
}

// HasSelfLoop reports whether an edge from id to itself was added
func (g *IDGraph) HasSelfLoop(id string) bool {
	return g.selfLoops[id]
}

// Name returns the node ID for a gonum graph ID
func (g *IDGraph) Name(id int64) (string, bool) {
	name, exists := g.names[id]
	return name, exists
}

// Graph returns the underlying directed graph
func (g *IDGraph) Graph() *simple.DirectedGraph {
	return g.graph
}

// Successors returns the IDs of nodes that id has an edge to
func (g *IDGraph) Successors(id string) []string {
	gid, exists := g.ids[id]
	if !exists {
		return nil
	}

	var out []string
	iter := g.graph.From(gid)
	for iter.Next() {
		out = append(out, g.names[iter.Node().ID()])
	}
	return out
}

// Predecessors returns the IDs of nodes that have an edge to id
func (g *IDGraph) Predecessors(id string) []string {
	gid, exists := g.ids[id]
	if !exists {
		return nil
	}

	var in []string
	iter := g.graph.To(gid)
	for iter.Next() {
		in = append(in, g.names[iter.Node().ID()])
	}
	return in
}

// Len returns the number of nodes
func (g *IDGraph) Len() int {
	return len(g.ids)
}
