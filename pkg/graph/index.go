package graph

import (
	"sort"

	"github.com/ritzau/citegraph/pkg/model"
)

// IndexOptions selects the optional relationship features of an index
type IndexOptions struct {
	// Hierarchy enables sibling discovery. Links are then read as parent -> child.
	Hierarchy bool
}

// Neighborhood holds the relationships of a focus node
type Neighborhood struct {
	Connected map[string]bool `json:"-"`
	Citing    []model.Node    `json:"citing"`   // nodes linking into the focus
	Cited     []model.Node    `json:"cited"`    // nodes the focus links to
	Siblings  []model.Node    `json:"siblings"` // other children of the focus's parent
}

// EmptyNeighborhood returns the neighborhood of no focus
func EmptyNeighborhood() Neighborhood {
	return Neighborhood{
		Connected: make(map[string]bool),
		Citing:    []model.Node{},
		Cited:     []model.Node{},
		Siblings:  []model.Node{},
	}
}

// ConnectedIDs returns the connected node IDs in sorted order
func (n Neighborhood) ConnectedIDs() []string {
	ids := make([]string, 0, len(n.Connected))
	for id := range n.Connected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsEmpty reports whether the neighborhood has no relationships at all
func (n Neighborhood) IsEmpty() bool {
	return len(n.Connected) == 0 && len(n.Citing) == 0 && len(n.Cited) == 0 && len(n.Siblings) == 0
}

// Index holds derived adjacency for one graph. It is built once per load and
// is read-only afterwards; links with an endpoint missing from the node table
// are excluded from every derived list.
type Index struct {
	opts      IndexOptions
	nodes     []model.Node
	byID      map[string]int
	links     []model.Link
	invalid   []model.Link
	out       map[string][]int // source ID -> indices into links
	in        map[string][]int // target ID -> indices into links
	adjacency *IDGraph
	maxIn     int
}

// NewIndex builds the index for a graph
func NewIndex(g *model.Graph, opts IndexOptions) *Index {
	idx := &Index{
		opts:      opts,
		nodes:     g.Nodes,
		byID:      make(map[string]int, len(g.Nodes)),
		links:     make([]model.Link, 0, len(g.Links)),
		out:       make(map[string][]int),
		in:        make(map[string][]int),
		adjacency: NewIDGraph(),
	}

	for i, n := range g.Nodes {
		idx.byID[n.ID] = i
		idx.adjacency.AddNode(n.ID)
	}

	for _, l := range g.Links {
		_, hasSource := idx.byID[l.Source]
		_, hasTarget := idx.byID[l.Target]
		if !hasSource || !hasTarget {
			idx.invalid = append(idx.invalid, l)
			continue
		}

		pos := len(idx.links)
		idx.links = append(idx.links, l)
		idx.out[l.Source] = append(idx.out[l.Source], pos)
		idx.in[l.Target] = append(idx.in[l.Target], pos)
		idx.adjacency.AddEdge(l.Source, l.Target)

		if n := len(idx.in[l.Target]); n > idx.maxIn {
			idx.maxIn = n
		}
	}

	return idx
}

// Nodes returns the indexed nodes in input order
func (idx *Index) Nodes() []model.Node {
	return idx.nodes
}

// Links returns the valid links in input order
func (idx *Index) Links() []model.Link {
	return idx.links
}

// InvalidLinks returns links that referenced a missing node
func (idx *Index) InvalidLinks() []model.Link {
	return idx.invalid
}

// Node returns a node by ID
func (idx *Index) Node(id string) (model.Node, bool) {
	i, exists := idx.byID[id]
	if !exists {
		return model.Node{}, false
	}
	return idx.nodes[i], true
}

// InDegree returns the number of valid links targeting id
func (idx *Index) InDegree(id string) int {
	return len(idx.in[id])
}

// OutDegree returns the number of valid links leaving id
func (idx *Index) OutDegree(id string) int {
	return len(idx.out[id])
}

// MaxInDegree returns the largest in-degree across all nodes
func (idx *Index) MaxInDegree() int {
	return idx.maxIn
}

// Parent returns the source of the first link into id.
// In a hierarchy this is the unique parent.
func (idx *Index) Parent(id string) (string, bool) {
	incoming := idx.in[id]
	if len(incoming) == 0 {
		return "", false
	}
	return idx.links[incoming[0]].Source, true
}

// Parents returns the child -> parent map implied by the links
func (idx *Index) Parents() map[string]string {
	parents := make(map[string]string, len(idx.in))
	for id := range idx.in {
		parents[id], _ = idx.Parent(id)
	}
	return parents
}

// Neighborhood computes the relationships of the focus node.
// An empty or unknown focus yields the empty neighborhood.
func (idx *Index) Neighborhood(focusID string) Neighborhood {
	nb := EmptyNeighborhood()
	if _, exists := idx.byID[focusID]; !exists {
		return nb
	}

	for _, id := range idx.adjacency.Successors(focusID) {
		nb.Connected[id] = true
	}
	for _, id := range idx.adjacency.Predecessors(focusID) {
		nb.Connected[id] = true
	}
	if idx.adjacency.HasSelfLoop(focusID) {
		nb.Connected[focusID] = true
	}

	nb.Cited = idx.collect(idx.out[focusID], func(l model.Link) string { return l.Target }, "")
	nb.Citing = idx.collect(idx.in[focusID], func(l model.Link) string { return l.Source }, "")

	if idx.opts.Hierarchy {
		if parent, ok := idx.Parent(focusID); ok {
			nb.Siblings = idx.collect(idx.out[parent], func(l model.Link) string { return l.Target }, focusID)
		}
	}

	return nb
}

// collect resolves one endpoint of each link to its node, in link order,
// dropping duplicates and the excluded ID
func (idx *Index) collect(positions []int, endpoint func(model.Link) string, exclude string) []model.Node {
	result := make([]model.Node, 0, len(positions))
	seen := make(map[string]bool, len(positions))
	for _, pos := range positions {
		id := endpoint(idx.links[pos])
		if id == exclude || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, idx.nodes[idx.byID[id]])
	}
	return result
}

// Adjacency returns the citation graph of the valid links
func (idx *Index) Adjacency() *IDGraph {
	return idx.adjacency
}

// Distribution returns how many nodes have each total link count.
// Nodes without links are not counted.
func (idx *Index) Distribution() map[int]int {
	counts := make(map[string]int)
	for _, l := range idx.links {
		counts[l.Source]++
		counts[l.Target]++
	}

	dist := make(map[int]int)
	for _, c := range counts {
		dist[c]++
	}
	return dist
}
