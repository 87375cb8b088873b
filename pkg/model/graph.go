package model

// Graph represents one loaded dataset: a node table and a directed link table.
// It serves as the common data model for the hierarchy and citation views.
// A Graph is built once per load and replaced wholesale on reload.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]Node, 0),
		Links: make([]Link, 0),
	}
}

// Node represents a category or a publication.
// X and Y are only meaningful for the hierarchy view, where they are computed
// by the radial layout.
type Node struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Title  string  `json:"title,omitempty"`
	Author string  `json:"author,omitempty"`
	Year   *int    `json:"year"`             // nil when unknown
	Impact float64 `json:"impact,omitempty"` // used to order cited lists
}

// Link represents a directed connection between two nodes.
// In the hierarchy view Target is a child of Source; in the citation view
// Source cites Target.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Plausible year bounds. Values outside are normalized to unknown.
const (
	MinPlausibleYear = -500
	MaxPlausibleYear = 2030
)

// Label returns the display label for the node.
func (n Node) Label() string {
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

// HasYear reports whether the node carries a known year.
func (n Node) HasYear() bool {
	return n.Year != nil
}

// YearOf is a convenience for building nodes with a known year.
func YearOf(y int) *int {
	return &y
}

// NodeIDs returns the set of node IDs in the graph.
func (g *Graph) NodeIDs() map[string]bool {
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	return ids
}

// InvalidLinks returns links whose source or target is not a node of the graph.
func (g *Graph) InvalidLinks() []Link {
	ids := g.NodeIDs()
	var invalid []Link
	for _, l := range g.Links {
		if !ids[l.Source] || !ids[l.Target] {
			invalid = append(invalid, l)
		}
	}
	return invalid
}
