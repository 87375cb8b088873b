package graph

import "github.com/ritzau/citegraph/pkg/model"

// FilterByInDegree keeps nodes cited at least minCitations times and the links
// between kept nodes. Only links whose endpoints are both nodes count, as in
// Index.InDegree. A minimum of zero or less returns the graph unchanged.
func FilterByInDegree(g *model.Graph, minCitations int) *model.Graph {
	if minCitations <= 0 {
		return g
	}

	known := g.NodeIDs()
	inDegree := make(map[string]int)
	for _, l := range g.Links {
		if known[l.Source] && known[l.Target] {
			inDegree[l.Target]++
		}
	}

	return filterNodes(g, func(n model.Node) bool {
		return inDegree[n.ID] >= minCitations
	})
}

// FilterByYear keeps nodes whose year lies in [from, to] and the links
// between kept nodes. Nodes with unknown years are dropped.
func FilterByYear(g *model.Graph, from, to int) *model.Graph {
	return filterNodes(g, func(n model.Node) bool {
		return n.HasYear() && *n.Year >= from && *n.Year <= to
	})
}

func filterNodes(g *model.Graph, keep func(model.Node) bool) *model.Graph {
	filtered := model.NewGraph()
	kept := make(map[string]bool)
	for _, n := range g.Nodes {
		if keep(n) {
			kept[n.ID] = true
			filtered.Nodes = append(filtered.Nodes, n)
		}
	}
	for _, l := range g.Links {
		if kept[l.Source] && kept[l.Target] {
			filtered.Links = append(filtered.Links, l)
		}
	}
	return filtered
}
