// Package cycles finds strongly connected components in ID graphs.
package cycles

import (
	"sort"

	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/citegraph/pkg/graph"
)

// Cycle is a set of node IDs that reach each other along directed edges
type Cycle struct {
	IDs []string // sorted
}

// FindCycles finds all cycles in the graph, including single-node self loops.
// Cycles are ordered by their first ID.
func FindCycles(g *graph.IDGraph) []Cycle {
	var cycles []Cycle
	for _, scc := range topo.TarjanSCC(g.Graph()) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, 0, len(scc))
		for _, n := range scc {
			if name, ok := g.Name(n.ID()); ok {
				ids = append(ids, name)
			}
		}
		sort.Strings(ids)
		cycles = append(cycles, Cycle{IDs: ids})
	}

	nodes := g.Graph().Nodes()
	for nodes.Next() {
		name, _ := g.Name(nodes.Node().ID())
		if g.HasSelfLoop(name) {
			cycles = append(cycles, Cycle{IDs: []string{name}})
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].IDs[0] < cycles[j].IDs[0]
	})
	return cycles
}
