package lens

import (
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/model"
)

// StyledGraph is a graph with the encoding of every node, ready for a
// renderer
type StyledGraph struct {
	Lens   string       `json:"lens"`
	Nodes  []model.Node `json:"nodes"`
	Styles []StyledNode `json:"styles"`
	Links  []model.Link `json:"links"`
}

// Render styles every node of g in node order
func Render(g *model.Graph, l *Lens, sel Selection) *StyledGraph {
	styled := &StyledGraph{
		Lens:   l.Name,
		Nodes:  g.Nodes,
		Styles: make([]StyledNode, 0, len(g.Nodes)),
		Links:  g.Links,
	}

	highlighted := 0
	for _, n := range g.Nodes {
		s := l.Style(n, sel)
		if s.Highlighted {
			highlighted++
		}
		styled.Styles = append(styled.Styles, s)
	}

	logging.Debug("rendered styles", "lens", l.Name, "nodes", len(styled.Styles), "highlighted", highlighted)
	return styled
}
