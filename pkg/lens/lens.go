// Package lens computes the visual encoding of graph nodes: color, size,
// label and highlight state.
package lens

import (
	"github.com/ritzau/citegraph/pkg/model"
)

// Colorer maps a node to a hex color
type Colorer interface {
	Color(node model.Node, highlighted bool) string
}

// Sizer maps a node to a rendered size
type Sizer interface {
	Size(node model.Node) float64
}

// Selection is the part of the selection state that affects styling
type Selection struct {
	Focus     string          // empty when nothing is selected
	Connected map[string]bool // neighbors of the focus
}

// Contains reports whether id is the focus or one of its neighbors
func (s Selection) Contains(id string) bool {
	if s.Focus == "" {
		return false
	}
	return id == s.Focus || s.Connected[id]
}

// Lens combines the encoders of one view
type Lens struct {
	Name  string
	Color Colorer
	Size  Sizer
}

// StyledNode is a node together with its visual encoding
type StyledNode struct {
	ID          string  `json:"id"`
	Color       string  `json:"color"`
	Size        float64 `json:"size"`
	Label       string  `json:"label"`
	Highlighted bool    `json:"highlighted"`
	ShowLabel   bool    `json:"showLabel"`
}

// Style returns the encoding of a node under the given selection
func (l *Lens) Style(node model.Node, sel Selection) StyledNode {
	highlighted := sel.Contains(node.ID)
	styled := StyledNode{
		ID:          node.ID,
		Color:       Gray,
		Size:        DefaultNodeSize,
		Label:       Label(node),
		Highlighted: highlighted,
		ShowLabel:   highlighted,
	}
	if l.Color != nil {
		styled.Color = l.Color.Color(node, highlighted)
	}
	if l.Size != nil {
		styled.Size = l.Size.Size(node)
	}
	return styled
}

// Label returns the display label: the title, or the id without one
func Label(node model.Node) string {
	return node.Label()
}
