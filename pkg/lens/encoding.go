package lens

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ritzau/citegraph/pkg/model"
)

// Gray is used for nodes without a meaningful color
const Gray = "#808080"

// DefaultNodeSize is the size of nodes in the category view
const DefaultNodeSize = 3

// DefaultPalette assigns a color to each top-level PhilPapers category
func DefaultPalette() map[string]string {
	return map[string]string{
		"Philosophy, Misc":                "#907AD6",
		"Metaphysics and Epistemology":    "#EECFD4",
		"Value Theory":                    "#BFEDEF",
		"Science, Logic, and Mathematics": "#FF1B1C",
		"History of Western Philosophy":   "#FFE74C",
		"Philosophical Traditions":        "#8B008B",
		"Other Academic Areas":            "#00CED1",
	}
}

// AncestorPalette colors a node after its nearest ancestor (or itself) that
// has a palette entry. The root and nodes without such an ancestor are gray.
// Colors are resolved once when the palette is built.
type AncestorPalette struct {
	colors map[string]string
}

// NewAncestorPalette resolves colors for every node in parents.
// parents maps a node to its parent; root is never colored.
func NewAncestorPalette(parents map[string]string, root string, palette map[string]string) *AncestorPalette {
	p := &AncestorPalette{colors: make(map[string]string, len(parents)+1)}

	var resolve func(id string, depth int) string
	resolve = func(id string, depth int) string {
		if id == root || depth > len(parents) {
			return Gray
		}
		if c, ok := p.colors[id]; ok {
			return c
		}
		c, ok := palette[id]
		if ok {
			c = normalizeHex(c)
		} else if parent, hasParent := parents[id]; hasParent {
			c = resolve(parent, depth+1)
		} else {
			c = Gray
		}
		p.colors[id] = c
		return c
	}

	for id := range parents {
		resolve(id, 0)
	}
	return p
}

// Color returns the memoized ancestor color. Highlighting does not change it.
func (p *AncestorPalette) Color(node model.Node, _ bool) string {
	if c, ok := p.colors[node.ID]; ok {
		return c
	}
	return Gray
}

func normalizeHex(s string) string {
	c, err := colorful.Hex(s)
	if err != nil {
		return Gray
	}
	return c.Hex()
}

// FixedSize gives every node the same size
type FixedSize float64

func (s FixedSize) Size(model.Node) float64 {
	return float64(s)
}

// Degrees provides citation counts
type Degrees interface {
	InDegree(id string) int
	MaxInDegree() int
}

// DegreeSize scales nodes linearly with their in-degree
type DegreeSize struct {
	Min     float64
	Max     float64
	Degrees Degrees
}

// Scale maps an in-degree to a size. A graph without links maps everything to Min.
func (s DegreeSize) Scale(in, maxIn int) float64 {
	if maxIn <= 0 {
		maxIn = 1
	}
	return s.Min + float64(in)*(s.Max-s.Min)/float64(maxIn)
}

func (s DegreeSize) Size(node model.Node) float64 {
	if s.Degrees == nil {
		return s.Min
	}
	return s.Scale(s.Degrees.InDegree(node.ID), s.Degrees.MaxInDegree())
}

// TemporalGradient colors nodes by year between two anchor colors over a
// fixed year domain. Highlighted nodes are brightened by HighlightOffset per
// channel.
type TemporalGradient struct {
	From            int
	To              int
	Start           colorful.Color
	End             colorful.Color
	HighlightOffset uint8
}

// DefaultTemporalGradient runs from teal in 1500 to orange in 2024
func DefaultTemporalGradient() TemporalGradient {
	return TemporalGradient{
		From:            1500,
		To:              2024,
		Start:           colorful.Color{R: 60 / 255.0, G: 182 / 255.0, B: 196 / 255.0},
		End:             colorful.Color{R: 227 / 255.0, G: 116 / 255.0, B: 43 / 255.0},
		HighlightOffset: 50,
	}
}

// Normalize maps a year into [0, 1] over the gradient's domain
func (g TemporalGradient) Normalize(year int) float64 {
	if g.To == g.From {
		return 0
	}
	t := float64(year-g.From) / float64(g.To-g.From)
	return min(max(t, 0), 1)
}

// Base returns the unhighlighted color of a year
func (g TemporalGradient) Base(year int) colorful.Color {
	return g.Start.BlendRgb(g.End, g.Normalize(year))
}

func (g TemporalGradient) Color(node model.Node, highlighted bool) string {
	if !node.HasYear() {
		return Gray
	}
	c := g.Base(*node.Year)
	if highlighted {
		c = Brighten(c, g.HighlightOffset)
	}
	return c.Hex()
}

// Brighten adds offset to each 8-bit channel, clamped at 255
func Brighten(c colorful.Color, offset uint8) colorful.Color {
	r, g, b := c.RGB255()
	add := func(v uint8) uint8 {
		return uint8(min(int(v)+int(offset), 255))
	}
	return colorful.Color{
		R: float64(add(r)) / 255,
		G: float64(add(g)) / 255,
		B: float64(add(b)) / 255,
	}
}
