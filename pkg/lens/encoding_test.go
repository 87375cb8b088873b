package lens

import (
	"testing"

	"github.com/ritzau/citegraph/pkg/model"
)

type fakeDegrees map[string]int

func (d fakeDegrees) InDegree(id string) int { return d[id] }

func (d fakeDegrees) MaxInDegree() int {
	m := 0
	for _, v := range d {
		m = max(m, v)
	}
	return m
}

func TestDegreeSize_Scale(t *testing.T) {
	s := DegreeSize{Min: 3, Max: 45}

	tests := []struct {
		in, maxIn int
		want      float64
	}{
		{0, 0, 3},
		{0, 10, 3},
		{5, 10, 24},
		{10, 10, 45},
	}
	for _, tt := range tests {
		if got := s.Scale(tt.in, tt.maxIn); got != tt.want {
			t.Errorf("Scale(%d, %d) = %v, want %v", tt.in, tt.maxIn, got, tt.want)
		}
	}
}

func TestDegreeSize_Monotonic(t *testing.T) {
	degrees := fakeDegrees{"a": 0, "b": 1, "c": 4, "d": 9}
	s := DegreeSize{Min: 3, Max: 45, Degrees: degrees}

	prev := -1.0
	for _, id := range []string{"a", "b", "c", "d"} {
		size := s.Size(model.Node{ID: id})
		if size < prev {
			t.Errorf("Size(%s) = %v decreased from %v", id, size, prev)
		}
		if size < s.Min || size > s.Max {
			t.Errorf("Size(%s) = %v outside [%v, %v]", id, size, s.Min, s.Max)
		}
		prev = size
	}
	if got := s.Size(model.Node{ID: "d"}); got != 45 {
		t.Errorf("Most cited node should get Max, got %v", got)
	}
}

func TestDegreeSize_NoLinks(t *testing.T) {
	s := DegreeSize{Min: 3, Max: 45, Degrees: fakeDegrees{}}
	if got := s.Size(model.Node{ID: "lonely"}); got != 3 {
		t.Errorf("Expected Min for a graph without links, got %v", got)
	}
}

func TestTemporalGradient(t *testing.T) {
	g := DefaultTemporalGradient()

	tests := []struct {
		name        string
		year        *int
		highlighted bool
		want        string
	}{
		{"domain start", model.YearOf(1500), false, "#3cb6c4"},
		{"domain end", model.YearOf(2024), false, "#e3742b"},
		{"before domain", model.YearOf(1200), false, "#3cb6c4"},
		{"after domain", model.YearOf(2030), false, "#e3742b"},
		{"highlighted start", model.YearOf(1500), true, "#6ee8f6"},
		{"highlighted end clamps", model.YearOf(2024), true, "#ffa65d"},
		{"unknown year", nil, false, Gray},
		{"unknown year highlighted", nil, true, Gray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Color(model.Node{ID: "n", Year: tt.year}, tt.highlighted)
			if got != tt.want {
				t.Errorf("Color() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTemporalGradient_Normalize(t *testing.T) {
	g := DefaultTemporalGradient()
	prev := -1.0
	for year := 1400; year <= 2100; year += 25 {
		v := g.Normalize(year)
		if v < 0 || v > 1 {
			t.Fatalf("Normalize(%d) = %v outside [0, 1]", year, v)
		}
		if v < prev {
			t.Fatalf("Normalize(%d) = %v decreased from %v", year, v, prev)
		}
		prev = v
	}

	if got := (TemporalGradient{From: 1900, To: 1900}).Normalize(1950); got != 0 {
		t.Errorf("Empty domain should normalize to 0, got %v", got)
	}
}

func TestBrighten(t *testing.T) {
	g := DefaultTemporalGradient()
	for year := 1500; year <= 2024; year += 31 {
		base := g.Base(year)
		bright := Brighten(base, 50)
		br, bg, bb := base.RGB255()
		hr, hg, hb := bright.RGB255()
		for _, pair := range [][2]uint8{{br, hr}, {bg, hg}, {bb, hb}} {
			want := min(int(pair[0])+50, 255)
			if int(pair[1]) != want {
				t.Errorf("year %d: channel %d brightened to %d, want %d", year, pair[0], pair[1], want)
			}
		}
	}
}

func testParents() map[string]string {
	return map[string]string{
		"Value Theory":                    "Philosophy",
		"Ethics":                          "Value Theory",
		"Aesthetics":                      "Value Theory",
		"Metaethics":                      "Ethics",
		"Science, Logic, and Mathematics": "Philosophy",
		"Logic":                           "Science, Logic, and Mathematics",
		"Stray":                           "Elsewhere",
	}
}

func TestAncestorPalette(t *testing.T) {
	p := NewAncestorPalette(testParents(), "Philosophy", DefaultPalette())

	tests := map[string]string{
		"Philosophy":   Gray,
		"Value Theory": "#bfedef",
		"Ethics":       "#bfedef",
		"Metaethics":   "#bfedef",
		"Logic":        "#ff1b1c",
		"Stray":        Gray,
		"Unknown":      Gray,
	}
	for id, want := range tests {
		if got := p.Color(model.Node{ID: id}, false); got != want {
			t.Errorf("Color(%s) = %s, want %s", id, got, want)
		}
	}

	if p.Color(model.Node{ID: "Ethics"}, true) != p.Color(model.Node{ID: "Ethics"}, false) {
		t.Error("Highlighting should not change ancestor colors")
	}
}

func TestAncestorPalette_SiblingsShareColor(t *testing.T) {
	parents := testParents()
	p := NewAncestorPalette(parents, "Philosophy", DefaultPalette())

	children := make(map[string][]string)
	for child, parent := range parents {
		children[parent] = append(children[parent], child)
	}
	for parent, siblings := range children {
		if parent == "Philosophy" {
			// top-level categories each carry their own color
			continue
		}
		first := p.Color(model.Node{ID: siblings[0]}, false)
		for _, s := range siblings[1:] {
			if got := p.Color(model.Node{ID: s}, false); got != first {
				t.Errorf("Siblings under %s differ: %s vs %s", parent, got, first)
			}
		}
	}
}

func TestLabel(t *testing.T) {
	if got := Label(model.Node{ID: "SMIOTM", Title: "The Moral Problem"}); got != "The Moral Problem" {
		t.Errorf("Label() = %q", got)
	}
	if got := Label(model.Node{ID: "SMIOTM"}); got != "SMIOTM" {
		t.Errorf("Label() without title = %q", got)
	}
}
