package graph

import (
	"testing"

	"github.com/ritzau/citegraph/pkg/model"
)

func TestFilterByInDegree(t *testing.T) {
	g := &model.Graph{
		Nodes: []model.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Links: []model.Link{
			{Source: "a", Target: "c"},
			{Source: "b", Target: "c"},
			{Source: "c", Target: "b"},
		},
	}

	if got := FilterByInDegree(g, 0); got != g {
		t.Error("Zero minimum should return the input graph")
	}

	filtered := FilterByInDegree(g, 1)
	if !equalIDs(ids(filtered.Nodes), []string{"b", "c"}) {
		t.Errorf("Expected nodes [b c], got %v", ids(filtered.Nodes))
	}
	if len(filtered.Links) != 2 {
		t.Errorf("Expected 2 links between kept nodes, got %v", filtered.Links)
	}

	filtered = FilterByInDegree(g, 2)
	if !equalIDs(ids(filtered.Nodes), []string{"c"}) || len(filtered.Links) != 0 {
		t.Errorf("Expected only c without links, got %v / %v", ids(filtered.Nodes), filtered.Links)
	}
}

func TestFilterByYear(t *testing.T) {
	g := &model.Graph{
		Nodes: []model.Node{
			{ID: "old", Year: model.YearOf(1650)},
			{ID: "new", Year: model.YearOf(1990)},
			{ID: "unknown"},
		},
		Links: []model.Link{
			{Source: "new", Target: "old"},
			{Source: "unknown", Target: "new"},
		},
	}

	filtered := FilterByYear(g, 1900, 2024)
	if !equalIDs(ids(filtered.Nodes), []string{"new"}) {
		t.Errorf("Expected [new], got %v", ids(filtered.Nodes))
	}
	if len(filtered.Links) != 0 {
		t.Errorf("Expected no links, got %v", filtered.Links)
	}

	filtered = FilterByYear(g, 1600, 2000)
	if len(filtered.Nodes) != 2 || len(filtered.Links) != 1 {
		t.Errorf("Expected 2 nodes and 1 link, got %v / %v", ids(filtered.Nodes), filtered.Links)
	}
}

func TestFilterByInDegree_IgnoresDanglingCitations(t *testing.T) {
	g := &model.Graph{
		Nodes: []model.Node{{ID: "a"}, {ID: "b"}},
		Links: []model.Link{
			{Source: "ghost", Target: "b"},
			{Source: "a", Target: "b"},
			{Source: "ghost", Target: "a"},
		},
	}

	filtered := FilterByInDegree(g, 1)
	if !equalIDs(ids(filtered.Nodes), []string{"b"}) {
		t.Errorf("Expected only b, got %v", ids(filtered.Nodes))
	}

	filtered = FilterByInDegree(g, 2)
	if len(filtered.Nodes) != 0 {
		t.Errorf("Dangling citations should not count, got %v", ids(filtered.Nodes))
	}
}
