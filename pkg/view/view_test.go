package view

import (
	"context"
	"errors"
	"testing"

	"github.com/ritzau/citegraph/pkg/dataset"
	"github.com/ritzau/citegraph/pkg/hierarchy"
	"github.com/ritzau/citegraph/pkg/model"
	"github.com/ritzau/citegraph/pkg/selection"
)

// stubSource returns the next queued dataset or error on each load
type stubSource struct {
	results []stubResult
	calls   int
}

type stubResult struct {
	ds  *dataset.Dataset
	err error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Load(ctx context.Context) (*dataset.Dataset, error) {
	r := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	return r.ds, r.err
}

type countingRenderer struct {
	selects, unselects int
}

func (r *countingRenderer) SelectNode(string)      { r.selects++ }
func (r *countingRenderer) UnselectNodes()         { r.unselects++ }
func (r *countingRenderer) ShowLabelsFor([]string) {}

func categoryRows() []hierarchy.Row {
	return []hierarchy.Row{
		{ID: "Philosophy"},
		{ID: "Value Theory", Parent: "Philosophy"},
		{ID: "Ethics", Parent: "Value Theory"},
		{ID: "Aesthetics", Parent: "Value Theory"},
		{ID: "Science, Logic, and Mathematics", Parent: "Philosophy"},
	}
}

func publicationGraph() *model.Graph {
	return &model.Graph{
		Nodes: []model.Node{
			{ID: "SMIOTM", Title: "The Moral Problem", Author: "Michael Smith", Year: model.YearOf(1994)},
			{ID: "KANGRD", Title: "Groundwork", Author: "Immanuel Kant", Year: model.YearOf(1785)},
			{ID: "HUMTON", Title: "A Treatise of Human Nature", Author: "David Hume", Year: model.YearOf(1739)},
			{ID: "ANON", Title: "Untitled"},
		},
		Links: []model.Link{
			{Source: "SMIOTM", Target: "KANGRD"},
			{Source: "SMIOTM", Target: "HUMTON"},
			{Source: "KANGRD", Target: "HUMTON"},
			{Source: "ANON", Target: "HUMTON"},
			{Source: "SMIOTM", Target: "missing"},
		},
	}
}

func TestView_Categories(t *testing.T) {
	src := &stubSource{results: []stubResult{{ds: &dataset.Dataset{Categories: categoryRows()}}}}
	v := New("categories", KindCategories, src, nil, DefaultOptions())

	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	styled, err := v.Styled()
	if err != nil {
		t.Fatalf("Styled() error = %v", err)
	}
	if len(styled.Nodes) != 5 || len(styled.Links) != 4 {
		t.Fatalf("Unexpected graph size %d/%d", len(styled.Nodes), len(styled.Links))
	}

	colors := make(map[string]string)
	for _, s := range styled.Styles {
		colors[s.ID] = s.Color
		if s.Size != 3 {
			t.Errorf("Category %s should have size 3, got %v", s.ID, s.Size)
		}
	}
	if colors["Ethics"] != colors["Aesthetics"] || colors["Ethics"] != "#bfedef" {
		t.Errorf("Expected Value Theory color for its children, got %v", colors)
	}

	state, err := v.Select(context.Background(), "Ethics")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(state.Neighborhood.Siblings) != 1 || state.Neighborhood.Siblings[0].ID != "Aesthetics" {
		t.Errorf("Expected sibling Aesthetics, got %v", state.Neighborhood.Siblings)
	}
}

func TestView_Publications(t *testing.T) {
	src := &stubSource{results: []stubResult{{ds: &dataset.Dataset{Publications: publicationGraph()}}}}
	v := New("publications", KindPublications, src, nil, DefaultOptions())

	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	status := v.Status()
	if status.State != "ready" || status.Nodes != 4 || status.Links != 4 || status.InvalidLinks != 1 {
		t.Errorf("Unexpected status %+v", status)
	}

	styled, _ := v.Styled()
	sizes := make(map[string]float64)
	for _, s := range styled.Styles {
		sizes[s.ID] = s.Size
	}
	if sizes["HUMTON"] != 45 || sizes["SMIOTM"] != 3 || sizes["KANGRD"] != 17 {
		t.Errorf("Unexpected sizes %v", sizes)
	}

	if _, err := v.Select(context.Background(), "KANGRD"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	snap, _ := v.Snapshot()
	if snap.Selected.ID != "KANGRD" || len(snap.Citing) != 1 || len(snap.Cited) != 1 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}

	styled, _ = v.Styled()
	for _, s := range styled.Styles {
		wantHighlight := s.ID != "ANON"
		if s.Highlighted != wantHighlight {
			t.Errorf("Node %s highlighted = %v, want %v", s.ID, s.Highlighted, wantHighlight)
		}
	}
}

func TestView_Filters(t *testing.T) {
	opts := DefaultOptions()
	opts.MinCitations = 1
	opts.YearFrom = 1700
	opts.YearTo = 1800

	src := &stubSource{results: []stubResult{{ds: &dataset.Dataset{Publications: publicationGraph()}}}}
	v := New("publications", KindPublications, src, nil, opts)
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	g, _ := v.Graph()
	if len(g.Nodes) != 2 || len(g.Links) != 1 {
		t.Errorf("Expected KANGRD and HUMTON with one link, got %v / %v", g.Nodes, g.Links)
	}
}

func TestView_FailedLoadKeepsGraph(t *testing.T) {
	loadErr := &model.DatasetLoadError{Source: "stub", Err: errors.New("connection reset")}
	src := &stubSource{results: []stubResult{
		{ds: &dataset.Dataset{Categories: categoryRows()}},
		{err: loadErr},
		{ds: &dataset.Dataset{Categories: []hierarchy.Row{{ID: "a"}, {ID: "b"}}}},
	}}
	v := New("categories", KindCategories, src, nil, DefaultOptions())

	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := v.Load(context.Background()); !errors.Is(err, loadErr) {
		t.Fatalf("Expected load error, got %v", err)
	}
	if g, err := v.Graph(); err != nil || len(g.Nodes) != 5 {
		t.Errorf("Failed load should keep the previous graph, got %v, %v", g, err)
	}
	if v.Status().State != "error" {
		t.Errorf("Expected error status, got %+v", v.Status())
	}

	err := v.Load(context.Background())
	var malformed *model.MalformedHierarchyError
	if !errors.As(err, &malformed) || malformed.Kind != model.HierarchyMultipleRoots {
		t.Fatalf("Expected multiple-roots error, got %v", err)
	}
	if g, _ := v.Graph(); len(g.Nodes) != 5 {
		t.Error("Malformed hierarchy should not replace the graph")
	}
}

func TestView_NotLoaded(t *testing.T) {
	v := New("categories", KindCategories, &stubSource{results: []stubResult{{err: errors.New("offline")}}}, nil, DefaultOptions())

	if _, err := v.Graph(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Expected ErrNotLoaded, got %v", err)
	}

	_ = v.Load(context.Background())
	if _, err := v.Styled(); err == nil || errors.Is(err, ErrNotLoaded) {
		t.Errorf("Expected the load error, got %v", err)
	}
}

func TestView_ReloadResetsSelection(t *testing.T) {
	r := &countingRenderer{}
	src := &stubSource{results: []stubResult{{ds: &dataset.Dataset{Publications: publicationGraph()}}}}
	v := New("publications", KindPublications, src, r, DefaultOptions())

	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := v.Select(context.Background(), "SMIOTM"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	snap, _ := v.Snapshot()
	if snap.Selected != nil {
		t.Errorf("Reload should clear the selection, got %v", snap.Selected.ID)
	}
	if r.unselects != 2 || r.selects != 1 {
		t.Errorf("Unexpected renderer calls: %+v", r)
	}
}

func TestView_StyleUpdate(t *testing.T) {
	src := &stubSource{results: []stubResult{{ds: &dataset.Dataset{Publications: publicationGraph()}}}}
	v := New("publications", KindPublications, src, nil, DefaultOptions())
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	first, _ := v.StyleUpdate()
	if !first.FullSync {
		t.Error("First update after load should be a full sync")
	}

	_, _ = v.Select(context.Background(), "ANON")
	diff, _ := v.StyleUpdate()
	if diff.FullSync || len(diff.Changed) != 2 {
		t.Errorf("Expected ANON and HUMTON to change, got %+v", diff.Changed)
	}

	diff, _ = v.StyleUpdate()
	if !diff.Empty() {
		t.Errorf("Expected no changes, got %+v", diff)
	}
}

func TestView_AsyncSelection(t *testing.T) {
	opts := DefaultOptions()
	opts.AsyncThreshold = 1

	src := &stubSource{results: []stubResult{{ds: &dataset.Dataset{Publications: publicationGraph()}}}}
	v := New("publications", KindPublications, src, nil, opts)
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	state, err := v.Select(context.Background(), "HUMTON")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if len(state.Neighborhood.Citing) != 3 {
		t.Errorf("Expected 3 citing nodes, got %d", len(state.Neighborhood.Citing))
	}
}

func TestView_Search(t *testing.T) {
	src := &stubSource{results: []stubResult{{ds: &dataset.Dataset{Publications: publicationGraph()}}}}
	v := New("publications", KindPublications, src, nil, DefaultOptions())
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		query string
		limit int
		want  []string
	}{
		{"kant", 0, []string{"KANGRD"}},
		{"TREATISE", 0, []string{"HUMTON"}},
		{"an", 0, []string{"KANGRD", "HUMTON", "ANON"}},
		{"an", 2, []string{"KANGRD", "HUMTON"}},
		{"smiotm", 0, []string{"SMIOTM"}},
		{"  ", 0, []string{}},
		{"nothing", 0, []string{}},
	}

	for _, tt := range tests {
		got, err := v.Search(tt.query, tt.limit)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", tt.query, err)
		}
		if len(got) != len(tt.want) {
			t.Errorf("Search(%q) returned %d results, want %v", tt.query, len(got), tt.want)
			continue
		}
		for i := range got {
			if got[i].ID != tt.want[i] {
				t.Errorf("Search(%q)[%d] = %s, want %s", tt.query, i, got[i].ID, tt.want[i])
			}
		}
	}
}

func TestView_RecordURL(t *testing.T) {
	v := New("publications", KindPublications, &stubSource{}, nil, DefaultOptions())
	if got := v.RecordURL("SMIOTM"); got != "https://philpapers.org/rec/SMIOTM" {
		t.Errorf("RecordURL() = %q", got)
	}
	if got := v.RecordURL("a b"); got != "https://philpapers.org/rec/a%20b" {
		t.Errorf("RecordURL() = %q", got)
	}
}

func TestView_ReloadRetiresOldSelection(t *testing.T) {
	r := &countingRenderer{}
	src := &stubSource{results: []stubResult{{ds: &dataset.Dataset{Publications: publicationGraph()}}}}
	v := New("publications", KindPublications, src, r, DefaultOptions())

	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	stale := v.current.controller
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// A request that picked up the old graph before the swap
	if _, err := stale.SelectID(context.Background(), "SMIOTM"); !errors.Is(err, selection.ErrSuperseded) {
		t.Errorf("Expected ErrSuperseded from the replaced controller, got %v", err)
	}
	if r.selects != 0 {
		t.Errorf("Replaced controller reached the renderer: %+v", r)
	}
	if snap, _ := v.Snapshot(); snap.Selected != nil {
		t.Errorf("Expected no selection, got %v", snap.Selected.ID)
	}
}

func TestView_YearToOnlyKeepsAncientWorks(t *testing.T) {
	g := publicationGraph()
	g.Nodes = append(g.Nodes, model.Node{ID: "ARIETH", Title: "Nicomachean Ethics", Year: model.YearOf(-340)})

	opts := DefaultOptions()
	opts.YearTo = 1750

	src := &stubSource{results: []stubResult{{ds: &dataset.Dataset{Publications: g}}}}
	v := New("publications", KindPublications, src, nil, opts)
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got, _ := v.Graph()
	ids := make(map[string]bool)
	for _, n := range got.Nodes {
		ids[n.ID] = true
	}
	if !ids["ARIETH"] || !ids["HUMTON"] || len(ids) != 2 {
		t.Errorf("Expected ARIETH and HUMTON, got %v", ids)
	}
}
