// Package view ties a dataset source to a layout, an index, a lens and a
// selection controller. The category and publication views are the same
// type with different options.
package view

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ritzau/citegraph/pkg/dataset"
	"github.com/ritzau/citegraph/pkg/graph"
	"github.com/ritzau/citegraph/pkg/hierarchy"
	"github.com/ritzau/citegraph/pkg/lens"
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/model"
	"github.com/ritzau/citegraph/pkg/selection"
)

// Kind selects the behavior of a view
type Kind string

const (
	// KindCategories is the taxonomy tree: radial layout, siblings,
	// ancestor colors and a fixed node size
	KindCategories Kind = "categories"
	// KindPublications is the citation graph: temporal colors and
	// in-degree sizes
	KindPublications Kind = "publications"
)

// ErrNotLoaded is returned before the first successful load
var ErrNotLoaded = errors.New("view not loaded")

// Options configures a view
type Options struct {
	Layout         hierarchy.Options
	Palette        map[string]string
	MinSize        float64
	MaxSize        float64
	Gradient       lens.TemporalGradient
	MinCitations   int
	YearFrom       int // with YearTo, restricts publications to a year range
	YearTo         int
	AsyncThreshold int    // link count above which selections run on a worker; 0 disables
	RecordURL      string // {id} is replaced by the escaped node ID
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Layout:    hierarchy.DefaultOptions(),
		Palette:   lens.DefaultPalette(),
		MinSize:   3,
		MaxSize:   45,
		Gradient:  lens.DefaultTemporalGradient(),
		RecordURL: "https://philpapers.org/rec/{id}",
	}
}

// Status describes the outcome of the latest load
type Status struct {
	State        string    `json:"state"` // empty, loading, ready or error
	Error        string    `json:"error,omitempty"`
	Nodes        int       `json:"nodes"`
	Links        int       `json:"links"`
	InvalidLinks int       `json:"invalidLinks"`
	Warnings     int       `json:"warnings"`
	LoadedAt     time.Time `json:"loadedAt,omitempty"`
}

// loaded is the state produced by one successful load. It is replaced as a
// whole and never modified.
type loaded struct {
	graph      *model.Graph
	index      *graph.Index
	lens       *lens.Lens
	controller *selection.Controller
	layout     *hierarchy.Layout
	report     *dataset.Report
}

// View is one graph page
type View struct {
	name     string
	kind     Kind
	source   dataset.Source
	opts     Options
	renderer selection.Renderer

	loadMu sync.Mutex // one load at a time

	mu      sync.RWMutex
	current *loaded
	lastErr error
	status  Status
	styles  *lens.StyleSnapshot
}

// New creates an empty view. Call Load to read its dataset.
func New(name string, kind Kind, source dataset.Source, renderer selection.Renderer, opts Options) *View {
	return &View{
		name:     name,
		kind:     kind,
		source:   source,
		opts:     opts,
		renderer: renderer,
		status:   Status{State: "empty"},
	}
}

func (v *View) Name() string {
	return v.name
}

func (v *View) Kind() Kind {
	return v.kind
}

// Paths returns the files behind the view's source, if any
func (v *View) Paths() []string {
	if p, ok := v.source.(dataset.Paths); ok {
		return p.Paths()
	}
	return nil
}

// Status returns the outcome of the latest load
func (v *View) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status
}

// Load reads the dataset and replaces the view's graph in one step. The
// selection is reset. On failure the previous graph stays in place and the
// error is returned.
func (v *View) Load(ctx context.Context) error {
	v.loadMu.Lock()
	defer v.loadMu.Unlock()

	v.mu.Lock()
	v.status.State = "loading"
	v.mu.Unlock()

	start := time.Now()
	next, err := v.build(ctx)
	if err != nil {
		v.mu.Lock()
		v.lastErr = err
		v.status.State = "error"
		v.status.Error = err.Error()
		v.mu.Unlock()
		logging.Error("failed to load view", "view", v.name, "source", v.source.Name(), "error", err)
		return err
	}

	v.mu.Lock()
	prev := v.current
	v.current = next
	v.lastErr = nil
	v.styles = nil
	v.status = Status{
		State:        "ready",
		Nodes:        len(next.graph.Nodes),
		Links:        len(next.index.Links()),
		InvalidLinks: len(next.index.InvalidLinks()),
		Warnings:     len(next.report.Warnings),
		LoadedAt:     time.Now(),
	}
	v.mu.Unlock()

	// Requests against the old graph must not reach the renderer after the reset
	if prev != nil {
		prev.controller.Close()
	}
	// Reset the renderer's selection for the new graph
	next.controller.Clear()

	next.report.Log(v.source.Name())
	logging.Info("view loaded", "view", v.name, "nodes", len(next.graph.Nodes),
		"links", len(next.index.Links()), "durationMs", time.Since(start).Milliseconds())
	return nil
}

func (v *View) build(ctx context.Context) (*loaded, error) {
	ds, err := v.source.Load(ctx)
	if err != nil {
		return nil, err
	}

	report := ds.Report
	if report == nil {
		report = &dataset.Report{}
	}

	var next *loaded
	switch v.kind {
	case KindCategories:
		next, err = v.buildCategories(ds)
	case KindPublications:
		next, err = v.buildPublications(ds)
	default:
		err = fmt.Errorf("unknown view kind %q", v.kind)
	}
	if err != nil {
		return nil, err
	}

	next.report = report
	known := make(map[model.Link]bool, len(report.InvalidLinks))
	for _, l := range report.InvalidLinks {
		known[l] = true
	}
	for _, l := range next.index.InvalidLinks() {
		if !known[l] {
			report.InvalidLinks = append(report.InvalidLinks, l)
		}
	}

	var opts []selection.Option
	if v.opts.AsyncThreshold > 0 && len(next.index.Links()) > v.opts.AsyncThreshold {
		opts = append(opts, selection.WithWorker(selection.NewWorker(selection.IndexCompute(next.index))))
		logging.Debug("selections run on a worker", "view", v.name, "links", len(next.index.Links()))
	}
	next.controller = selection.NewController(next.index, v.renderer, opts...)
	return next, nil
}

func (v *View) buildCategories(ds *dataset.Dataset) (*loaded, error) {
	if len(ds.Categories) == 0 {
		return nil, &model.DatasetLoadError{Source: v.source.Name(), Err: errors.New("no categories")}
	}

	layout, err := hierarchy.Build(ds.Categories, v.opts.Layout)
	if err != nil {
		return nil, err
	}

	g := layout.Graph()
	return &loaded{
		graph:  g,
		index:  graph.NewIndex(g, graph.IndexOptions{Hierarchy: true}),
		layout: layout,
		lens: &lens.Lens{
			Name:  string(KindCategories),
			Color: lens.NewAncestorPalette(layout.Parents(), layout.Root(), v.opts.Palette),
			Size:  lens.FixedSize(lens.DefaultNodeSize),
		},
	}, nil
}

func (v *View) buildPublications(ds *dataset.Dataset) (*loaded, error) {
	if ds.Publications == nil {
		return nil, &model.DatasetLoadError{Source: v.source.Name(), Err: errors.New("no publications")}
	}

	g := graph.FilterByInDegree(ds.Publications, v.opts.MinCitations)
	if v.opts.YearFrom != 0 || v.opts.YearTo != 0 {
		from, to := v.opts.YearFrom, v.opts.YearTo
		if from == 0 {
			from = model.MinPlausibleYear
		}
		if to == 0 {
			to = model.MaxPlausibleYear
		}
		g = graph.FilterByYear(g, from, to)
	}

	idx := graph.NewIndex(g, graph.IndexOptions{})
	return &loaded{
		graph: g,
		index: idx,
		lens: &lens.Lens{
			Name:  string(KindPublications),
			Color: v.opts.Gradient,
			Size:  lens.DegreeSize{Min: v.opts.MinSize, Max: v.opts.MaxSize, Degrees: idx},
		},
	}, nil
}

// loadedState returns the current load, or why there is none
func (v *View) loadedState() (*loaded, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.current != nil {
		return v.current, nil
	}
	if v.lastErr != nil {
		return nil, v.lastErr
	}
	return nil, ErrNotLoaded
}

// Graph returns the current graph
func (v *View) Graph() (*model.Graph, error) {
	cur, err := v.loadedState()
	if err != nil {
		return nil, err
	}
	return cur.graph, nil
}

// Index returns the index of the current graph
func (v *View) Index() (*graph.Index, error) {
	cur, err := v.loadedState()
	if err != nil {
		return nil, err
	}
	return cur.index, nil
}

// Styled returns the current graph with every node's encoding
func (v *View) Styled() (*lens.StyledGraph, error) {
	cur, err := v.loadedState()
	if err != nil {
		return nil, err
	}
	return lens.Render(cur.graph, cur.lens, cur.controller.State().Highlight()), nil
}

// StyleUpdate returns the style changes since the previous call. The first
// call after a load returns every style.
func (v *View) StyleUpdate() (*lens.StyleDiff, error) {
	styled, err := v.Styled()
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	diff := lens.ComputeDiff(v.styles, styled)
	v.styles = lens.CreateSnapshot(styled)
	return diff, nil
}

// Select focuses a node by ID
func (v *View) Select(ctx context.Context, id string) (selection.State, error) {
	cur, err := v.loadedState()
	if err != nil {
		return selection.State{}, err
	}
	return cur.controller.SelectID(ctx, id)
}

// Clear removes the selection
func (v *View) Clear() (selection.State, error) {
	cur, err := v.loadedState()
	if err != nil {
		return selection.State{}, err
	}
	return cur.controller.Clear(), nil
}

// Snapshot returns the selection for presentation panels
func (v *View) Snapshot() (selection.Snapshot, error) {
	cur, err := v.loadedState()
	if err != nil {
		return selection.Snapshot{}, err
	}
	return cur.controller.Snapshot(), nil
}

// Layout returns the hierarchy layout of a categories view, nil for
// publications
func (v *View) Layout() (*hierarchy.Layout, error) {
	cur, err := v.loadedState()
	if err != nil {
		return nil, err
	}
	return cur.layout, nil
}

// Report returns the problems found by the latest successful load
func (v *View) Report() (*dataset.Report, error) {
	cur, err := v.loadedState()
	if err != nil {
		return nil, err
	}
	return cur.report, nil
}

// Search returns up to limit nodes whose ID, title or author contains query,
// ignoring case, in node order
func (v *View) Search(query string, limit int) ([]model.Node, error) {
	cur, err := v.loadedState()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	results := []model.Node{}
	if query == "" {
		return results, nil
	}
	if limit <= 0 {
		limit = 10
	}

	for _, n := range cur.graph.Nodes {
		if matches(n, query) {
			results = append(results, n)
			if len(results) == limit {
				break
			}
		}
	}
	return results, nil
}

func matches(n model.Node, query string) bool {
	for _, field := range []string{n.ID, n.Title, n.Author} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// RecordURL returns the external record page of a node
func (v *View) RecordURL(id string) string {
	if v.opts.RecordURL == "" {
		return ""
	}
	return strings.ReplaceAll(v.opts.RecordURL, "{id}", url.PathEscape(id))
}
