// Package dataset loads category hierarchies and citation graphs from files
// and SQLite databases.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ritzau/citegraph/pkg/hierarchy"
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/model"
)

// Dataset is the result of one load. A source fills the parts it provides.
type Dataset struct {
	Categories   []hierarchy.Row
	Publications *model.Graph
	Report       *Report
}

// Source represents a data source for a view.
// Failures are returned as *model.DatasetLoadError.
type Source interface {
	// Name returns a human readable description of the source
	Name() string

	// Load reads the dataset. It should respect the context for cancellation.
	Load(ctx context.Context) (*Dataset, error)
}

// Paths lists the files a source reads, for sources backed by files
type Paths interface {
	Paths() []string
}

// HierarchyFileSource reads a category table from a CSV file
type HierarchyFileSource struct {
	Path string
}

func (s *HierarchyFileSource) Name() string {
	return s.Path
}

func (s *HierarchyFileSource) Paths() []string {
	return []string{s.Path}
}

func (s *HierarchyFileSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, &model.DatasetLoadError{Source: s.Path, Err: err}
	}
	defer f.Close()

	rows, report, err := ParseHierarchyCSV(f)
	if err != nil {
		return nil, &model.DatasetLoadError{Source: s.Path, Err: err}
	}

	logging.Debug("read hierarchy table", "path", s.Path, "rows", len(rows))
	return &Dataset{Categories: rows, Report: report}, nil
}

// PublicationFileSource reads a publication node table and a citation link
// table. The format of each file follows its extension (.json, .yaml, .yml).
type PublicationFileSource struct {
	NodesPath string
	LinksPath string
}

func (s *PublicationFileSource) Name() string {
	return s.NodesPath + " + " + s.LinksPath
}

func (s *PublicationFileSource) Paths() []string {
	return []string{s.NodesPath, s.LinksPath}
}

// Load reads both tables concurrently
func (s *PublicationFileSource) Load(ctx context.Context) (*Dataset, error) {
	var (
		nodes  []model.Node
		links  []model.Link
		report *Report
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nodes, err = readFile(ctx, s.NodesPath, func(path string, r io.Reader) ([]model.Node, error) {
			parsed, rep, err := parsePublications(path, r)
			report = rep
			return parsed, err
		})
		return err
	})
	g.Go(func() error {
		var err error
		links, err = readFile(ctx, s.LinksPath, parseLinks)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph := &model.Graph{Nodes: nodes, Links: links}
	report.InvalidLinks = graph.InvalidLinks()

	logging.Debug("read publication tables", "nodes", len(nodes), "links", len(links))
	return &Dataset{Publications: graph, Report: report}, nil
}

// readFile opens path and parses it, wrapping failures in DatasetLoadError
func readFile[T any](ctx context.Context, path string, parse func(string, io.Reader) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	f, err := os.Open(path)
	if err != nil {
		return zero, &model.DatasetLoadError{Source: path, Err: err}
	}
	defer f.Close()

	v, err := parse(path, f)
	if err != nil {
		return zero, &model.DatasetLoadError{Source: path, Err: err}
	}
	return v, nil
}

func parsePublications(path string, r io.Reader) ([]model.Node, *Report, error) {
	switch formatOf(path) {
	case "json":
		return ParsePublicationsJSON(r)
	case "yaml":
		return ParsePublicationsYAML(r)
	default:
		return nil, nil, fmt.Errorf("unsupported publication table format %q", filepath.Ext(path))
	}
}

func parseLinks(path string, r io.Reader) ([]model.Link, error) {
	switch formatOf(path) {
	case "json":
		return ParseLinksJSON(r)
	case "yaml":
		return ParseLinksYAML(r)
	default:
		return nil, fmt.Errorf("unsupported link table format %q", filepath.Ext(path))
	}
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// CategoryTables reads per-category publication tables from a directory
type CategoryTables struct {
	Dir string
}

// ErrNoCategoryTable is returned when a category has no publication table
var ErrNoCategoryTable = errors.New("no publication table for category")

// Load reads the publication table of one category
func (c *CategoryTables) Load(ctx context.Context, categoryID string) ([]model.Node, *Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	path := filepath.Join(c.Dir, CategoryFileName(categoryID))
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoCategoryTable, categoryID)
	}
	if err != nil {
		return nil, nil, &model.DatasetLoadError{Source: path, Err: err}
	}
	defer f.Close()

	nodes, report, err := ParseCategoryPublicationsCSV(f)
	if err != nil {
		return nil, nil, &model.DatasetLoadError{Source: path, Err: err}
	}
	return nodes, report, nil
}
