package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/citegraph/pkg/config"
	"github.com/ritzau/citegraph/pkg/dataset"
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/model"
	"github.com/ritzau/citegraph/pkg/selection"
	"github.com/ritzau/citegraph/pkg/view"
)

// app holds state shared by the subcommands
type app struct {
	cfg       *config.Config
	logCloser io.Closer
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "citegraph",
		Short: "Explore the PhilPapers category tree and citation graph",
		Long: `citegraph loads a category hierarchy and a publication citation graph,
computes their layouts and visual encodings, and serves them to a browser
renderer with linked selection.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			logOpts, err := cfg.LogOptions()
			if err != nil {
				return err
			}
			// Logs go to stderr so command output can be piped
			logOpts.Writer = os.Stderr
			logOpts.Color = !color.NoColor
			a.logCloser = logging.Setup(logOpts)
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logCloser != nil {
				a.logCloser.Close()
			}
		},
	}

	// Persistent flags available to all commands. Names map to config keys,
	// e.g. --log-json sets log.json.
	f := rootCmd.PersistentFlags()
	f.String("categories", "", "Category hierarchy CSV (id, parent, value)")
	f.String("publications-nodes", "", "Publication table (JSON or YAML)")
	f.String("publications-links", "", "Citation table (JSON or YAML)")
	f.String("publications-dir", "", "Directory with per-category publication tables")
	f.String("database", "", "SQLite database holding both datasets")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("log-json", false, "Log as JSON")
	f.String("log-file", "", "Also log to a rotating file")
	f.Float64("layout-radius", 0, "Radius of the category layout")
	f.Float64("layout-separation", 0, "Gap between cousin subtrees, in sibling gaps")
	f.Float64("size-min", 0, "Smallest publication node size")
	f.Float64("size-max", 0, "Largest publication node size")
	f.Int("years-from", 0, "First year of the color gradient")
	f.Int("years-to", 0, "Last year of the color gradient")
	f.Int("filter-min-citations", 0, "Hide publications with fewer citations")
	f.Int("filter-from-year", 0, "Hide publications published before this year")
	f.Int("filter-to-year", 0, "Hide publications published after this year")
	f.Int("async-threshold", 0, "Link count above which selections run in the background")
	f.String("record-url", "", "Record page URL, {id} is replaced by the publication ID")

	rootCmd.AddCommand(
		newServeCmd(a),
		newLayoutCmd(a),
		newInspectCmd(a),
		newImportCmd(a),
	)
	return rootCmd
}

// buildViews creates a view for every configured dataset. newRenderer may
// be nil for views without a renderer.
func (a *app) buildViews(newRenderer func(name string) selection.Renderer) ([]*view.View, error) {
	var (
		cfg   = a.cfg
		opts  = cfg.ViewOptions()
		views []*view.View
	)
	renderer := func(name string) selection.Renderer {
		if newRenderer == nil {
			return nil
		}
		return newRenderer(name)
	}

	var categories, publications dataset.Source
	switch {
	case cfg.Database != "":
		db := &dataset.SQLiteSource{Path: cfg.Database}
		categories, publications = db, db
	default:
		if cfg.Categories != "" {
			categories = &dataset.HierarchyFileSource{Path: cfg.Categories}
		}
		if cfg.Publications.Nodes != "" {
			publications = &dataset.PublicationFileSource{
				NodesPath: cfg.Publications.Nodes,
				LinksPath: cfg.Publications.Links,
			}
		}
	}

	if categories != nil {
		name := string(view.KindCategories)
		views = append(views, view.New(name, view.KindCategories, categories, renderer(name), opts))
	}
	if publications != nil {
		name := string(view.KindPublications)
		views = append(views, view.New(name, view.KindPublications, publications, renderer(name), opts))
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("no dataset configured: set --categories, --publications-nodes/--publications-links or --database")
	}
	return views, nil
}

// loadFiles reads the file datasets concurrently into one dataset
func (a *app) loadFiles(ctx context.Context) (*dataset.Dataset, error) {
	cfg := a.cfg
	var categories, publications *dataset.Dataset

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Categories != "" {
		g.Go(func() error {
			var err error
			categories, err = (&dataset.HierarchyFileSource{Path: cfg.Categories}).Load(ctx)
			return err
		})
	}
	if cfg.Publications.Nodes != "" {
		g.Go(func() error {
			var err error
			publications, err = (&dataset.PublicationFileSource{
				NodesPath: cfg.Publications.Nodes,
				LinksPath: cfg.Publications.Links,
			}).Load(ctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := &dataset.Dataset{Publications: model.NewGraph(), Report: &dataset.Report{}}
	if categories != nil {
		ds.Categories = categories.Categories
		ds.Report.Merge(categories.Report)
	}
	if publications != nil {
		ds.Publications = publications.Publications
		ds.Report.Merge(publications.Report)
	}
	return ds, nil
}
