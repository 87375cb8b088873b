package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ritzau/citegraph/pkg/dataset"
	"github.com/ritzau/citegraph/pkg/hierarchy"
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/output"
	"github.com/ritzau/citegraph/pkg/view"
)

func newLayoutCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Write the radial category layout as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Categories == "" && a.cfg.Database == "" {
				return errors.New("no category hierarchy configured: set --categories or --database")
			}

			var src dataset.Source = &dataset.HierarchyFileSource{Path: a.cfg.Categories}
			if a.cfg.Categories == "" {
				src = &dataset.SQLiteSource{Path: a.cfg.Database}
			}
			ds, err := src.Load(cmd.Context())
			if err != nil {
				return err
			}
			ds.Report.Log(src.Name())

			layout, err := hierarchy.Build(ds.Categories, a.cfg.ViewOptions().Layout)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(layout.Graph(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode layout: %w", err)
			}
			data = append(data, '\n')
			if outPath == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write layout: %w", err)
			}
			logging.Info("layout written", "path", outPath, "nodes", len(layout.Nodes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a consistency report for the configured datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := a.buildViews(nil)
			if err != nil {
				return err
			}

			clean := true
			var failed []error
			for _, v := range views {
				if err := v.Load(cmd.Context()); err != nil {
					failed = append(failed, fmt.Errorf("%s: %w", v.Name(), err))
					continue
				}
				idx, _ := v.Index()
				layout, _ := v.Layout()
				report, _ := v.Report()

				r := output.NewReport(v.Name(), sourceName(v), idx, layout, report)
				output.PrintReport(os.Stdout, r)
				fmt.Println()
				clean = clean && r.Clean()
			}

			if len(failed) > 0 {
				return errors.Join(failed...)
			}
			if strict && !clean {
				return errors.New("datasets have problems")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any invalid link or warning is found")
	return cmd
}

func sourceName(v *view.View) string {
	if paths := v.Paths(); len(paths) > 0 {
		return fmt.Sprint(paths)
	}
	return v.Name()
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Store the dataset files in the SQLite database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Database == "" {
				return errors.New("no database configured: set --database")
			}
			if a.cfg.Categories == "" && a.cfg.Publications.Nodes == "" {
				return errors.New("nothing to import: set --categories or --publications-nodes")
			}

			ds, err := a.loadFiles(cmd.Context())
			if err != nil {
				return err
			}
			ds.Report.Log("import")

			bar := progressbar.NewOptions(ds.Count(),
				progressbar.OptionSetDescription("Importing"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionClearOnFinish(),
			)
			err = dataset.WriteSQLite(cmd.Context(), a.cfg.Database, ds, func() {
				_ = bar.Add(1)
			})
			_ = bar.Finish()
			if err != nil {
				return err
			}

			logging.Info("import complete", "database", a.cfg.Database,
				"categories", len(ds.Categories),
				"publications", len(ds.Publications.Nodes),
				"citations", len(ds.Publications.Links))
			return nil
		},
	}
}
