package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/ritzau/citegraph/pkg/cycles"
	"github.com/ritzau/citegraph/pkg/dataset"
	"github.com/ritzau/citegraph/pkg/graph"
	"github.com/ritzau/citegraph/pkg/hierarchy"
	"github.com/ritzau/citegraph/pkg/model"
)

// Report summarizes one loaded dataset
type Report struct {
	View         string
	Source       string
	Nodes        int
	Links        int
	InvalidLinks []model.Link
	Warnings     []error
	MaxInDegree  int
	MaxOutDegree int
	Distribution map[int]int // link count -> nodes
	Cycles       []cycles.Cycle
	Depth        int // hierarchy height, 0 for publications
	Root         string
}

// NewReport collects the report of a loaded view. layout is nil for
// publication graphs.
func NewReport(view, source string, idx *graph.Index, layout *hierarchy.Layout, ds *dataset.Report) Report {
	r := Report{
		View:         view,
		Source:       source,
		Nodes:        len(idx.Nodes()),
		Links:        len(idx.Links()),
		InvalidLinks: idx.InvalidLinks(),
		MaxInDegree:  idx.MaxInDegree(),
		Distribution: idx.Distribution(),
	}
	for _, n := range idx.Nodes() {
		r.MaxOutDegree = max(r.MaxOutDegree, idx.OutDegree(n.ID))
	}
	if ds != nil {
		r.Warnings = ds.Warnings
	}
	if layout != nil {
		r.Root = layout.Root()
		r.Depth = layout.Height(r.Root)
	} else {
		r.Cycles = cycles.FindCycles(idx.Adjacency())
	}
	return r
}

// maxListed caps the invalid links and warnings printed in full
const maxListed = 20

// PrintReport prints a nicely formatted dataset report with colors
func PrintReport(w io.Writer, r Report) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintf(w, "Dataset Report: %s\n", r.View)
	bold.Fprintln(w, "==============================")
	fmt.Fprintf(w, "Source: %s\n", r.Source)
	fmt.Fprintf(w, "Nodes: %d\n", r.Nodes)
	fmt.Fprintf(w, "Links: %d\n", r.Links)
	if r.Root != "" {
		fmt.Fprintf(w, "Root: %s (depth %d)\n", r.Root, r.Depth)
	} else {
		fmt.Fprintf(w, "Most cited: %d citations\n", r.MaxInDegree)
		fmt.Fprintf(w, "Most citing: %d references\n", r.MaxOutDegree)
	}
	fmt.Fprintln(w)

	if len(r.Distribution) > 0 {
		cyan.Fprintln(w, "LINKS PER NODE:")
		counts := make([]int, 0, len(r.Distribution))
		for c := range r.Distribution {
			counts = append(counts, c)
		}
		sort.Ints(counts)
		for _, c := range counts {
			fmt.Fprintf(w, "  %4d links: %d node(s)\n", c, r.Distribution[c])
		}
		fmt.Fprintln(w)
	}

	if len(r.Cycles) > 0 {
		yellow.Fprintf(w, "CITATION CYCLES: %d\n", len(r.Cycles))
		for i, c := range r.Cycles {
			if i == maxListed {
				fmt.Fprintf(w, "  ... and %d more\n", len(r.Cycles)-maxListed)
				break
			}
			fmt.Fprintf(w, "  %v\n", c.IDs)
		}
		fmt.Fprintln(w)
	}

	if len(r.InvalidLinks) > 0 {
		red.Fprintf(w, "INVALID LINKS: %d\n", len(r.InvalidLinks))
		for i, l := range r.InvalidLinks {
			if i == maxListed {
				fmt.Fprintf(w, "  ... and %d more\n", len(r.InvalidLinks)-maxListed)
				break
			}
			yellow.Fprintf(w, "  %s -> %s\n", l.Source, l.Target)
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		red.Fprintf(w, "WARNINGS: %d\n", len(r.Warnings))
		for i, err := range r.Warnings {
			if i == maxListed {
				fmt.Fprintf(w, "  ... and %d more\n", len(r.Warnings)-maxListed)
				break
			}
			yellow.Fprintf(w, "  %v\n", err)
		}
		fmt.Fprintln(w)
	}

	if r.Clean() {
		green.Fprintln(w, "✓ Dataset is consistent")
	} else {
		yellow.Fprintf(w, "Summary: %d invalid link(s), %d warning(s)\n", len(r.InvalidLinks), len(r.Warnings))
	}
}

// Clean reports whether the dataset loaded without problems
func (r Report) Clean() bool {
	return len(r.InvalidLinks) == 0 && len(r.Warnings) == 0
}
