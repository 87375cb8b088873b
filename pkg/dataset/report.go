package dataset

import (
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/model"
)

// Report collects recoverable problems found while loading a dataset
type Report struct {
	Warnings     []error      `json:"-"`
	InvalidLinks []model.Link `json:"invalidLinks"`
}

func (r *Report) warn(err error) {
	r.Warnings = append(r.Warnings, err)
}

// Merge appends the findings of another report
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.InvalidLinks = append(r.InvalidLinks, other.InvalidLinks...)
}

// Empty reports whether nothing was recorded
func (r *Report) Empty() bool {
	return len(r.Warnings) == 0 && len(r.InvalidLinks) == 0
}

// Log writes a summary at warn level and every finding at debug level
func (r *Report) Log(source string) {
	if r.Empty() {
		return
	}
	logging.Warn("dataset loaded with problems", "source", source,
		"warnings", len(r.Warnings), "invalidLinks", len(r.InvalidLinks))
	for _, w := range r.Warnings {
		logging.Debug("dataset warning", "source", source, "error", w)
	}
	for _, l := range r.InvalidLinks {
		logging.Debug("dropped link", "source", source, "from", l.Source, "to", l.Target)
	}
}
