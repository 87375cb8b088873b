package model

import "fmt"

// HierarchyErrorKind classifies malformed hierarchy input
type HierarchyErrorKind string

const (
	HierarchyNoRoot        HierarchyErrorKind = "no-root"
	HierarchyMultipleRoots HierarchyErrorKind = "multiple-roots"
	HierarchyMissingParent HierarchyErrorKind = "missing-parent"
	HierarchyCycle         HierarchyErrorKind = "cycle"
	HierarchyDuplicateID   HierarchyErrorKind = "duplicate-id"
	HierarchyMissingID     HierarchyErrorKind = "missing-id"
)

// MalformedHierarchyError is returned when rows do not form exactly one rooted tree.
// It is fatal to hierarchy construction.
type MalformedHierarchyError struct {
	Kind   HierarchyErrorKind
	ID     string // offending row id, if any
	Detail string
}

func (e *MalformedHierarchyError) Error() string {
	msg := fmt.Sprintf("malformed hierarchy (%s)", e.Kind)
	if e.ID != "" {
		msg += fmt.Sprintf(": %q", e.ID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// DatasetLoadError wraps a network, I/O or parse failure while loading a dataset.
type DatasetLoadError struct {
	Source string
	Err    error
}

func (e *DatasetLoadError) Error() string {
	return fmt.Sprintf("loading dataset %s: %v", e.Source, e.Err)
}

func (e *DatasetLoadError) Unwrap() error {
	return e.Err
}

// InvalidFieldError reports a single unparsable field. It is recovered locally
// by substituting a null or neutral value and never aborts a load.
type InvalidFieldError struct {
	Row   int // 1-based data row
	Field string
	Value string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("row %d: invalid %s %q", e.Row, e.Field, e.Value)
}
