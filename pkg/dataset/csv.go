package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ritzau/citegraph/pkg/hierarchy"
	"github.com/ritzau/citegraph/pkg/model"
)

// header maps lower-cased column names to their positions
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	names, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty table")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	h := make(header, len(names))
	for i, name := range names {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h, nil
}

func (h header) get(record []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// ParseHierarchyCSV reads a category table with columns id, parent and an
// optional numeric value. Rows with an unparsable value keep a zero weight.
func ParseHierarchyCSV(r io.Reader) ([]hierarchy.Row, *Report, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := h["id"]; !ok {
		return nil, nil, errors.New("missing id column")
	}
	if _, ok := h["parent"]; !ok {
		return nil, nil, errors.New("missing parent column")
	}

	report := &Report{}
	var rows []hierarchy.Row
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading row %d: %w", line, err)
		}

		row := hierarchy.Row{
			ID:     h.get(record, "id"),
			Parent: h.get(record, "parent"),
		}
		if raw := h.get(record, "value"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				report.warn(&model.InvalidFieldError{Row: line, Field: "value", Value: raw})
			} else {
				row.Value = v
			}
		}
		rows = append(rows, row)
	}
	return rows, report, nil
}

// ParseCategoryPublicationsCSV reads the publication table of one category,
// with columns ID, Author, Title and Year.
func ParseCategoryPublicationsCSV(r io.Reader) ([]model.Node, *Report, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := h["id"]; !ok {
		return nil, nil, errors.New("missing ID column")
	}

	report := &Report{}
	var nodes []model.Node
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading row %d: %w", line, err)
		}

		node := model.Node{
			ID:     h.get(record, "id"),
			Author: h.get(record, "author"),
			Title:  h.get(record, "title"),
		}
		if node.ID == "" {
			report.warn(&model.InvalidFieldError{Row: line, Field: "ID", Value: ""})
			continue
		}
		if raw := h.get(record, "year"); raw != "" {
			if y, ok := ParseYear(raw); ok {
				node.Year = &y
			} else {
				report.warn(&model.InvalidFieldError{Row: line, Field: "Year", Value: raw})
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, report, nil
}

// CategoryFileName returns the file name of a category's publication table
func CategoryFileName(categoryID string) string {
	return strings.Join(strings.Fields(categoryID), " ") + "_processed.csv"
}
