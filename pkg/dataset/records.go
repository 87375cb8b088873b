package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ritzau/citegraph/pkg/model"
)

// publicationRecord is one entry of a publication node table. The year may be
// stored as citation_year or year, as a number or a free-form string.
type publicationRecord struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	Author       string `json:"author" yaml:"author"`
	CitationYear any    `json:"citation_year" yaml:"citation_year"`
	Year         any    `json:"year" yaml:"year"`
	Impact       any    `json:"impact" yaml:"impact"`
}

type linkRecord struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// ParsePublicationsJSON reads a JSON array of publication records
func ParsePublicationsJSON(r io.Reader) ([]model.Node, *Report, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var records []publicationRecord
	if err := dec.Decode(&records); err != nil {
		return nil, nil, fmt.Errorf("decoding publications: %w", err)
	}
	nodes, report := toNodes(records)
	return nodes, report, nil
}

// ParseLinksJSON reads a JSON array of {source, target} records
func ParseLinksJSON(r io.Reader) ([]model.Link, error) {
	var records []linkRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding links: %w", err)
	}
	return toLinks(records), nil
}

// ParsePublicationsYAML reads a YAML sequence of publication records
func ParsePublicationsYAML(r io.Reader) ([]model.Node, *Report, error) {
	var records []publicationRecord
	if err := decodeYAML(r, &records); err != nil {
		return nil, nil, fmt.Errorf("decoding publications: %w", err)
	}
	nodes, report := toNodes(records)
	return nodes, report, nil
}

// ParseLinksYAML reads a YAML sequence of {source, target} records
func ParseLinksYAML(r io.Reader) ([]model.Link, error) {
	var records []linkRecord
	if err := decodeYAML(r, &records); err != nil {
		return nil, fmt.Errorf("decoding links: %w", err)
	}
	return toLinks(records), nil
}

func decodeYAML(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	// An empty document is an empty table
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return yaml.Unmarshal(data, v)
}

func toNodes(records []publicationRecord) ([]model.Node, *Report) {
	report := &Report{}
	nodes := make([]model.Node, 0, len(records))
	for i, rec := range records {
		row := i + 1
		if rec.ID == "" {
			report.warn(&model.InvalidFieldError{Row: row, Field: "id"})
			continue
		}

		node := model.Node{ID: rec.ID, Title: rec.Title, Author: rec.Author}

		raw := rec.CitationYear
		if raw == nil {
			raw = rec.Year
		}
		if raw != nil {
			node.Year = YearPtr(raw)
			if node.Year == nil {
				report.warn(&model.InvalidFieldError{Row: row, Field: "year", Value: fmt.Sprint(raw)})
			}
		}

		if rec.Impact != nil {
			impact, ok := parseNumber(rec.Impact)
			if ok {
				node.Impact = impact
			} else {
				report.warn(&model.InvalidFieldError{Row: row, Field: "impact", Value: fmt.Sprint(rec.Impact)})
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, report
}

func toLinks(records []linkRecord) []model.Link {
	links := make([]model.Link, 0, len(records))
	for _, rec := range records {
		links = append(links, model.Link{Source: rec.Source, Target: rec.Target})
	}
	return links
}

func parseNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
