package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/ritzau/citegraph/pkg/hierarchy"
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/model"
)

const schema = `
	CREATE TABLE IF NOT EXISTS categories (
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		parent TEXT NOT NULL DEFAULT '',
		value REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS publications (
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		year INTEGER,
		impact REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS citations (
		position INTEGER NOT NULL,
		source TEXT NOT NULL,
		target TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_citations_target ON citations(target);
`

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

// SQLiteSource reads categories, publications and citations from a database
// written by WriteSQLite
type SQLiteSource struct {
	Path string
}

func (s *SQLiteSource) Name() string {
	return "sqlite:" + s.Path
}

func (s *SQLiteSource) Paths() []string {
	return []string{s.Path}
}

func (s *SQLiteSource) Load(ctx context.Context) (*Dataset, error) {
	// sql.Open would create a missing file
	if _, err := os.Stat(s.Path); err != nil {
		return nil, &model.DatasetLoadError{Source: s.Name(), Err: err}
	}

	db, err := openDB(s.Path)
	if err != nil {
		return nil, &model.DatasetLoadError{Source: s.Name(), Err: err}
	}
	defer db.Close()

	ds, err := readDataset(ctx, db)
	if err != nil {
		return nil, &model.DatasetLoadError{Source: s.Name(), Err: err}
	}

	logging.Debug("read sqlite dataset", "path", s.Path,
		"categories", len(ds.Categories), "publications", len(ds.Publications.Nodes),
		"citations", len(ds.Publications.Links))
	return ds, nil
}

func readDataset(ctx context.Context, db *sql.DB) (*Dataset, error) {
	ds := &Dataset{Publications: model.NewGraph(), Report: &Report{}}

	rows, err := db.QueryContext(ctx, `SELECT id, parent, value FROM categories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	for rows.Next() {
		var row hierarchy.Row
		if err := rows.Scan(&row.ID, &row.Parent, &row.Value); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		ds.Categories = append(ds.Categories, row)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}

	rows, err = db.QueryContext(ctx, `SELECT id, title, author, year, impact FROM publications ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying publications: %w", err)
	}
	for i := 1; rows.Next(); i++ {
		var (
			node model.Node
			year sql.NullInt64
		)
		if err := rows.Scan(&node.ID, &node.Title, &node.Author, &year, &node.Impact); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning publication: %w", err)
		}
		if year.Valid {
			node.Year = YearPtr(year.Int64)
			if node.Year == nil {
				ds.Report.warn(&model.InvalidFieldError{Row: i, Field: "year", Value: fmt.Sprint(year.Int64)})
			}
		}
		ds.Publications.Nodes = append(ds.Publications.Nodes, node)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("reading publications: %w", err)
	}

	rows, err = db.QueryContext(ctx, `SELECT source, target FROM citations ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying citations: %w", err)
	}
	for rows.Next() {
		var link model.Link
		if err := rows.Scan(&link.Source, &link.Target); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning citation: %w", err)
		}
		ds.Publications.Links = append(ds.Publications.Links, link)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("reading citations: %w", err)
	}

	ds.Report.InvalidLinks = ds.Publications.InvalidLinks()
	return ds, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

// WriteSQLite replaces the contents of the database at path with ds.
// progress, if set, is called once per stored record.
func WriteSQLite(ctx context.Context, path string, ds *Dataset, progress func()) error {
	db, err := openDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"categories", "publications", "citations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	tick := func() {
		if progress != nil {
			progress()
		}
	}

	catStmt, err := tx.PrepareContext(ctx, `INSERT INTO categories (position, id, parent, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing category insert: %w", err)
	}
	defer catStmt.Close()
	for i, row := range ds.Categories {
		if _, err := catStmt.ExecContext(ctx, i, row.ID, row.Parent, row.Value); err != nil {
			return fmt.Errorf("inserting category %s: %w", row.ID, err)
		}
		tick()
	}

	if ds.Publications != nil {
		pubStmt, err := tx.PrepareContext(ctx, `INSERT INTO publications (position, id, title, author, year, impact) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing publication insert: %w", err)
		}
		defer pubStmt.Close()
		for i, n := range ds.Publications.Nodes {
			var year sql.NullInt64
			if n.Year != nil {
				year = sql.NullInt64{Int64: int64(*n.Year), Valid: true}
			}
			if _, err := pubStmt.ExecContext(ctx, i, n.ID, n.Title, n.Author, year, n.Impact); err != nil {
				return fmt.Errorf("inserting publication %s: %w", n.ID, err)
			}
			tick()
		}

		citeStmt, err := tx.PrepareContext(ctx, `INSERT INTO citations (position, source, target) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing citation insert: %w", err)
		}
		defer citeStmt.Close()
		for i, l := range ds.Publications.Links {
			if _, err := citeStmt.ExecContext(ctx, i, l.Source, l.Target); err != nil {
				return fmt.Errorf("inserting citation %s -> %s: %w", l.Source, l.Target, err)
			}
			tick()
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Count returns the number of records WriteSQLite stores for ds
func (ds *Dataset) Count() int {
	n := len(ds.Categories)
	if ds.Publications != nil {
		n += len(ds.Publications.Nodes) + len(ds.Publications.Links)
	}
	return n
}
