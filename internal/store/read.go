package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/taffo/internal/report"
)

// ErrNotFound is returned when no scan has the requested id.
var ErrNotFound = errors.New("scan not found")

// Scan summarises one stored scan.
type Scan struct {
	Seq             int64
	ID              string
	RunID           string
	Module          string
	Source          string
	AnnotationCount int
	Filtered        bool
	Roots           int
	Diagnostics     int
}

// ListScans returns every stored scan, oldest first.
// Results are ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) when the history is empty.
func (s *Store) ListScans(ctx context.Context) ([]Scan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.seq, s.id, s.run_id, s.module, s.source, s.annotation_count, s.filtered,
			(SELECT COUNT(*) FROM roots r WHERE r.scan_id = s.id),
			(SELECT COUNT(*) FROM diagnostics d WHERE d.scan_id = s.id)
		FROM scans s
		ORDER BY s.seq ASC, s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	scans := []Scan{}
	for rows.Next() {
		var sc Scan
		if err := rows.Scan(&sc.Seq, &sc.ID, &sc.RunID, &sc.Module, &sc.Source,
			&sc.AnnotationCount, &sc.Filtered, &sc.Roots, &sc.Diagnostics); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		scans = append(scans, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}
	return scans, nil
}

// ReadScan rebuilds the stored report with the given id. The rebuilt
// report must hash back to id; a mismatch means the database was edited.
func (s *Store) ReadScan(ctx context.Context, id string) (Scan, *report.Report, error) {
	var sc Scan
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, id, run_id, module, source, annotation_count, filtered
		FROM scans
		WHERE id = ?
	`, id).Scan(&sc.Seq, &sc.ID, &sc.RunID, &sc.Module, &sc.Source, &sc.AnnotationCount, &sc.Filtered)
	if errors.Is(err, sql.ErrNoRows) {
		return Scan{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Scan{}, nil, fmt.Errorf("read scan: %w", err)
	}

	r := &report.Report{
		Module:          sc.Module,
		Source:          sc.Source,
		AnnotationCount: sc.AnnotationCount,
		Filtered:        sc.Filtered,
	}
	if r.Roots, err = s.readRoots(ctx, id); err != nil {
		return Scan{}, nil, err
	}
	if r.EnabledFunctions, err = s.readNames(ctx, "enabled_functions", id); err != nil {
		return Scan{}, nil, err
	}
	if r.StartingPoints, err = s.readNames(ctx, "starting_points", id); err != nil {
		return Scan{}, nil, err
	}
	if r.Diagnostics, err = s.readDiagnostics(ctx, id); err != nil {
		return Scan{}, nil, err
	}
	sc.Roots = len(r.Roots)
	sc.Diagnostics = len(r.Diagnostics)

	got, err := report.ScanID(r)
	if err != nil {
		return Scan{}, nil, fmt.Errorf("read scan: %w", err)
	}
	if got != id {
		return Scan{}, nil, fmt.Errorf("read scan %s: content hashes to %s", id, got)
	}
	return sc, r, nil
}

func (s *Store) readRoots(ctx context.Context, scanID string) ([]report.Root, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value, ident, kind, function, type, metadata, target, backtracking, root_distance
		FROM roots
		WHERE scan_id = ?
		ORDER BY seq ASC
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("query roots: %w", err)
	}
	defer rows.Close()

	roots := []report.Root{}
	for rows.Next() {
		var r report.Root
		var kind string
		if err := rows.Scan(&r.Value, &r.Ident, &kind, &r.Function, &r.Type, &r.Metadata,
			&r.Target, &r.Backtracking, &r.RootDistance); err != nil {
			return nil, fmt.Errorf("scan root: %w", err)
		}
		r.Kind = report.Kind(kind)
		roots = append(roots, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roots: %w", err)
	}
	return roots, nil
}

func (s *Store) readNames(ctx context.Context, table, scanID string) ([]string, error) {
	query := fmt.Sprintf("SELECT name FROM %s WHERE scan_id = ? ORDER BY seq ASC", table)
	rows, err := s.db.QueryContext(ctx, query, scanID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return names, nil
}

func (s *Store) readDiagnostics(ctx context.Context, scanID string) ([]report.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, location, annotation, value, message
		FROM diagnostics
		WHERE scan_id = ?
		ORDER BY seq ASC
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	diags := []report.Diagnostic{}
	for rows.Next() {
		var d report.Diagnostic
		if err := rows.Scan(&d.Kind, &d.Location, &d.Annotation, &d.Value, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return diags, nil
}
