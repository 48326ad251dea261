package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/taffo/internal/report"
)

// WriteScan stores r under its content-addressed id and returns that id.
// A report already present is left untouched and inserted is false, so
// rescanning an unchanged module does not grow the history.
func (s *Store) WriteScan(ctx context.Context, runID string, r *report.Report) (id string, inserted bool, err error) {
	id, err = report.ScanID(r)
	if err != nil {
		return "", false, fmt.Errorf("write scan: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("write scan: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO scans
		(id, run_id, module, source, annotation_count, filtered)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		runID,
		r.Module,
		r.Source,
		r.AnnotationCount,
		r.Filtered,
	)
	if err != nil {
		return "", false, fmt.Errorf("write scan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("write scan: rows affected: %w", err)
	}
	if n == 0 {
		return id, false, nil
	}

	if err := writeRoots(ctx, tx, id, r.Roots); err != nil {
		return "", false, err
	}
	if err := writeNames(ctx, tx, "enabled_functions", id, r.EnabledFunctions); err != nil {
		return "", false, err
	}
	if err := writeNames(ctx, tx, "starting_points", id, r.StartingPoints); err != nil {
		return "", false, err
	}
	if err := writeDiagnostics(ctx, tx, id, r.Diagnostics); err != nil {
		return "", false, err
	}

	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("write scan: commit: %w", err)
	}
	return id, true, nil
}

func writeRoots(ctx context.Context, tx *sql.Tx, scanID string, roots []report.Root) error {
	for i, root := range roots {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO roots
			(scan_id, seq, value, ident, kind, function, type, metadata, target, backtracking, root_distance)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			scanID,
			i,
			root.Value,
			root.Ident,
			string(root.Kind),
			root.Function,
			root.Type,
			root.Metadata,
			root.Target,
			root.Backtracking,
			root.RootDistance,
		)
		if err != nil {
			return fmt.Errorf("write root %d: %w", i, err)
		}
	}
	return nil
}

// writeNames fills one of the function-name tables. table is never user
// input.
func writeNames(ctx context.Context, tx *sql.Tx, table, scanID string, names []string) error {
	query := fmt.Sprintf("INSERT INTO %s (scan_id, seq, name) VALUES (?, ?, ?)", table)
	for i, name := range names {
		if _, err := tx.ExecContext(ctx, query, scanID, i, name); err != nil {
			return fmt.Errorf("write %s %d: %w", table, i, err)
		}
	}
	return nil
}

func writeDiagnostics(ctx context.Context, tx *sql.Tx, scanID string, diags []report.Diagnostic) error {
	for i, d := range diags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics
			(scan_id, seq, kind, location, annotation, value, message)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			scanID,
			i,
			d.Kind,
			d.Location,
			d.Annotation,
			d.Value,
			d.Message,
		)
		if err != nil {
			return fmt.Errorf("write diagnostic %d: %w", i, err)
		}
	}
	return nil
}
