package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/taffo/internal/report"
)

// createTestStore opens a fresh database under t.TempDir().
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestReport returns a small report with every section populated.
func createTestReport(module string) *report.Report {
	return &report.Report{
		Module:          module,
		Source:          module + ".cue",
		AnnotationCount: 3,
		Filtered:        true,
		Roots: []report.Root{
			{Value: "@gain = global float", Ident: "@gain", Kind: report.KindGlobal, Type: "float*", Metadata: "scalar(range(-1, 1))"},
			{Value: "%r = call float @scale(float %v)", Ident: "%r", Kind: report.KindCall, Function: "main", Type: "float", Metadata: "scalar()", Target: "scale", Backtracking: true},
		},
		EnabledFunctions: []string{"scale"},
		StartingPoints:   []string{"main"},
		Diagnostics: []report.Diagnostic{
			{Kind: "not-float", Value: "@counts", Message: "does not allocate a kind of float"},
		},
	}
}
