package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taffo/internal/report"
)

func ptr[T any](v T) *T { return &v }

func sampleReport() *report.Report {
	return &report.Report{
		Module:          "kernel",
		AnnotationCount: 2,
		Filtered:        true,
		Roots: []report.Root{
			{Ident: "@gain", Kind: report.KindGlobal, Type: "float*", Metadata: "scalar(range(-1, 1))"},
			{Ident: "%x", Kind: report.KindAlloca, Function: "main", Type: "double*", Metadata: "scalar()", Target: "x", Backtracking: true},
		},
		EnabledFunctions: []string{"scale"},
		StartingPoints:   []string{"main"},
		Diagnostics: []report.Diagnostic{
			{Kind: "not-float", Value: "@counts", Message: "does not allocate a kind of float"},
		},
	}
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleReport(), []Assertion{
		{Type: AssertRoots, Values: []string{"@gain", "main:%x"}},
		{Type: AssertEnabled, Values: []string{"scale"}},
		{Type: AssertStartingPoints, Values: []string{"main"}},
		{Type: AssertRootContains, Root: "main:%x", Target: ptr("x"), Metadata: "scalar()", Kind: "alloca", Backtracking: ptr(true)},
		{Type: AssertRootContains, Root: "@gain", Target: ptr(""), Backtracking: ptr(false)},
		{Type: AssertDiagnosticCount, Count: ptr(1)},
		{Type: AssertDiagnosticContains, Kind: "not-float", Message: "kind of float"},
		{Type: AssertAnnotationCount, Count: ptr(2)},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		contains  []string
	}{
		{
			name:      "roots order",
			assertion: Assertion{Type: AssertRoots, Values: []string{"main:%x", "@gain"}},
			contains:  []string{"Assertion failed: roots", "Expected: [main:%x @gain]", "Actual: [@gain main:%x]"},
		},
		{
			name:      "empty list expects none",
			assertion: Assertion{Type: AssertEnabled},
			contains:  []string{"Expected: []", "Actual: [scale]"},
		},
		{
			name:      "missing root",
			assertion: Assertion{Type: AssertRootContains, Root: "main:%y"},
			contains:  []string{"Expected: root main:%y", "not found in report"},
		},
		{
			name:      "target mismatch",
			assertion: Assertion{Type: AssertRootContains, Root: "main:%x", Target: ptr("y")},
			contains:  []string{`with target "y"`, `target "x"`},
		},
		{
			name:      "kind mismatch",
			assertion: Assertion{Type: AssertRootContains, Root: "@gain", Kind: "call"},
			contains:  []string{`with kind "call"`, `kind "global"`},
		},
		{
			name:      "backtracking mismatch",
			assertion: Assertion{Type: AssertRootContains, Root: "@gain", Backtracking: ptr(true)},
			contains:  []string{`with backtracking "true"`},
		},
		{
			name:      "diagnostic count",
			assertion: Assertion{Type: AssertDiagnosticCount, Count: ptr(0)},
			contains:  []string{"Expected: 0 diagnostics", "Actual: 1 diagnostics"},
		},
		{
			name:      "diagnostic kind",
			assertion: Assertion{Type: AssertDiagnosticContains, Kind: "syntax", Message: "range"},
			contains:  []string{`diagnostic of kind syntax containing "range"`, "not-float: does not allocate"},
		},
		{
			name:      "unknown type",
			assertion: Assertion{Type: "bogus"},
			contains:  []string{`unknown assertion type "bogus"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleReport(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			for _, s := range tt.contains {
				assert.Contains(t, errs[0], s)
			}
		})
	}
}

func TestAssertionError_ListsRoots(t *testing.T) {
	err := &AssertionError{
		Type:     AssertRoots,
		Expected: "[@a]",
		Actual:   "[@b]",
		Roots:    []string{"@b", "f:%1"},
	}
	assert.Equal(t,
		"Assertion failed: roots\n  Expected: [@a]\n  Actual: [@b]\n\nRoots:\n  [1] @b\n  [2] f:%1\n",
		err.Error())
}

func TestRootNames(t *testing.T) {
	assert.Equal(t, []string{"@gain", "main:%x"}, RootNames(sampleReport()))
	assert.Empty(t, RootNames(&report.Report{}))
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
