package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/taffo/internal/report"
)

// AssertionError is returned when an assertion fails.
// It includes the discovered roots to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Roots    []string // Root names of the report
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nRoots:\n")
	for i, r := range e.Roots {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, r)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against rep and returns the
// failure messages.
func EvaluateAssertions(rep *report.Report, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(rep, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(rep *report.Report, a Assertion) error {
	switch a.Type {
	case AssertRoots:
		return assertList(rep, a.Type, a.Values, RootNames(rep))
	case AssertEnabled:
		return assertList(rep, a.Type, a.Values, rep.EnabledFunctions)
	case AssertStartingPoints:
		return assertList(rep, a.Type, a.Values, rep.StartingPoints)
	case AssertRootContains:
		return assertRootContains(rep, a)
	case AssertDiagnosticCount:
		return assertCount(rep, a.Type, "diagnostics", *a.Count, len(rep.Diagnostics))
	case AssertAnnotationCount:
		return assertCount(rep, a.Type, "annotations", *a.Count, rep.AnnotationCount)
	case AssertDiagnosticContains:
		return assertDiagnosticContains(rep, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertList checks an exact, ordered list.
func assertList(rep *report.Report, typ string, want, got []string) error {
	if want == nil {
		want = []string{}
	}
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Roots:    RootNames(rep),
	}
}

func assertCount(rep *report.Report, typ, what string, want, got int) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%d %s", want, what),
		Actual:   fmt.Sprintf("%d %s", got, what),
		Roots:    RootNames(rep),
	}
}

func assertRootContains(rep *report.Report, a Assertion) error {
	i := slices.IndexFunc(rep.Roots, func(r report.Root) bool { return RootName(r) == a.Root })
	if i < 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("root %s", a.Root),
			Actual:   "not found in report",
			Roots:    RootNames(rep),
		}
	}
	r := rep.Roots[i]

	mismatch := func(field, want, got string) error {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("root %s with %s %q", a.Root, field, want),
			Actual:   fmt.Sprintf("%s %q", field, got),
			Roots:    RootNames(rep),
		}
	}
	if a.Target != nil && *a.Target != r.Target {
		return mismatch("target", *a.Target, r.Target)
	}
	if a.Metadata != "" && a.Metadata != r.Metadata {
		return mismatch("metadata", a.Metadata, r.Metadata)
	}
	if a.Kind != "" && a.Kind != string(r.Kind) {
		return mismatch("kind", a.Kind, string(r.Kind))
	}
	if a.Backtracking != nil && *a.Backtracking != r.Backtracking {
		return mismatch("backtracking", fmt.Sprint(*a.Backtracking), fmt.Sprint(r.Backtracking))
	}
	return nil
}

func assertDiagnosticContains(rep *report.Report, a Assertion) error {
	for _, d := range rep.Diagnostics {
		if d.Kind == a.Kind && strings.Contains(d.Message, a.Message) {
			return nil
		}
	}

	var kinds []string
	for _, d := range rep.Diagnostics {
		kinds = append(kinds, d.Kind+": "+d.Message)
	}
	expected := fmt.Sprintf("diagnostic of kind %s", a.Kind)
	if a.Message != "" {
		expected += fmt.Sprintf(" containing %q", a.Message)
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: expected,
		Actual:   fmt.Sprintf("%v", kinds),
		Roots:    RootNames(rep),
	}
}
