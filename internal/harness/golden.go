package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/taffo/internal/report"
)

// RunWithGolden executes a scenario and compares its output against
// golden files in testdata/golden: {scenario.Name}.dump.golden holds the
// diagnostic dump, {scenario.Name}.report.golden the canonical report.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check assertions as well. Test
// failure (via goldie) occurs if either output doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the golden files
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	reportJSON, err := report.MarshalCanonical(result.Report)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name+".dump", []byte(result.Dump))
	g.Assert(t, name+".report", reportJSON)

	return nil
}
