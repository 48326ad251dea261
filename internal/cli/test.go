package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/taffo/internal/harness"
	"github.com/roach88/taffo/internal/report"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	ScanID string   `json:"scan_id,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance harness",
		Long: `Run conformance scenarios using the harness framework.

Each scenario compiles a module description, scans it and checks the
report against its assertions. When golden/<scenario>.golden exists next
to the scenario file, the canonical report must match it too.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  taffo test ./scenarios
  taffo test ./scenarios --filter "kernel-*"
  taffo test ./scenarios --update
  taffo test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

// scenarioRunner runs scenario files and prints per-scenario lines in
// text mode.
type scenarioRunner struct {
	out    *OutputFormatter
	text   bool
	update bool
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(scenariosDir); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, "scenarios directory not found: "+scenariosDir)
	}
	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	r := &scenarioRunner{out: formatter, text: opts.Format != "json", update: opts.Update}
	if len(files) == 0 && r.text {
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	result := TestResult{Scenarios: []ScenarioResult{}, Total: len(files)}
	for _, file := range files {
		sr := r.run(file)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	if r.text {
		return outputTestText(formatter, result)
	}
	return outputTestJSON(formatter, result)
}

// findScenarioFiles walks dir for .yaml and .yml files whose base name
// (without extension) matches the glob filter.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext)); !ok {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

func (r *scenarioRunner) pass(name, scanID, note string) ScenarioResult {
	if r.text {
		fmt.Fprintf(r.out.Writer, "✓ %s%s\n", name, note)
	}
	return ScenarioResult{Name: name, Pass: true, ScanID: scanID}
}

func (r *scenarioRunner) fail(name, scanID string, errs ...string) ScenarioResult {
	if r.text {
		fmt.Fprintf(r.out.Writer, "✗ %s\n", name)
		for _, e := range errs {
			fmt.Fprintf(r.out.Writer, "  %s\n", e)
		}
	}
	return ScenarioResult{Name: name, ScanID: scanID, Errors: errs}
}

// run executes one scenario file and compares its canonical report with
// the golden file, or rewrites the golden file in update mode.
func (r *scenarioRunner) run(file string) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return r.fail(filepath.Base(file), "", fmt.Sprintf("failed to load scenario: %v", err))
	}
	r.out.VerboseLog("Running scenario %s", scenario.Name)

	result, err := harness.Run(scenario)
	if err != nil {
		return r.fail(scenario.Name, "", fmt.Sprintf("execution failed: %v", err))
	}
	current, err := report.MarshalCanonical(result.Report)
	if err != nil {
		return r.fail(scenario.Name, result.ScanID, fmt.Sprintf("failed to marshal report: %v", err))
	}

	golden := goldenFilePath(file)
	if r.update {
		if err := updateGoldenFile(golden, current); err != nil {
			return r.fail(scenario.Name, result.ScanID, fmt.Sprintf("failed to update golden file: %v", err))
		}
		return r.pass(scenario.Name, result.ScanID, " (golden updated)")
	}

	errs := append([]string(nil), result.Errors...)
	if msg := compareGolden(golden, current); msg != "" {
		errs = append(errs, msg)
	}
	if len(errs) > 0 {
		return r.fail(scenario.Name, result.ScanID, errs...)
	}
	return r.pass(scenario.Name, result.ScanID, "")
}

// compareGolden returns a failure message when the golden file exists and
// differs from current. A missing golden file is not a failure.
func compareGolden(path string, current []byte) string {
	want, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ""
	case err != nil:
		return fmt.Sprintf("failed to read golden file: %v", err)
	case !bytes.Equal(want, current):
		return "report does not match golden file (run with --update to regenerate)"
	}
	return ""
}

// goldenFilePath maps dir/name.yaml to dir/golden/name.golden.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func updateGoldenFile(goldenPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func failedError(n int) error {
	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", n))
}

func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	if err := formatter.Respond(resp); err != nil {
		return err
	}
	if result.Failed > 0 {
		return failedError(result.Failed)
	}
	return nil
}

func outputTestText(formatter *OutputFormatter, result TestResult) error {
	fmt.Fprintf(formatter.Writer, "\nTest Summary: %d passed, %d failed, %d total\n",
		result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return failedError(result.Failed)
	}
	fmt.Fprintln(formatter.Writer, "✓ All scenarios passed")
	return nil
}
