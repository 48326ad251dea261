package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultRunID is the run id stored with scenario scans unless the
// scenario names one.
const DefaultRunID = "test-run-default"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Module is the path of the CUE module description.
	// Relative paths are resolved against the scenario file location.
	Module string `yaml:"module,omitempty"`

	// Source is an inline CUE module description, used instead of Module.
	Source string `yaml:"source,omitempty"`

	// Filter drops non floating-point roots after the scan.
	// Defaults to true.
	Filter *bool `yaml:"filter,omitempty"`

	// RunID is recorded with the stored scan.
	RunID string `yaml:"run_id,omitempty"`

	// Assertions validate the scan report.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates part of the scan report.
type Assertion struct {
	// Type specifies the assertion type (see the Assert constants).
	Type string `yaml:"type"`

	// Values is the expected list (used by roots, enabled, starting_points).
	Values []string `yaml:"values,omitempty"`

	// Root names the root checked by root_contains.
	Root string `yaml:"root,omitempty"`

	// Target is the expected target of the root. An empty string expects
	// no target.
	Target *string `yaml:"target,omitempty"`

	// Metadata is the expected metadata text of the root.
	Metadata string `yaml:"metadata,omitempty"`

	// Backtracking is the expected backtracking flag of the root.
	Backtracking *bool `yaml:"backtracking,omitempty"`

	// Kind is the root kind (root_contains) or the diagnostic kind
	// (diagnostic_contains).
	Kind string `yaml:"kind,omitempty"`

	// Message is a substring of the diagnostic message.
	Message string `yaml:"message,omitempty"`

	// Count is the expected number (diagnostic_count, annotation_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRoots              = "roots"
	AssertRootContains       = "root_contains"
	AssertEnabled            = "enabled"
	AssertStartingPoints     = "starting_points"
	AssertDiagnosticCount    = "diagnostic_count"
	AssertDiagnosticContains = "diagnostic_contains"
	AssertAnnotationCount    = "annotation_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the module path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario parses scenario YAML. basePath resolves a relative module
// path; it may be empty.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Module != "" && !filepath.IsAbs(scenario.Module) && basePath != "" {
		scenario.Module = filepath.Join(basePath, scenario.Module)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// filter reports whether the scan result is filtered.
func (s *Scenario) filter() bool {
	return s.Filter == nil || *s.Filter
}

func (s *Scenario) runID() string {
	if s.RunID == "" {
		return DefaultRunID
	}
	return s.RunID
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Module == "" && s.Source == "":
		return fmt.Errorf("one of module or source is required")
	case s.Module != "" && s.Source != "":
		return fmt.Errorf("module and source are mutually exclusive")
	case s.Module != "":
		if _, err := os.Stat(s.Module); os.IsNotExist(err) {
			return fmt.Errorf("module file not found: %s", s.Module)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRoots, AssertEnabled, AssertStartingPoints:
		// An absent list expects none.
	case AssertRootContains:
		if a.Root == "" {
			return fmt.Errorf("assertions[%d]: root is required for root_contains", index)
		}
	case AssertDiagnosticCount, AssertAnnotationCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertDiagnosticContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for diagnostic_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
