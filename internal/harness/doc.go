// Package harness runs conformance scenarios against the annotation scan.
//
// A scenario names a CUE module description, compiles it, scans it and
// checks the resulting report. Each run stores the report in a fresh
// in-memory database and asserts on the copy read back, so the store
// round trip is covered by every scenario.
//
// # Scenario Format
//
//	name: kernel_roots
//	description: "Globals and targeted locals become roots"
//	module: kernel.cue        # relative to the scenario file
//	filter: true              # optional, default true
//	assertions:
//	  - type: roots
//	    values: ["@gain", "main:%x"]
//	  - type: root_contains
//	    root: "main:%x"
//	    target: x
//	  - type: starting_points
//	    values: [main]
//	  - type: diagnostic_count
//	    count: 0
//
// The module may be given inline with source instead of module.
//
// # Assertion Types
//
//   - roots: the exact ordered list of root names
//   - root_contains: one root exists, optionally with target, metadata,
//     kind and backtracking checked
//   - enabled: the exact list of enabled functions
//   - starting_points: the exact list of starting points
//   - diagnostic_count: the number of diagnostics
//   - diagnostic_contains: a diagnostic of the given kind exists, optionally
//     with a message substring
//   - annotation_count: the number of successfully parsed annotations
//
// Root names are the value ident, qualified by the enclosing function for
// instructions ("main:%x").
//
// # Golden Files
//
// [RunWithGolden] snapshots the diagnostic dump and the canonical report
// under testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
