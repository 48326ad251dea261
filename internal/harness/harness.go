package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/taffo/internal/compiler"
	"github.com/roach88/taffo/internal/initializer"
	"github.com/roach88/taffo/internal/ir"
	"github.com/roach88/taffo/internal/report"
	"github.com/roach88/taffo/internal/store"
)

// Harness is the test execution engine.
// It scans with logging discarded and stores with fixed run ids.
type Harness struct {
	store  *store.Store
	runIDs store.RunIDGenerator
	pass   *initializer.Pass
	diag   bytes.Buffer
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Compile and validate the module description
// 2. Dump the annotated values
// 3. Scan, then filter unless the scenario disables it
// 4. Store the report and read it back
// 5. Evaluate assertions against the stored report
func Run(scenario *Scenario) (*Result, error) {
	m, err := compileScenario(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}
	if errs := compiler.Validate(m); len(errs) > 0 {
		return nil, fmt.Errorf("invalid module: %w", errs[0])
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: store.NewFixedGenerator(scenario.runID()),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.pass = initializer.New(
		initializer.WithLogger(h.logger),
		initializer.WithDiagnosticWriter(&h.diag),
	)

	return h.run(context.Background(), scenario, m)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, m *ir.Module) (*Result, error) {
	result := NewResult()

	var dump strings.Builder
	if err := h.pass.PrintAnnotatedObj(&dump, m); err != nil {
		return nil, fmt.Errorf("failed to dump module: %w", err)
	}
	result.Dump = dump.String()

	res := h.pass.Scan(m)
	if scenario.filter() {
		h.pass.RemoveNonFloat(res.State, res.Roots)
	}
	rep := report.Build(m, res, report.Options{Filtered: scenario.filter()})
	result.Stderr = h.diag.String()

	id, _, err := h.store.WriteScan(ctx, h.runIDs.Generate(), rep)
	if err != nil {
		return nil, fmt.Errorf("failed to store scan: %w", err)
	}
	_, stored, err := h.store.ReadScan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan back: %w", err)
	}
	result.ScanID = id
	result.Report = stored

	h.logger.Info("scenario scanned",
		"scenario", scenario.Name,
		"scan_id", id,
		"roots", len(stored.Roots),
	)

	for _, msg := range EvaluateAssertions(stored, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func compileScenario(s *Scenario) (*ir.Module, error) {
	if s.Source != "" {
		return compiler.CompileSource(s.Name+".cue", []byte(s.Source))
	}
	return compiler.LoadFile(s.Module)
}
