package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taffo/internal/config"
	"github.com/roach88/taffo/internal/report"
	"github.com/roach88/taffo/internal/store"
)

type scanResponse struct {
	Status string     `json:"status"`
	Data   ScanResult `json:"data"`
	Error  *CLIError  `json:"error"`
	ScanID string     `json:"scan_id"`
}

func scanJSON(t *testing.T, opts *RootOptions, args ...string) scanResponse {
	t.Helper()
	out, _, err := execute(NewScanCommand(opts), args...)
	require.NoError(t, err)

	var resp scanResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func TestScanText(t *testing.T) {
	out, _, err := execute(NewScanCommand(&RootOptions{Format: "text"}), kernelPath)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Scanned kernel: 3 root(s), 4 annotation(s)")
	assert.Contains(t, out, "  main:%y (call float) scalar(range(0, 2)) [target=scale]\n")
	assert.Contains(t, out, "  @gain (global float*) scalar(range(-1, 1))\n")
	assert.Contains(t, out, "  main:%x (alloca double*) scalar() [target=x backtracking]\n")
	assert.Contains(t, out, "Enabled functions: scale\n")
	assert.Contains(t, out, "Starting points: main\n")
	assert.Contains(t, out, "not-float: @counts: does not allocate a kind of float")
}

func TestScanJSON(t *testing.T) {
	resp := scanJSON(t, &RootOptions{Format: "json"}, kernelPath)

	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.False(t, resp.Data.Stored)

	rep := resp.Data.Report
	require.NotNil(t, rep)
	assert.Equal(t, "kernel", rep.Module)
	assert.Equal(t, "kernel.cue", rep.Source)
	assert.True(t, rep.Filtered)
	assert.Equal(t, 4, rep.AnnotationCount)
	assert.Equal(t, []string{"scale"}, rep.EnabledFunctions)
	assert.Equal(t, []string{"main"}, rep.StartingPoints)

	want, err := report.ScanID(rep)
	require.NoError(t, err)
	assert.Equal(t, want, resp.Data.ID)
	assert.Equal(t, want, resp.ScanID)
}

func TestScanNoFilter(t *testing.T) {
	resp := scanJSON(t, &RootOptions{Format: "json"}, kernelPath, "--no-filter")

	rep := resp.Data.Report
	assert.False(t, rep.Filtered)
	var idents []string
	for _, r := range rep.Roots {
		idents = append(idents, r.Ident)
	}
	assert.Equal(t, []string{"%y", "@gain", "@counts", "%x"}, idents)
	assert.Empty(t, rep.Diagnostics)
}

func TestScanConfigDisablesFilter(t *testing.T) {
	off := false
	cfg := config.Default()
	cfg.Scan.FilterRoots = &off

	resp := scanJSON(t, &RootOptions{Format: "json", Config: cfg}, kernelPath)
	assert.False(t, resp.Data.Report.Filtered)
	assert.Len(t, resp.Data.Report.Roots, 4)
}

func TestScanCustomIntrinsicName(t *testing.T) {
	cfg := config.Default()
	cfg.Scan.VarAnnotation = "my.var.annotation"

	// Local annotations go unnoticed under another intrinsic name.
	resp := scanJSON(t, &RootOptions{Format: "json", Config: cfg}, kernelPath)
	assert.Empty(t, resp.Data.Report.StartingPoints)
	assert.Len(t, resp.Data.Report.Roots, 2)
}

func TestScanOutputFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "report.json")
	out, _, err := execute(NewScanCommand(&RootOptions{Format: "text"}), kernelPath, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote canonical report to "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	canonical, err := report.MarshalCanonical(&rep)
	require.NoError(t, err)
	assert.Equal(t, string(canonical), string(data))
}

func TestScanRecordsInDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "taffo.db")

	first := scanJSON(t, &RootOptions{Format: "json"}, kernelPath, "--db", db, "--run-id", "run-1")
	assert.True(t, first.Data.Stored)

	// Same report, same id: the second write is a no-op.
	second := scanJSON(t, &RootOptions{Format: "json"}, kernelPath, "--db", db, "--run-id", "run-2")
	assert.False(t, second.Data.Stored)
	assert.Equal(t, first.Data.ID, second.Data.ID)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	scans, err := st.ListScans(context.Background())
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, first.Data.ID, scans[0].ID)
	assert.Equal(t, "run-1", scans[0].RunID)
	assert.Equal(t, 3, scans[0].Roots)
}

func TestScanDatabaseFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Store.DB = filepath.Join(t.TempDir(), "configured.db")

	resp := scanJSON(t, &RootOptions{Format: "json", Config: cfg}, kernelPath)
	assert.True(t, resp.Data.Stored)
	_, err := os.Stat(cfg.Store.DB)
	assert.NoError(t, err)
}

func TestScanMissingModule(t *testing.T) {
	out, _, err := execute(NewScanCommand(&RootOptions{Format: "text"}), "/nonexistent/kernel.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
	assert.Contains(t, out, "module not found")
}

func TestScanInvalidModule(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `module: "bad"
functions: f: body: [{ name: "x", op: "alloca", type: "float" }]
`)

	out, _, err := execute(NewScanCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E213")
}

func TestScanSyntaxErrorGoesToStderr(t *testing.T) {
	path := writeFile(t, t.TempDir(), "syntax.cue", `module: "syntax"
globals: g: { type: "float", annotation: "scalar(range(1" }
`)

	out, errOut, err := execute(NewScanCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "0 root(s), 0 annotation(s)")
	assert.Contains(t, out, "syntax: @g:")
	assert.Contains(t, errOut, "annotation parser syntax error")
}

func TestStorePath(t *testing.T) {
	assert.Equal(t, "flag.db", storePath("flag.db", "config.db"))
	assert.Equal(t, "config.db", storePath("", "config.db"))
	assert.Equal(t, "", storePath("", ""))
}
