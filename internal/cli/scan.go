package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/taffo/internal/initializer"
	"github.com/roach88/taffo/internal/report"
	"github.com/roach88/taffo/internal/store"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	NoFilter bool   // keep non floating-point roots
	Output   string // output file path
	Database string // scan history database
	RunID    string // run id recorded with the stored scan
}

// ScanResult is the JSON payload of the scan command.
type ScanResult struct {
	ID     string         `json:"id"`
	Stored bool           `json:"stored"`
	Report *report.Report `json:"report"`
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan <module>",
		Short: "Discover conversion roots",
		Long: `Compile a CUE module description, harvest its annotations and report
the conversion roots.

Roots whose storage is not a kind of float are dropped unless
--no-filter is given (or filter_roots = false in taffo.toml).

Examples:
  taffo scan ./kernel.cue
  taffo scan ./kernel --no-filter --format json
  taffo scan ./kernel.cue --db ./taffo.db --output report.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoFilter, "no-filter", false, "keep roots that are not floating point")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the canonical report to this file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the scan in this SQLite database")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id stored with the scan (default: a new UUIDv7)")

	return cmd
}

func runScan(ctx context.Context, opts *ScanOptions, path string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.config()
	logger := opts.logger()
	formatter := opts.formatter(cmd)

	m, verrs, err := loadValidated(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if len(verrs) > 0 {
		return outputValidationErrors(formatter, ValidationResult{Module: m.Name, Errors: verrs})
	}

	pass := initializer.New(append(cfg.PassOptions(),
		initializer.WithLogger(logger),
		initializer.WithDiagnosticWriter(formatter.GetErrWriter()),
	)...)
	res := pass.Scan(m)
	filter := cfg.Filter() && !opts.NoFilter
	if filter {
		pass.RemoveNonFloat(res.State, res.Roots)
	}
	rep := report.Build(m, res, report.Options{Filtered: filter})

	id, err := report.ScanID(rep)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("hashing report: %v", err))
	}
	formatter.VerboseLog("Scanned %s: %d root(s), scan %s", m.Name, len(rep.Roots), id)

	stored := false
	if db := storePath(opts.Database, cfg.Store.DB); db != "" {
		stored, err = recordScan(ctx, db, opts.runID(), rep)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
		}
		logger.Info("scan recorded", "db", db, "scan_id", id, "inserted", stored)
	}

	if opts.Output != "" {
		if err := writeReportToFile(rep, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	if formatter.Format == "json" {
		return formatter.Respond(CLIResponse{
			Status: "ok",
			Data:   ScanResult{ID: id, Stored: stored, Report: rep},
			ScanID: id,
		})
	}
	writeReportText(formatter.Writer, id, rep)
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical report to %s\n", opts.Output)
	}
	return nil
}

func (o *ScanOptions) runID() string {
	if o.RunID != "" {
		return o.RunID
	}
	return store.UUIDv7Generator{}.Generate()
}

// storePath prefers the flag over the configuration file.
func storePath(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}

// recordScan writes rep to the database at path. It reports whether the
// scan was new.
func recordScan(ctx context.Context, path, runID string, rep *report.Report) (bool, error) {
	st, err := store.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	_, inserted, err := st.WriteScan(ctx, runID, rep)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// writeReportToFile writes the report in canonical JSON.
func writeReportToFile(rep *report.Report, filename string) error {
	data, err := report.MarshalCanonical(rep)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// writeReportText prints a human-readable summary of rep.
func writeReportText(w io.Writer, id string, rep *report.Report) {
	fmt.Fprintf(w, "✓ Scanned %s: %d root(s), %d annotation(s)\n", rep.Module, len(rep.Roots), rep.AnnotationCount)
	fmt.Fprintf(w, "Scan: %s\n\n", id)

	if len(rep.Roots) > 0 {
		fmt.Fprintln(w, "Roots:")
		for _, r := range rep.Roots {
			name := r.Ident
			if r.Function != "" {
				name = r.Function + ":" + r.Ident
			}
			var extra []string
			if r.Target != "" {
				extra = append(extra, "target="+r.Target)
			}
			if r.Backtracking {
				extra = append(extra, "backtracking")
			}
			fmt.Fprintf(w, "  %s (%s %s) %s", name, r.Kind, r.Type, r.Metadata)
			if len(extra) > 0 {
				fmt.Fprintf(w, " [%s]", strings.Join(extra, " "))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	if len(rep.EnabledFunctions) > 0 {
		fmt.Fprintf(w, "Enabled functions: %s\n", strings.Join(rep.EnabledFunctions, ", "))
	}
	if len(rep.StartingPoints) > 0 {
		fmt.Fprintf(w, "Starting points: %s\n", strings.Join(rep.StartingPoints, ", "))
	}

	if len(rep.Diagnostics) > 0 {
		fmt.Fprintf(w, "\nDiagnostics (%d):\n", len(rep.Diagnostics))
		for _, d := range rep.Diagnostics {
			subject := d.Value
			if subject == "" {
				subject = d.Location
			}
			fmt.Fprintf(w, "  %s: %s: %s\n", d.Kind, subject, d.Message)
		}
	}
}

// outputCommandError outputs a single command error.
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Command errors are exit code 2
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
