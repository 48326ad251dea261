package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/taffo/internal/report"
	"github.com/roach88/taffo/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
}

// HistoryEntry is one stored scan in the history listing.
type HistoryEntry struct {
	Seq             int64  `json:"seq"`
	ID              string `json:"id"`
	RunID           string `json:"run_id"`
	Module          string `json:"module"`
	Source          string `json:"source,omitempty"`
	AnnotationCount int    `json:"annotation_count"`
	Filtered        bool   `json:"filtered"`
	Roots           int    `json:"roots"`
	Diagnostics     int    `json:"diagnostics"`
}

// HistoryScan is a single stored scan with its report.
type HistoryScan struct {
	HistoryEntry
	Report *report.Report `json:"report"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [scan-id]",
		Short: "List or show recorded scans",
		Long: `List the scans recorded in a scan database, oldest first, or show
the stored report of one scan.

The stored report is re-hashed on read; a report that no longer matches
its id means the database was edited.

Examples:
  taffo history --db ./taffo.db
  taffo history --db ./taffo.db 3f2a...
  taffo history --db ./taffo.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if len(args) == 1 {
				return runHistoryShow(ctx, opts, args[0], cmd)
			}
			return runHistoryList(ctx, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: store.db from taffo.toml)")

	return cmd
}

// openHistory opens an existing scan database.
func openHistory(opts *HistoryOptions, formatter *OutputFormatter) (*store.Store, error) {
	db := storePath(opts.Database, opts.config().Store.DB)
	if db == "" {
		return nil, outputCommandError(formatter, ErrCodeGeneric, "no database given: use --db or set store.db in taffo.toml")
	}
	if _, err := os.Stat(db); err != nil {
		return nil, outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("database not found: %s", db))
	}
	st, err := store.Open(db)
	if err != nil {
		return nil, outputCommandError(formatter, ErrCodeStoreFailed, fmt.Sprintf("failed to open database: %v", err))
	}
	return st, nil
}

func runHistoryList(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	st, err := openHistory(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	scans, err := st.ListScans(ctx)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
	}

	entries := make([]HistoryEntry, len(scans))
	for i, sc := range scans {
		entries[i] = toEntry(sc)
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintln(w, "No scans recorded.")
		return nil
	}
	for _, e := range entries {
		filtered := ""
		if e.Filtered {
			filtered = ", filtered"
		}
		fmt.Fprintf(w, "%3d  %s  %s  %d root(s), %d diagnostic(s)%s  run %s\n",
			e.Seq, shortID(e.ID), e.Module, e.Roots, e.Diagnostics, filtered, e.RunID)
	}
	return nil
}

func runHistoryShow(ctx context.Context, opts *HistoryOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	st, err := openHistory(opts, formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	sc, rep, err := st.ReadScan(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return outputCommandError(formatter, ErrCodeNotFound, err.Error())
	}
	if err != nil {
		return outputCommandError(formatter, ErrCodeStoreFailed, err.Error())
	}

	entry := toEntry(sc)
	entry.Roots = len(rep.Roots)
	entry.Diagnostics = len(rep.Diagnostics)

	if formatter.Format == "json" {
		return formatter.Respond(CLIResponse{
			Status: "ok",
			Data:   HistoryScan{HistoryEntry: entry, Report: rep},
			ScanID: sc.ID,
		})
	}
	fmt.Fprintf(formatter.Writer, "Run: %s (seq %d)\n", sc.RunID, sc.Seq)
	writeReportText(formatter.Writer, sc.ID, rep)
	return nil
}

func toEntry(sc store.Scan) HistoryEntry {
	return HistoryEntry{
		Seq:             sc.Seq,
		ID:              sc.ID,
		RunID:           sc.RunID,
		Module:          sc.Module,
		Source:          sc.Source,
		AnnotationCount: sc.AnnotationCount,
		Filtered:        sc.Filtered,
		Roots:           sc.Roots,
		Diagnostics:     sc.Diagnostics,
	}
}

// shortID abbreviates a scan id for listings.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
