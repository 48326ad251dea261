package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/taffo/internal/initializer"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <module>",
		Short: "Print the annotated values of a module",
		Long: `Print the annotated functions, the annotated globals and the local
annotations of every function, as found before any scan runs.

The dump is plain text regardless of --format.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runDump(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	m, err := LoadModule(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	pass := initializer.New(append(opts.config().PassOptions(),
		initializer.WithLogger(opts.logger()),
		initializer.WithDiagnosticWriter(formatter.GetErrWriter()),
	)...)
	if err := pass.PrintAnnotatedObj(formatter.Writer, m); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("%s: writing dump", ErrCodeWriteFailed), err)
	}
	return nil
}
