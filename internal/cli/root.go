package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/taffo/internal/config"
	"github.com/roach88/taffo/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Log        *logging.Config

	// Config and Logger are resolved before a subcommand runs.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the taffo CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Log: logging.NewConfig()}

	cmd := &cobra.Command{
		Use:   "taffo",
		Short: "taffo - annotation initializer",
		Long: `Harvest numeric annotations from a program module and discover the
values a precision-tuning pipeline should convert.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "configuration file (default: nearest taffo.toml)")
	opts.Log.RegisterFlags(cmd.PersistentFlags())
	_ = opts.Log.RegisterCompletions(cmd)

	// Add subcommands
	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads the configuration file and builds the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	var err error
	if o.ConfigPath != "" {
		o.Config, err = config.Load(o.ConfigPath)
	} else {
		o.Config, err = config.FindAndLoad(".")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	if o.Verbose {
		o.Log.Level = string(logging.LevelDebug)
	}
	h, err := o.Log.NewHandler(cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid logging flags", err)
	}
	o.Logger = slog.New(h)
	if o.Config.Path != "" {
		o.Logger.Debug("configuration loaded", "path", o.Config.Path)
	}
	return nil
}

// config returns the resolved configuration, or the defaults when the
// command runs without the root command.
func (o *RootOptions) config() *config.Config {
	if o.Config == nil {
		return config.Default()
	}
	return o.Config
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
