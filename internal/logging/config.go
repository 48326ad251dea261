package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	flagLevel  = "log-level"
	flagFormat = "log-format"
)

// Config binds the --log-level and --log-format flags of a command.
type Config struct {
	Level  string
	Format string
}

// NewConfig returns a Config holding the default warn level and text
// format.
func NewConfig() *Config {
	return &Config{Level: string(LevelWarn), Format: string(FormatText)}
}

// RegisterFlags binds c to flags. The current field values become the
// flag defaults.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Level, flagLevel, c.Level,
		fmt.Sprintf("log level, one of: %s", GetAllLevelStrings()))
	flags.StringVar(&c.Format, flagFormat, c.Format,
		fmt.Sprintf("log format, one of: %s", GetAllFormatStrings()))
}

// RegisterCompletions offers the known levels and formats as completions.
// RegisterFlags must have been called on cmd's flags first.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	for name, values := range map[string][]string{
		flagLevel:  GetAllLevelStrings(),
		flagFormat: GetAllFormatStrings(),
	} {
		fn := cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp)
		if err := cmd.RegisterFlagCompletionFunc(name, fn); err != nil {
			return fmt.Errorf("completion for --%s: %w", name, err)
		}
	}
	return nil
}

// NewHandler parses c and returns a handler writing to w.
func (c *Config) NewHandler(w io.Writer) (slog.Handler, error) {
	return NewHandlerFromStrings(w, c.Level, c.Format)
}
