// Package logging builds [log/slog] handlers for the taffo command.
//
// Three formats are supported: [FormatJSON] and [FormatLogfmt] use the
// standard library handlers, [FormatText] renders human oriented lines
// through [github.com/charmbracelet/log]. Levels are [LevelError],
// [LevelWarn], [LevelInfo] and [LevelDebug].
//
// Typical usage registers the flags on the root command and builds the
// handler once flags are parsed:
//
//	cfg := logging.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//
//	handler, err := cfg.NewHandler(os.Stderr)
//	slog.SetDefault(slog.New(handler))
package logging
