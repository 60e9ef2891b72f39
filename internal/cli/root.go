package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/synclog/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogLevel string

	// Config supplies flag defaults read from SYNCLOG_* variables.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the synclog CLI.
// Flag defaults come from the environment; an invalid environment is
// reported on stderr and falls back to built-in defaults.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithDiagnostics(os.Stderr)
}

// NewRootCommandWithDiagnostics is NewRootCommand with configuration
// warnings written to diag.
func NewRootCommandWithDiagnostics(diag io.Writer) *cobra.Command {
	logger := slog.New(slog.NewTextHandler(diag, nil))
	return newRootCommand(config.LoadOrDefault(logger))
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	opts := &RootOptions{Config: cfg}

	cmd := &cobra.Command{
		Use:   "synclog",
		Short: "synclog - shared event log and bounded queues",
		Long: `Exercise an in-memory event log guarded by a turnstile reader/writer lock
and the bounded queues that record every operation into it.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := config.ParseLevel(opts.LogLevel); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", cfg.Format, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewStressCommand(opts))

	return cmd
}

// Logger builds the diagnostic logger for a command. --verbose forces debug.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(o.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
