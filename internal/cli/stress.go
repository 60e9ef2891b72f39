package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/synclog/internal/config"
	"github.com/roach88/synclog/internal/metrics"
	"github.com/roach88/synclog/internal/stress"
)

// StressOptions holds flags for the stress command.
type StressOptions struct {
	*RootOptions
	Run     stress.Config
	Timeout time.Duration
}

// NewStressCommand creates the stress command. Flag defaults come from the
// SYNCLOG_STRESS_* variables.
func NewStressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StressOptions{RootOptions: rootOpts}
	cfg := rootOpts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	defaults := cfg.Stress

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Hammer a log and its queues from many goroutines",
		Long: `Run concurrent writers and readers against one event log, then concurrent
workers against queues sharing a second log, and verify that no reader saw a
partial snapshot, no record was lost, every queue stayed within its bound and
each queue's sequence numbers reached the log in order.

Exit codes:
  0 - All checks passed
  1 - A check failed
  2 - Invalid flags or the run was interrupted`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Run.Writers, "writers", defaults.Writers, "log writers and queue workers")
	cmd.Flags().IntVar(&opts.Run.Appends, "appends", defaults.Appends, "appends per log writer")
	cmd.Flags().IntVar(&opts.Run.Readers, "readers", defaults.Readers, "concurrent ReadAll loops")
	cmd.Flags().IntVar(&opts.Run.Queues, "queues", defaults.Queues, "queues sharing one log")
	cmd.Flags().IntVar(&opts.Run.Ops, "ops", defaults.Ops, "operations per queue worker")
	cmd.Flags().IntVar(&opts.Run.Capacity, "capacity", defaults.Capacity, "initial bound of every queue")
	cmd.Flags().Int64Var(&opts.Run.Seed, "seed", time.Now().UnixNano(), "seed for the operation mix")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "abort the run after this long (0 = no limit)")

	return cmd
}

func runStress(opts *StressOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.Logger(cmd.ErrOrStderr())

	if err := opts.Run.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid stress configuration", err)
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	logger.Info("starting stress run",
		"writers", opts.Run.Writers,
		"appends", opts.Run.Appends,
		"readers", opts.Run.Readers,
		"queues", opts.Run.Queues,
		"ops", opts.Run.Ops,
		"capacity", opts.Run.Capacity,
		"seed", opts.Run.Seed,
	)

	report, err := stress.Run(ctx, opts.Run, stress.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "stress run aborted", err)
	}

	if formatter.JSON() {
		if report.OK() {
			return formatter.Success(report)
		}
		if err := formatter.Failure(ErrCodeStressFailed, "stress checks failed", report); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "stress checks failed")
	}

	writeStressText(cmd, report)
	if !report.OK() {
		return NewExitError(ExitFailure, "stress checks failed")
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeStressText(cmd *cobra.Command, r *stress.Report) {
	w := cmd.OutOrStdout()
	mark := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "✗"
	}

	fmt.Fprintf(w, "Stress run %s (%s)\n\n", r.RunID, r.Elapsed)

	fmt.Fprintln(w, "Event log:")
	fmt.Fprintf(w, "  %s records: %d/%d\n", mark(r.FinalRecords == r.ExpectedRecords), r.FinalRecords, r.ExpectedRecords)
	fmt.Fprintf(w, "  %s torn snapshots: %d of %d reads\n", mark(r.TornSnapshots == 0), r.TornSnapshots, r.ReadAllCalls)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Queues:")
	fmt.Fprintf(w, "  %s records: %d/%d\n", mark(r.QueueRecords == r.ExpectedQueueRecords), r.QueueRecords, r.ExpectedQueueRecords)
	fmt.Fprintf(w, "  %s bound violations: %d in %d samples\n", mark(r.BoundViolations == 0), r.BoundViolations, r.StateSamples)
	fmt.Fprintf(w, "  %s sequence violations: %d\n", mark(r.SequenceViolations == 0), r.SequenceViolations)

	if opsTotal := metrics.Total(r.Metrics, metrics.QueueOpsTotal, nil); opsTotal > 0 {
		full := metrics.Total(r.Metrics, metrics.QueueOpsTotal, map[string]string{"outcome": "queue_full"})
		empty := metrics.Total(r.Metrics, metrics.QueueOpsTotal, map[string]string{"outcome": "queue_empty"})
		fmt.Fprintf(w, "  operations: %g (%g rejected full, %g rejected empty)\n", opsTotal, full, empty)
	}

	fmt.Fprintln(w)
	if r.OK() {
		fmt.Fprintln(w, "✓ All checks passed")
		return
	}
	fmt.Fprintln(w, "✗ Checks failed")
}
