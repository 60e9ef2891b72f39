package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/synclog/internal/harness"
	"github.com/roach88/synclog/internal/metrics"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Metrics bool
}

// RunOutput is the JSON payload of the run command.
type RunOutput struct {
	Scenario string           `json:"scenario"`
	Result   *harness.Result  `json:"result"`
	Metrics  []metrics.Sample `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its log",
		Long: `Run a scenario against a fresh event log and print the resulting
records, the final queue contents and any failed expectations.

Example:
  synclog run ./scenarios/bound_of_three.yaml
  synclog run ./scenarios/shared_log.yaml --metrics --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print operation counters after the run")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.Logger(cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	logger.Debug("scenario loaded", "name", scenario.Name, "steps", len(scenario.Steps))

	runOpts := []harness.Option{harness.WithLogger(logger)}
	var rec *metrics.Recorder
	if opts.Metrics {
		rec = metrics.NewRecorder()
		runOpts = append(runOpts, harness.WithMetrics(rec))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeExec, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunOutput{Scenario: scenario.Name, Result: result}
	if rec != nil {
		if out.Metrics, err = rec.Snapshot(); err != nil {
			return WrapExitError(ExitCommandError, "failed to gather metrics", err)
		}
	}

	if formatter.JSON() {
		if result.Pass {
			return formatter.Success(out)
		}
		if err := formatter.Failure(ErrCodeScenario, "scenario failed", out); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}

	writeRunText(cmd, out)
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func writeRunText(cmd *cobra.Command, out RunOutput) {
	w := cmd.OutOrStdout()
	result := out.Result

	fmt.Fprintf(w, "Scenario: %s\n\n", out.Scenario)
	fmt.Fprintf(w, "Log (%d records):\n", len(result.Log))
	for _, line := range result.Log {
		fmt.Fprintf(w, "  %s\n", line)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Queues:")
	for _, q := range result.Queues {
		elems := make([]string, len(q.Elements))
		for i, e := range q.Elements {
			elems[i] = fmt.Sprint(e)
		}
		fmt.Fprintf(w, "  %s: [%s] capacity=%s seq=%d\n", q.ID, strings.Join(elems, " "), q.Capacity, q.Seq)
	}

	if len(out.Metrics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Metrics:")
		for _, s := range out.Metrics {
			fmt.Fprintf(w, "  %s%s %g\n", s.Name, formatLabels(s.Labels), s.Value)
		}
	}

	fmt.Fprintln(w)
	if result.Pass {
		fmt.Fprintf(w, "✓ %s\n", out.Scenario)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", out.Scenario)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// formatLabels renders labels in Prometheus exposition order (sorted keys).
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}
