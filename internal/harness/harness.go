package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/synclog/internal/eventlog"
	"github.com/roach88/synclog/internal/metrics"
	"github.com/roach88/synclog/internal/queue"
)

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger for step progress and internal faults.
// Runs are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics attaches a recorder to the scenario's log and queues.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(h *Harness) {
		h.metrics = rec
	}
}

// Harness executes one scenario against a fresh log.
type Harness struct {
	log     *eventlog.Log
	queues  map[string]*queue.Queue
	order   []string
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// Run executes a scenario and returns the result.
//
// Each run gets its own log and queues. Steps are executed sequentially,
// then assertions are evaluated against the final log and queue state.
// A non-nil error means the scenario could not be executed at all; failed
// expectations and assertions are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		queues: make(map[string]*queue.Queue, len(scenario.Queues)),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	logOpts := []eventlog.Option{eventlog.WithDiagnostics(h.logger)}
	if h.metrics != nil {
		logOpts = append(logOpts, eventlog.WithObserver(h.metrics))
	}
	h.log = eventlog.New(logOpts...)

	for _, decl := range scenario.Queues {
		if _, dup := h.queues[decl.ID]; dup {
			return nil, fmt.Errorf("duplicate queue id %q", decl.ID)
		}
		h.queues[decl.ID] = queue.New(h.log, decl.Name, h.queueOptions(decl)...)
		h.order = append(h.order, decl.ID)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		outcome, err := h.executeStep(i, step)
		if err != nil {
			return nil, fmt.Errorf("failed to execute step %d: %w", i, err)
		}
		result.Steps = append(result.Steps, outcome)

		if step.Expect != "" && (step.Expect == ExpectSuccess) != outcome.OK {
			result.AddError(fmt.Sprintf("steps[%d] (%s): expected %s, got %s",
				i, describeStep(step), step.Expect, outcomeWord(outcome.OK)))
		}
	}

	result.Log = h.log.Snapshot()
	for _, id := range h.order {
		q := h.queues[id]
		elems, c := q.State()
		result.Queues = append(result.Queues, QueueState{
			ID:       id,
			Name:     q.Name(),
			Elements: elems,
			Capacity: c.String(),
			Seq:      q.Seq(),
		})
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"steps", len(result.Steps),
		"records", len(result.Log),
		"pass", result.Pass,
	)

	return result, nil
}

func (h *Harness) queueOptions(decl QueueDecl) []queue.Option {
	opts := []queue.Option{queue.WithDiagnostics(h.logger)}
	if decl.Capacity != nil {
		opts = append(opts, queue.WithCapacity(*decl.Capacity))
	}
	if h.metrics != nil {
		opts = append(opts, queue.WithObserver(h.metrics))
	}
	return opts
}

// executeStep runs one step and reports its outcome.
func (h *Harness) executeStep(index int, step Step) (StepOutcome, error) {
	outcome := StepOutcome{Index: index, Op: step.Op, Queue: step.Queue}

	var q *queue.Queue
	if step.Queue != "" {
		var ok bool
		if q, ok = h.queues[step.Queue]; !ok {
			return outcome, fmt.Errorf("unknown queue %q", step.Queue)
		}
	}

	var err error
	switch step.Op {
	case OpPush:
		if q == nil || step.Value == nil {
			return outcome, fmt.Errorf("push needs a queue and a value")
		}
		err = q.TryPushBack(*step.Value)
	case OpPop:
		if q == nil {
			return outcome, fmt.Errorf("pop needs a queue")
		}
		var v int
		if v, err = q.TryPopFront(); err == nil {
			outcome.Value = &v
		}
	case OpSetCapacity:
		if q == nil || step.Value == nil {
			return outcome, fmt.Errorf("set_capacity needs a queue and a value")
		}
		err = q.TrySetCapacity(*step.Value)
	case OpSetUnbounded:
		if q == nil {
			return outcome, fmt.Errorf("set_unbounded needs a queue")
		}
		err = q.TrySetUnbounded()
	case OpAppend:
		h.log.Append(step.Message)
	case OpClear:
		h.log.Clear()
	default:
		return outcome, fmt.Errorf("unknown op %q", step.Op)
	}

	outcome.OK = err == nil
	if err != nil {
		outcome.Error = string(queue.CodeOf(err))
	}

	h.logger.Debug("step completed",
		"index", index,
		"op", step.Op,
		"queue", step.Queue,
		"ok", outcome.OK,
	)

	return outcome, nil
}

func describeStep(step Step) string {
	s := step.Op
	if step.Queue != "" {
		s += " " + step.Queue
	}
	if step.Value != nil {
		s += fmt.Sprintf(" %d", *step.Value)
	}
	return s
}

func outcomeWord(ok bool) string {
	if ok {
		return ExpectSuccess
	}
	return ExpectFail
}
