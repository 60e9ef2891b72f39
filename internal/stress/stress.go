// Package stress drives an event log and a set of queues from many goroutines
// at once and checks that the concurrency guarantees held.
//
// A run has two phases. The log phase has writers appending distinct records
// while readers call ReadAll in a loop; every snapshot must consist of whole
// records and never shrink. The queue phase has workers from a bounded pool
// issuing random operations against queues that share one log while a
// checker samples each queue's length against its bound.
package stress

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/synclog/internal/eventlog"
	"github.com/roach88/synclog/internal/metrics"
	"github.com/roach88/synclog/internal/queue"
)

// Config sizes a stress run.
type Config struct {
	Writers  int   // log writers, and queue workers
	Appends  int   // appends per log writer
	Readers  int   // concurrent ReadAll loops
	Queues   int   // queues sharing the queue-phase log
	Ops      int   // operations per queue worker
	Capacity int   // initial bound of every queue
	Seed     int64 // seeds the workers' operation mix
}

// Validate checks that the sizes make sense.
func (c Config) Validate() error {
	switch {
	case c.Writers < 1:
		return fmt.Errorf("writers must be at least 1, got %d", c.Writers)
	case c.Appends < 0, c.Readers < 0, c.Ops < 0:
		return fmt.Errorf("appends, readers and ops must be non-negative")
	case c.Queues < 1:
		return fmt.Errorf("queues must be at least 1, got %d", c.Queues)
	case c.Capacity < 0:
		return fmt.Errorf("capacity must be non-negative, got %d", c.Capacity)
	}
	return nil
}

// Report summarizes a stress run.
type Report struct {
	RunID   string `json:"run_id"`
	Elapsed string `json:"elapsed"`

	// Log phase
	ExpectedRecords int   `json:"expected_records"`
	FinalRecords    int   `json:"final_records"`
	ReadAllCalls    int64 `json:"read_all_calls"`
	TornSnapshots   int64 `json:"torn_snapshots"`

	// Queue phase
	ExpectedQueueRecords int   `json:"expected_queue_records"`
	QueueRecords         int   `json:"queue_records"`
	StateSamples         int64 `json:"state_samples"`
	BoundViolations      int64 `json:"bound_violations"`
	SequenceViolations   int   `json:"sequence_violations"`

	Metrics []metrics.Sample `json:"metrics,omitempty"`
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return r.TornSnapshots == 0 &&
		r.FinalRecords == r.ExpectedRecords &&
		r.QueueRecords == r.ExpectedQueueRecords &&
		r.BoundViolations == 0 &&
		r.SequenceViolations == 0
}

// Option configures a run.
type Option func(*runner)

// WithLogger sets the logger for phase progress and internal faults.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type runner struct {
	cfg    Config
	logger *slog.Logger
}

// Run executes both phases. It returns an error only when the run could not
// complete; failed checks are reported through Report.OK.
func Run(ctx context.Context, cfg Config, opts ...Option) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &runner{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}

	rep := &Report{RunID: uuid.Must(uuid.NewV7()).String()}
	start := time.Now()
	r.logger = r.logger.With("run_id", rep.RunID)

	if err := r.runLogPhase(ctx, rep); err != nil {
		return nil, fmt.Errorf("log phase: %w", err)
	}
	if err := r.runQueuePhase(ctx, rep); err != nil {
		return nil, fmt.Errorf("queue phase: %w", err)
	}

	rep.Elapsed = time.Since(start).Round(time.Millisecond).String()
	r.logger.Info("stress run completed", "ok", rep.OK(), "elapsed", rep.Elapsed)
	return rep, nil
}

var writerRecord = regexp.MustCompile(`^w\d+-\d+$`)

// checkSnapshot validates one ReadAll result against the previous line count
// seen by the same reader. It returns the new line count.
func checkSnapshot(all string, prev int) (int, bool) {
	if all == "" {
		return 0, prev == 0
	}
	if !strings.HasSuffix(all, "\n") {
		return prev, false
	}
	lines := strings.Split(strings.TrimSuffix(all, "\n"), "\n")
	for _, line := range lines {
		if !writerRecord.MatchString(line) {
			return prev, false
		}
	}
	if len(lines) < prev {
		return prev, false
	}
	return len(lines), true
}

func (r *runner) runLogPhase(ctx context.Context, rep *Report) error {
	cfg := r.cfg
	log := eventlog.New(eventlog.WithDiagnostics(r.logger))
	rep.ExpectedRecords = cfg.Writers * cfg.Appends

	var readAlls, torn atomic.Int64
	writersDone := make(chan struct{})

	readers, rctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Readers; i++ {
		readers.Go(func() error {
			prev := 0
			for {
				select {
				case <-writersDone:
					return nil
				case <-rctx.Done():
					return rctx.Err()
				default:
				}
				n, ok := checkSnapshot(log.ReadAll(), prev)
				readAlls.Add(1)
				if !ok {
					torn.Add(1)
					continue
				}
				prev = n
			}
		})
	}

	writers, wctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Writers; w++ {
		writers.Go(func() error {
			for i := 0; i < cfg.Appends; i++ {
				if err := wctx.Err(); err != nil {
					return err
				}
				log.Append(fmt.Sprintf("w%d-%d", w, i))
			}
			return nil
		})
	}

	werr := writers.Wait()
	close(writersDone)
	rerr := readers.Wait()
	if werr != nil {
		return werr
	}
	if rerr != nil {
		return rerr
	}

	rep.FinalRecords = log.Len()
	rep.ReadAllCalls = readAlls.Load()
	rep.TornSnapshots = torn.Load()

	r.logger.Info("log phase completed",
		"records", rep.FinalRecords,
		"read_all_calls", rep.ReadAllCalls,
		"torn", rep.TornSnapshots,
	)
	return nil
}

func (r *runner) runQueuePhase(ctx context.Context, rep *Report) error {
	cfg := r.cfg
	rec := metrics.NewRecorder()
	log := eventlog.New(eventlog.WithDiagnostics(r.logger), eventlog.WithObserver(rec))
	rep.ExpectedQueueRecords = cfg.Writers * cfg.Ops

	queues := make([]*queue.Queue, cfg.Queues)
	for i := range queues {
		queues[i] = queue.New(log, fmt.Sprintf("q%d", i+1),
			queue.WithCapacity(cfg.Capacity),
			queue.WithObserver(rec),
			queue.WithDiagnostics(r.logger),
		)
	}

	pool, err := ants.NewPool(cfg.Writers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var samples, violations atomic.Int64
	stop := make(chan struct{})
	checkerDone := make(chan struct{})
	go func() {
		defer close(checkerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			for _, q := range queues {
				elems, c := q.State()
				samples.Add(1)
				if limit, bounded := c.Limit(); bounded && len(elems) > limit {
					violations.Add(1)
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Writers; w++ {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			r.work(ctx, queues, w)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			close(stop)
			wg.Wait()
			<-checkerDone
			return fmt.Errorf("submit worker %d: %w", w, err)
		}
	}
	wg.Wait()
	close(stop)
	<-checkerDone

	if err := ctx.Err(); err != nil {
		return err
	}

	records := log.Snapshot()
	rep.QueueRecords = len(records)
	rep.StateSamples = samples.Load()
	rep.BoundViolations = violations.Load()
	rep.SequenceViolations = sequenceViolations(records)

	if rep.Metrics, err = rec.Snapshot(); err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	r.logger.Info("queue phase completed",
		"records", rep.QueueRecords,
		"samples", rep.StateSamples,
		"bound_violations", rep.BoundViolations,
		"sequence_violations", rep.SequenceViolations,
	)
	return nil
}

// work issues cfg.Ops random operations. The mix favours pushes so queues
// regularly hit their bound.
func (r *runner) work(ctx context.Context, queues []*queue.Queue, worker int) {
	rng := rand.New(rand.NewPCG(uint64(r.cfg.Seed), uint64(worker)))
	for i := 0; i < r.cfg.Ops; i++ {
		if ctx.Err() != nil {
			return
		}
		q := queues[rng.IntN(len(queues))]
		switch n := rng.IntN(100); {
		case n < 50:
			q.PushBack(worker*r.cfg.Ops + i)
		case n < 88:
			q.PopFront()
		case n < 98:
			q.SetCapacity(rng.IntN(2*r.cfg.Capacity + 1))
		default:
			q.SetUnbounded()
		}
	}
}

// sequenceViolations counts records whose sequence number is not exactly one
// more than the previous record of the same queue.
func sequenceViolations(records []string) int {
	last := make(map[string]int64)
	bad := 0
	for _, line := range records {
		rec, err := queue.ParseRecord(line)
		if err != nil {
			bad++
			continue
		}
		if rec.Seq != last[rec.Name]+1 {
			bad++
		}
		last[rec.Name] = rec.Seq
	}
	return bad
}
