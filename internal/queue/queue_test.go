package queue

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/synclog/internal/eventlog"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestLog() *eventlog.Log {
	return eventlog.New(eventlog.WithDiagnostics(discard))
}

func newTestQueue(log *eventlog.Log, name string, opts ...Option) *Queue {
	return New(log, name, append([]Option{WithDiagnostics(discard)}, opts...)...)
}

func TestQueue_BoundOfThree(t *testing.T) {
	log := newTestLog()
	q := newTestQueue(log, "", WithCapacity(3))

	assert.True(t, q.PushBack(1))
	assert.True(t, q.PushBack(2))
	assert.True(t, q.PushBack(3))
	assert.False(t, q.PushBack(4))

	v, ok := q.PopFront()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.True(t, q.PushBack(5))
	assert.Equal(t, []int{2, 3, 5}, q.Snapshot())

	records := log.Snapshot()
	assert.Equal(t, []string{
		"[1] (SUCCESS) Buffer write 1",
		"[2] (SUCCESS) Buffer write 2",
		"[3] (SUCCESS) Buffer write 3",
		"[4] (FAIL) Buffer write 4 - Buffer full",
		"[5] (SUCCESS) Buffer read 1",
		"[6] (SUCCESS) Buffer write 5",
	}, records)

	succeeded := 0
	for _, line := range records {
		rec, err := ParseRecord(line)
		require.NoError(t, err)
		if rec.Success {
			succeeded++
		}
	}
	assert.Equal(t, 5, succeeded)
}

func TestQueue_TwoQueuesShareLog(t *testing.T) {
	log := newTestLog()
	b1 := newTestQueue(log, "b1")
	b2 := newTestQueue(log, "b2")

	require.True(t, b1.PushBack(10))
	require.True(t, b2.PushBack(20))
	require.True(t, b1.PushBack(30))
	require.True(t, b2.PushBack(40))

	v, ok := b1.PopFront()
	require.True(t, ok)
	assert.Equal(t, 10, v)
	v, ok = b2.PopFront()
	require.True(t, ok)
	assert.Equal(t, 20, v)

	assert.Equal(t, []string{
		"b1: [1] (SUCCESS) Buffer write 10",
		"b2: [1] (SUCCESS) Buffer write 20",
		"b1: [2] (SUCCESS) Buffer write 30",
		"b2: [2] (SUCCESS) Buffer write 40",
		"b1: [3] (SUCCESS) Buffer read 10",
		"b2: [3] (SUCCESS) Buffer read 20",
	}, log.Snapshot())

	assert.Equal(t, []int{30}, b1.Snapshot())
	assert.Equal(t, []int{40}, b2.Snapshot())
}

func TestQueue_CapacityRejectsExtraPush(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("capacity_%d", n), func(t *testing.T) {
			log := newTestLog()
			q := newTestQueue(log, "")
			require.True(t, q.SetCapacity(n))

			for i := 0; i < n; i++ {
				require.True(t, q.PushBack(i), "push %d", i)
			}
			err := q.TryPushBack(n)
			assert.ErrorIs(t, err, ErrQueueFull)
			assert.Equal(t, n, q.Len())

			last, ok := log.ReadLast()
			require.True(t, ok)
			assert.Equal(t, fmt.Sprintf("[%d] (FAIL) Buffer write %d - Buffer full", n+2, n), last)
		})
	}
}

func TestQueue_PopEmptyThenPush(t *testing.T) {
	log := newTestLog()
	q := newTestQueue(log, "")

	v, ok := q.PopFront()
	assert.False(t, ok)
	assert.Zero(t, v)

	_, err := q.TryPopFront()
	assert.ErrorIs(t, err, ErrQueueEmpty)

	assert.True(t, q.PushBack(7))
	assert.Equal(t, []string{
		"[1] (FAIL) Buffer read - Buffer empty",
		"[2] (FAIL) Buffer read - Buffer empty",
		"[3] (SUCCESS) Buffer write 7",
	}, log.Snapshot())
}

func TestQueue_SetCapacity(t *testing.T) {
	tests := []struct {
		name     string
		initial  []int
		bound    int
		wantOK   bool
		want     []int
		wantLine string
	}{
		{
			name:     "no truncation",
			initial:  []int{1, 2},
			bound:    3,
			wantOK:   true,
			want:     []int{1, 2},
			wantLine: "[3] (SUCCESS) Buffer set bound to 3",
		},
		{
			name:     "truncates to new bound",
			initial:  []int{1, 2, 3, 4, 5},
			bound:    2,
			wantOK:   true,
			want:     []int{1, 2},
			wantLine: "[6] (SUCCESS) Buffer set bound to 2 (truncated 3 elements)",
		},
		{
			name:     "truncates one",
			initial:  []int{1, 2},
			bound:    1,
			wantOK:   true,
			want:     []int{1},
			wantLine: "[3] (SUCCESS) Buffer set bound to 1 (truncated 1 element)",
		},
		{
			name:     "zero empties the queue",
			initial:  []int{9},
			bound:    0,
			wantOK:   true,
			want:     []int{},
			wantLine: "[2] (SUCCESS) Buffer set bound to 0 (truncated 1 element)",
		},
		{
			name:     "negative bound fails",
			initial:  []int{1, 2},
			bound:    -1,
			wantOK:   false,
			want:     []int{1, 2},
			wantLine: "[3] (FAIL) Buffer set bound to -1 - negative bound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := newTestLog()
			q := newTestQueue(log, "")
			for _, v := range tt.initial {
				require.True(t, q.PushBack(v))
			}

			assert.Equal(t, tt.wantOK, q.SetCapacity(tt.bound))
			assert.Equal(t, tt.want, q.Snapshot())

			last, ok := log.ReadLast()
			require.True(t, ok)
			assert.Equal(t, tt.wantLine, last)
		})
	}
}

func TestQueue_NegativeBoundKeepsCapacity(t *testing.T) {
	q := newTestQueue(newTestLog(), "", WithCapacity(4))

	err := q.TrySetCapacity(-3)
	assert.ErrorIs(t, err, ErrNegativeBound)

	limit, bounded := q.Capacity().Limit()
	assert.True(t, bounded)
	assert.Equal(t, 4, limit)
}

func TestQueue_SetUnbounded(t *testing.T) {
	log := newTestLog()
	q := newTestQueue(log, "", WithCapacity(1))

	require.True(t, q.PushBack(1))
	require.False(t, q.PushBack(2))
	require.True(t, q.SetUnbounded())
	assert.False(t, q.Capacity().IsBounded())

	for i := 2; i < 100; i++ {
		require.True(t, q.PushBack(i))
	}
	assert.Equal(t, 99, q.Len())
	assert.Contains(t, log.Snapshot(), "[3] (SUCCESS) Buffer set infinite bound")
}

func TestQueue_NameIsNormalized(t *testing.T) {
	// "e" followed by a combining acute accent composes to U+00E9
	q := newTestQueue(newTestLog(), "café")
	assert.Equal(t, "café", q.Name())

	require.True(t, q.PushBack(1))
	assert.Equal(t, int64(1), q.Seq())
}

func TestQueue_IDIsUUIDv7(t *testing.T) {
	a := newTestQueue(newTestLog(), "a")
	b := newTestQueue(newTestLog(), "a")

	id, err := uuid.Parse(a.ID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestQueue_InternalFault(t *testing.T) {
	var diag bytes.Buffer
	log := newTestLog()
	q := New(log, "q", WithDiagnostics(slog.New(slog.NewTextHandler(&diag, nil))))

	q.faultHook = func(op string) {
		if op == OpPush {
			panic("boom")
		}
	}
	err := q.TryPushBack(7)
	q.faultHook = nil

	require.Error(t, err)
	assert.True(t, IsInternal(err))
	assert.Equal(t, ErrCodeInternal, CodeOf(err))
	assert.Contains(t, diag.String(), "queue internal fault")
	assert.Contains(t, diag.String(), "boom")

	last, ok := log.ReadLast()
	require.True(t, ok)
	assert.Equal(t, "q: [1] (FAIL) Buffer write 7 - internal fault: boom", last)

	// Locks were released and the queue is unchanged
	assert.Empty(t, q.Snapshot())
	assert.True(t, q.PushBack(8))
	assert.Equal(t, []int{8}, q.Snapshot())
}

type opCounter struct {
	mu  sync.Mutex
	ops map[string]int
}

func (c *opCounter) QueueOp(queue, op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	outcome := "ok"
	if err != nil {
		outcome = string(CodeOf(err))
	}
	c.ops[queue+"/"+op+"/"+outcome]++
}

func TestQueue_ObserverSeesEveryOperation(t *testing.T) {
	obs := &opCounter{ops: map[string]int{}}
	q := newTestQueue(newTestLog(), "obs", WithObserver(obs), WithCapacity(1))

	q.PushBack(1)
	q.PushBack(2)
	q.PopFront()
	q.PopFront()
	q.SetCapacity(-1)
	q.SetUnbounded()

	assert.Equal(t, map[string]int{
		"obs/push/ok":                     1,
		"obs/push/QUEUE_FULL":             1,
		"obs/pop/ok":                      1,
		"obs/pop/QUEUE_EMPTY":             1,
		"obs/set_capacity/NEGATIVE_BOUND": 1,
		"obs/set_unbounded/ok":            1,
	}, obs.ops)
}

type panickingObserver struct{}

func (panickingObserver) QueueOp(string, string, error) { panic("counter exploded") }

func TestQueue_ObserverPanicIsContained(t *testing.T) {
	var diag bytes.Buffer
	log := newTestLog()
	q := New(log, "q",
		WithDiagnostics(slog.New(slog.NewTextHandler(&diag, nil))),
		WithObserver(panickingObserver{}),
	)

	var ok bool
	require.NotPanics(t, func() { ok = q.PushBack(1) })
	assert.True(t, ok)
	assert.Contains(t, diag.String(), "queue observer fault")
	assert.Contains(t, diag.String(), "counter exploded")

	last, found := log.ReadLast()
	require.True(t, found)
	assert.Equal(t, "q: [1] (SUCCESS) Buffer write 1", last)

	// Locks are free for the next operation
	v, ok := q.PopFront()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestQueue_ConcurrentOperations(t *testing.T) {
	log := newTestLog()
	queues := []*Queue{
		newTestQueue(log, "q1", WithCapacity(4)),
		newTestQueue(log, "q2", WithCapacity(8)),
	}
	const workers, opsPerWorker = 8, 300

	var (
		wg        sync.WaitGroup
		violation sync.Once
		violated  string
	)
	stop := make(chan struct{})

	// Checker observes elements and capacity atomically
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
				if limit, ok := c.Limit(); ok && len(elems) > limit {
					violation.Do(func() {
						violated = fmt.Sprintf("%s: %d elements with bound %d", q.Name(), len(elems), limit)
					})
				}
			}
		}
	}()

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w)))
			for i := 0; i < opsPerWorker; i++ {
				q := queues[rng.Intn(len(queues))]
				switch rng.Intn(10) {
				case 0:
					q.SetCapacity(rng.Intn(10))
				case 1, 2, 3, 4:
					q.PopFront()
				default:
					q.PushBack(i)
				}
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	<-checkerDone

	assert.Empty(t, violated)

	records := log.Snapshot()
	require.Len(t, records, workers*opsPerWorker)

	// Each queue's records appear in strictly increasing sequence order
	lastSeq := map[string]int64{}
	for _, line := range records {
		rec, err := ParseRecord(line)
		require.NoError(t, err)
		assert.Equal(t, lastSeq[rec.Name]+1, rec.Seq, "record %q", line)
		lastSeq[rec.Name] = rec.Seq
	}
	for _, q := range queues {
		assert.Equal(t, q.Seq(), lastSeq[q.Name()])
	}
}
