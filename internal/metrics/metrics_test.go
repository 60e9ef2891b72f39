package metrics

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/synclog/internal/eventlog"
	"github.com/roach88/synclog/internal/queue"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "queue_full", Outcome(queue.ErrQueueFull))
	assert.Equal(t, "queue_empty", Outcome(queue.ErrQueueEmpty))
	assert.Equal(t, "negative_bound", Outcome(queue.ErrNegativeBound))
	assert.Equal(t, "internal", Outcome(queue.NewInternalError("x")))
	assert.Equal(t, "error", Outcome(errors.New("other")))
}

func TestRecorder_WiredIntoLogAndQueue(t *testing.T) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := NewRecorder()

	log := eventlog.New(eventlog.WithDiagnostics(discard), eventlog.WithObserver(rec))
	q := queue.New(log, "b1",
		queue.WithDiagnostics(discard),
		queue.WithObserver(rec),
		queue.WithCapacity(1),
	)

	q.PushBack(1)
	q.PushBack(2)
	q.PopFront()
	q.PopFront()

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.QueueOps.WithLabelValues("b1", queue.OpPush, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.QueueOps.WithLabelValues("b1", queue.OpPush, "queue_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.QueueOps.WithLabelValues("b1", queue.OpPop, "queue_empty")))
	assert.Equal(t, 4.0, testutil.ToFloat64(rec.LogRecords))

	log.Clear()
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.LogRecords))
}

func TestRecorder_Snapshot(t *testing.T) {
	rec := NewRecorder()
	rec.QueueOp("b", queue.OpPop, nil)
	rec.QueueOp("a", queue.OpPush, nil)
	rec.QueueOp("a", queue.OpPush, nil)
	rec.QueueOp("a", queue.OpPush, queue.ErrQueueFull)
	rec.LogSizeChanged(4)

	samples, err := rec.Snapshot()
	require.NoError(t, err)

	require.Len(t, samples, 4)
	assert.Equal(t, LogRecords, samples[0].Name)
	assert.Equal(t, 4.0, samples[0].Value)
	assert.Empty(t, samples[0].Labels)

	// Label sets sort by op first, so pop precedes push
	assert.Equal(t, QueueOpsTotal, samples[1].Name)
	assert.Equal(t, map[string]string{"queue": "b", "op": "pop", "outcome": "success"}, samples[1].Labels)
	assert.Equal(t, map[string]string{"queue": "a", "op": "push", "outcome": "queue_full"}, samples[2].Labels)

	assert.Equal(t, 4.0, Total(samples, QueueOpsTotal, nil))
	assert.Equal(t, 3.0, Total(samples, QueueOpsTotal, map[string]string{"queue": "a"}))
	assert.Equal(t, 2.0, Total(samples, QueueOpsTotal, map[string]string{"queue": "a", "outcome": "success"}))
}

func TestRecorder_IndependentRegistries(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()
	a.QueueOp("q", queue.OpPush, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.QueueOps.WithLabelValues("q", queue.OpPush, "success")))
	assert.Equal(t, 0, testutil.CollectAndCount(b.QueueOps))
}
