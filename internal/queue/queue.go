package queue

import (
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/synclog/internal/eventlog"
	"github.com/roach88/synclog/internal/seq"
)

// Operation names passed to observers and diagnostics.
const (
	OpPush         = "push"
	OpPop          = "pop"
	OpSetCapacity  = "set_capacity"
	OpSetUnbounded = "set_unbounded"
)

// Observer is notified after every mutating operation has been recorded.
// err is nil on success. A panicking observer is recovered and reported on
// the diagnostic logger.
type Observer interface {
	QueueOp(queue, op string, err error)
}

// Option configures a Queue.
type Option func(*Queue)

// WithCapacity sets the initial bound without writing a record.
// Negative values leave the queue unbounded.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n >= 0 {
			q.capacity = Bounded(n)
		}
	}
}

// WithObserver registers an observer for completed operations.
func WithObserver(o Observer) Option {
	return func(q *Queue) {
		q.observer = o
	}
}

// WithDiagnostics sets the logger that receives internal fault reports.
func WithDiagnostics(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.diag = logger
		}
	}
}

// Queue is a FIFO of integers with an optional capacity. Every mutating
// operation appends exactly one record to the shared event log.
//
// elemMu is always acquired before capMu and released after it.
type Queue struct {
	elemMu   sync.Mutex
	capMu    sync.Mutex
	elements []int
	capacity Capacity

	name string
	id   string
	log  *eventlog.Log
	seq  *seq.Counter

	diag     *slog.Logger
	observer Observer

	// faultHook runs inside the critical section before the operation body.
	// Tests use it to inject faults; it is nil otherwise.
	faultHook func(op string)
}

// New creates an empty, unbounded queue that records into log.
// The name is normalized to NFC; an empty name omits the record prefix.
func New(log *eventlog.Log, name string, opts ...Option) *Queue {
	q := &Queue{
		capacity: Unbounded(),
		name:     norm.NFC.String(name),
		id:       uuid.Must(uuid.NewV7()).String(),
		log:      log,
		seq:      seq.NewCounter(),
		diag:     slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Name returns the normalized queue name.
func (q *Queue) Name() string { return q.name }

// ID returns the queue's UUIDv7 identifier.
func (q *Queue) ID() string { return q.id }

// Seq returns the sequence number of the most recent record.
func (q *Queue) Seq() int64 { return q.seq.Current() }

// PushBack appends value if capacity allows. It returns false when the
// queue is full or an internal fault occurred.
func (q *Queue) PushBack(value int) bool {
	return q.TryPushBack(value) == nil
}

// TryPushBack is PushBack with the failure cause.
func (q *Queue) TryPushBack(value int) error {
	err := q.locked(OpPush, func() error {
		if !q.capacity.Allows(len(q.elements)) {
			return ErrQueueFull
		}
		q.elements = append(q.elements, value)
		return nil
	})
	q.emit(OpPush, pushAction(value), err)
	return err
}

// PopFront removes and returns the oldest element. ok is false when the
// queue is empty or an internal fault occurred.
func (q *Queue) PopFront() (value int, ok bool) {
	value, err := q.TryPopFront()
	return value, err == nil
}

// TryPopFront is PopFront with the failure cause.
func (q *Queue) TryPopFront() (int, error) {
	var value int
	err := q.locked(OpPop, func() error {
		if len(q.elements) == 0 {
			return ErrQueueEmpty
		}
		v := q.elements[0]
		q.elements = q.elements[1:]
		if len(q.elements) == 0 {
			q.elements = nil
		}
		value = v
		return nil
	})
	q.emit(OpPop, popAction(value, err == nil), err)
	if err != nil {
		return 0, err
	}
	return value, nil
}

// SetCapacity bounds the queue to n elements. Elements beyond the new bound
// are dropped from the back in the same step. Negative n fails and leaves
// the queue unchanged.
func (q *Queue) SetCapacity(n int) bool {
	return q.TrySetCapacity(n) == nil
}

// TrySetCapacity is SetCapacity with the failure cause.
func (q *Queue) TrySetCapacity(n int) error {
	truncated := 0
	err := q.locked(OpSetCapacity, func() error {
		if n < 0 {
			return ErrNegativeBound
		}
		if extra := len(q.elements) - n; extra > 0 {
			q.elements = q.elements[:n]
			truncated = extra
		}
		q.capacity = Bounded(n)
		return nil
	})
	q.emit(OpSetCapacity, setCapacityAction(n, truncated), err)
	return err
}

// SetUnbounded removes the capacity limit.
func (q *Queue) SetUnbounded() bool {
	return q.TrySetUnbounded() == nil
}

// TrySetUnbounded is SetUnbounded with the failure cause.
func (q *Queue) TrySetUnbounded() error {
	err := q.locked(OpSetUnbounded, func() error {
		q.capacity = Unbounded()
		return nil
	})
	q.emit(OpSetUnbounded, setUnboundedAction, err)
	return err
}

// Len returns the number of queued elements.
func (q *Queue) Len() int {
	n := 0
	_ = q.locked("len", func() error {
		n = len(q.elements)
		return nil
	})
	return n
}

// Capacity returns the current bound.
func (q *Queue) Capacity() Capacity {
	c := Unbounded()
	_ = q.locked("capacity", func() error {
		c = q.capacity
		return nil
	})
	return c
}

// Snapshot returns a copy of the queued elements, oldest first.
func (q *Queue) Snapshot() []int {
	elems, _ := q.State()
	return elems
}

// State returns the elements and capacity observed in one critical section.
func (q *Queue) State() ([]int, Capacity) {
	var (
		elems []int
		c     Capacity
	)
	_ = q.locked("state", func() error {
		elems = make([]int, len(q.elements))
		copy(elems, q.elements)
		c = q.capacity
		return nil
	})
	return elems, c
}

// locked runs fn holding both locks. A panic inside fn is converted into an
// internal error after the state has been left as fn left it.
func (q *Queue) locked(op string, fn func() error) (err error) {
	q.elemMu.Lock()
	defer q.elemMu.Unlock()
	q.capMu.Lock()
	defer q.capMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = NewInternalError(r)
		}
	}()
	if q.faultHook != nil {
		q.faultHook(op)
	}
	return fn()
}

// emit writes the operation's record. It runs after the queue locks are
// released; the sequence lock is held across the append so one queue's
// records reach the log in sequence order.
func (q *Queue) emit(op, action string, err error) {
	if IsInternal(err) {
		q.diag.Error("queue internal fault",
			"queue", q.name,
			"queue_id", q.id,
			"op", op,
			"error", err,
		)
	}
	q.seq.NextWith(func(n int64) {
		q.log.Append(FormatRecord(q.name, n, action, err))
	})
	q.notify(op, err)
}

// notify reports the operation to the observer. The record is already in the
// log, so an observer panic is only reported.
func (q *Queue) notify(op string, err error) {
	if q.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			q.diag.Error("queue observer fault",
				"queue", q.name,
				"queue_id", q.id,
				"op", op,
				"error", NewInternalError(r),
			)
		}
	}()
	q.observer.QueueOp(q.name, op, err)
}
