package eventlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/synclog/internal/rwlock"
)

// Observer is notified after every successful write with the resulting
// number of records. It is called while the write lock is held, so calls
// arrive in write order; it must not call back into the Log. A panicking
// observer is reported as an internal fault and the write stays applied.
type Observer interface {
	LogSizeChanged(records int)
}

// Option configures a Log.
type Option func(*Log)

// WithDiagnostics sets the logger that receives internal fault reports.
// A nil logger keeps the default stderr text logger.
func WithDiagnostics(logger *slog.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.diag = logger
		}
	}
}

// WithObserver registers an observer for log size changes.
func WithObserver(o Observer) Option {
	return func(l *Log) {
		l.observer = o
	}
}

// Log is an append-only, concurrency-safe sequence of text records.
type Log struct {
	lock    rwlock.RWMutex
	records []string
	notify  chan struct{}

	diag     *slog.Logger
	observer Observer

	// faultHook runs inside every critical section before the operation body.
	// Tests use it to inject faults; it is nil otherwise.
	faultHook func(op string)
}

// New creates an empty log.
func New(opts ...Option) *Log {
	l := &Log{
		notify: make(chan struct{}),
		diag:   slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FaultError describes a panic recovered inside a critical section.
type FaultError struct {
	Op    string
	Cause any
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("eventlog: internal fault during %s: %v", e.Op, e.Cause)
}

// Append adds message at the end of the log. If an internal fault occurs the
// message is dropped and the fault is reported on the diagnostic logger.
func (l *Log) Append(message string) {
	_ = l.write("append", true, func() {
		l.records = append(l.records, message)
	})
}

// Clear atomically removes every record.
func (l *Log) Clear() {
	_ = l.write("clear", false, func() {
		l.records = nil
	})
}

// ReadAt returns the record at index. found is false when index is outside
// [0, Len()).
func (l *Log) ReadAt(index int) (message string, found bool) {
	err := l.read("read_at", func() {
		message, found = l.at(index)
	})
	if err != nil {
		return "", false
	}
	return message, found
}

// ReadLast returns the most recent record. found is false on an empty log.
func (l *Log) ReadLast() (message string, found bool) {
	err := l.read("read_last", func() {
		message, found = l.at(len(l.records) - 1)
	})
	if err != nil {
		return "", false
	}
	return message, found
}

// ReadAll returns every record in order, each followed by a line break.
// It returns the empty string for an empty log or on an internal fault.
func (l *Log) ReadAll() string {
	var out string
	err := l.read("read_all", func() {
		size := 0
		for _, r := range l.records {
			size += len(r) + 1
		}
		var b strings.Builder
		b.Grow(size)
		for _, r := range l.records {
			b.WriteString(r)
			b.WriteByte('\n')
		}
		out = b.String()
	})
	if err != nil {
		return ""
	}
	return out
}

// Len returns the number of records.
func (l *Log) Len() int {
	var n int
	if err := l.read("len", func() { n = len(l.records) }); err != nil {
		return 0
	}
	return n
}

// Snapshot returns a copy of all records. The caller owns the slice.
func (l *Log) Snapshot() []string {
	var out []string
	err := l.read("snapshot", func() {
		out = make([]string, len(l.records))
		copy(out, l.records)
	})
	if err != nil {
		return nil
	}
	return out
}

// WaitForAppend blocks until the next successful Append or until ctx is done.
// It returns true if woken by an append.
func (l *Log) WaitForAppend(ctx context.Context) bool {
	var ch chan struct{}
	l.lock.Read(func() { ch = l.notify })

	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

func (l *Log) at(index int) (string, bool) {
	if index < 0 || index >= len(l.records) {
		return "", false
	}
	return l.records[index], true
}

// write runs mutate under exclusive access. Waiters are woken only when wake
// is set and the mutation succeeded.
func (l *Log) write(op string, wake bool, mutate func()) error {
	var err error
	l.lock.Write(func() {
		err = l.guard(op, func() {
			mutate()
			if wake {
				close(l.notify)
				l.notify = make(chan struct{})
			}
			if l.observer != nil {
				l.observer.LogSizeChanged(len(l.records))
			}
		})
	})
	if err != nil {
		l.report(op, err)
	}
	return err
}

func (l *Log) read(op string, fn func()) error {
	var err error
	l.lock.Read(func() {
		err = l.guard(op, fn)
	})
	if err != nil {
		l.report(op, err)
	}
	return err
}

// guard runs fn and converts a panic into a *FaultError.
func (l *Log) guard(op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Op: op, Cause: r}
		}
	}()
	if l.faultHook != nil {
		l.faultHook(op)
	}
	fn()
	return nil
}

func (l *Log) report(op string, err error) {
	l.diag.Error("event log internal fault", "op", op, "error", err)
}
