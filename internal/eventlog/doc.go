// Package eventlog implements an in-memory, append-only log of text records.
//
// # Overview
//
// A Log is an ordered sequence of records, 0-indexed in insertion order. Once a
// record is visible to a reader its content and position never change; Clear is
// the only operation that removes records, and it removes all of them at once.
//
// Access is mediated by rwlock.RWMutex: any number of readers proceed together,
// a single writer excludes everyone, and a pending writer blocks new readers at
// the turnstile so it cannot be starved.
//
// API surface
//
//	l := eventlog.New(eventlog.WithDiagnostics(logger))
//	l.Append("[1] (SUCCESS) Buffer write 1")
//
//	msg, ok := l.ReadAt(0)
//	last, ok := l.ReadLast()
//	all := l.ReadAll() // one record per line, each terminated by "\n"
//
//	// Block until the next append or until ctx is done
//	woke := l.WaitForAppend(ctx)
//
//	l.Clear()
//
// # Faults
//
// No operation panics or returns an error to its caller. A panic raised inside
// a critical section is recovered before the lock is released. Once outside the
// lock it is reported on the diagnostic logger and becomes the operation's
// failure value. Append drops the message; reads report not found or return
// the empty string.
//
// A Log is meant to be shared by pointer between any number of queues and
// direct callers; it never refers back to them.
package eventlog
