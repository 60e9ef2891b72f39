// Package rwlock implements a reader/writer lock whose readers pass through a
// turnstile before being admitted.
//
// Readers already inside never block each other. A writer first takes the
// turnstile and holds it for the whole write, so every reader that arrives
// after it queues at the turnstile instead of joining the readers in flight.
// The writer therefore waits at most for the readers that were already
// admitted, never for an unbounded stream of new ones.
//
// Lock order is always turnstile, then writeLock. The write lock is taken by
// the first reader in and released by the last reader out, which may be a
// different goroutine; sync.Mutex permits that.
package rwlock

import "sync"

// RWMutex is a writer-starvation-free reader/writer lock.
// The zero value is an unlocked mutex. It must not be copied after first use.
type RWMutex struct {
	turnstile sync.Mutex
	writeLock sync.Mutex
	countLock sync.Mutex
	readers   int
}

// Lock acquires exclusive access, blocking new readers at the turnstile
// while waiting for admitted readers to drain.
func (m *RWMutex) Lock() {
	m.turnstile.Lock()
	m.writeLock.Lock()
}

// Unlock releases exclusive access. The turnstile is released last so that
// the write is complete before any queued reader is admitted.
func (m *RWMutex) Unlock() {
	m.writeLock.Unlock()
	m.turnstile.Unlock()
}

// RLock acquires shared access.
func (m *RWMutex) RLock() {
	// Admission gate: wait behind any writer currently holding the turnstile.
	m.turnstile.Lock()
	m.turnstile.Unlock()

	m.countLock.Lock()
	defer m.countLock.Unlock()
	m.readers++
	if m.readers == 1 {
		m.writeLock.Lock()
	}
}

// RUnlock releases shared access. It panics if no reader holds the lock.
func (m *RWMutex) RUnlock() {
	m.countLock.Lock()
	defer m.countLock.Unlock()
	if m.readers == 0 {
		panic("rwlock: RUnlock of unlocked RWMutex")
	}
	m.readers--
	if m.readers == 0 {
		m.writeLock.Unlock()
	}
}

// Read runs fn with shared access held. The lock is released even if fn panics.
func (m *RWMutex) Read(fn func()) {
	m.RLock()
	defer m.RUnlock()
	fn()
}

// Write runs fn with exclusive access held. The lock is released even if fn panics.
func (m *RWMutex) Write(fn func()) {
	m.Lock()
	defer m.Unlock()
	fn()
}

// Readers returns the number of readers currently admitted.
func (m *RWMutex) Readers() int {
	m.countLock.Lock()
	defer m.countLock.Unlock()
	return m.readers
}
