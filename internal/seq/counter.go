// Package seq provides the monotonic sequence counter used to tag records.
package seq

import "sync"

// Counter is a mutex-guarded monotonic counter.
//
// The first value issued by NextWith is 1. Counter is safe for concurrent use and
// its lock is independent of any lock held by the owner of the counter.
type Counter struct {
	mu  sync.Mutex
	seq int64
}

// NewCounter creates a counter starting at 0.
func NewCounter() *Counter {
	return &Counter{}
}

// NextWith increments the counter and calls publish with the new value
// before releasing the counter's lock.
//
// Publishing under the lock keeps the order in which values are published
// identical to the order in which they were issued. publish must not call
// back into the same Counter.
func (c *Counter) NextWith(publish func(seq int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	publish(c.seq)
}

// Current returns the last issued sequence number without incrementing.
func (c *Counter) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
