// Package queue implements a bounded FIFO of integers that records every
// operation in a shared eventlog.Log.
//
// Each of PushBack, PopFront, SetCapacity and SetUnbounded appends exactly one
// record, success or failure:
//
//	[<name>: ][<seq>] (SUCCESS|FAIL) <action>[ - <reason>]
//
// Sequence numbers are per queue, start at 1 and increase by one per record.
// Records of one queue appear in the log in sequence order; records of
// different queues sharing a log may interleave.
//
// A queue guards its elements and its capacity with two mutexes that are always
// taken together in a fixed order, so the bound invariant (length never exceeds
// the capacity when bounded) holds at every observable point. The record is
// written after both are released.
//
// Operations never block waiting for space or elements. A full queue rejects
// pushes and an empty queue rejects pops.
package queue
