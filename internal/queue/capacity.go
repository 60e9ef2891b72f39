package queue

import "strconv"

// Capacity is either unbounded or a non-negative element limit.
// The zero value is a bound of 0; use Unbounded for no limit.
type Capacity struct {
	limit     int
	unbounded bool
}

// Unbounded returns a capacity without a limit.
func Unbounded() Capacity {
	return Capacity{unbounded: true}
}

// Bounded returns a capacity of n elements. n must be non-negative.
func Bounded(n int) Capacity {
	return Capacity{limit: n}
}

// IsBounded reports whether a limit applies.
func (c Capacity) IsBounded() bool {
	return !c.unbounded
}

// Limit returns the element limit and whether one applies.
func (c Capacity) Limit() (int, bool) {
	if c.unbounded {
		return 0, false
	}
	return c.limit, true
}

// Allows reports whether one more element fits after length elements.
func (c Capacity) Allows(length int) bool {
	return c.unbounded || length < c.limit
}

func (c Capacity) String() string {
	if c.unbounded {
		return "unbounded"
	}
	return strconv.Itoa(c.limit)
}
