package stmt

import "fmt"

// LimitUnlimited is the limit value that disables row capping.
const LimitUnlimited uint64 = 0

// Limit caps the number of rows one execution step may fetch. The zero
// value is unlimited. A hard limit additionally treats backend delivery
// past the cap as an error; a soft limit just pauses the statement.
type Limit struct {
	value uint64
	hard  bool
}

// NewLimit creates a soft limit of v rows. v == LimitUnlimited disables
// the limit.
func NewLimit(v uint64) Limit {
	return Limit{value: v}
}

// NewHardLimit creates a hard limit of v rows.
func NewHardLimit(v uint64) Limit {
	return Limit{value: v, hard: true}
}

// Value returns the row cap, LimitUnlimited meaning none.
func (l Limit) Value() uint64 { return l.value }

// Hard reports whether the limit is hard.
func (l Limit) Hard() bool { return l.hard }

// Unlimited reports whether the limit is disabled.
func (l Limit) Unlimited() bool { return l.value == LimitUnlimited }

// Range pairs a lower and an upper Limit to control prefetch sizing: each
// execution step fetches at most Upper rows and must deliver at least
// Lower rows.
type Range struct {
	lower Limit
	upper Limit
}

// NewRange creates a range. The upper bound may be hard; a zero upper
// bound means unlimited.
func NewRange(lower, upper uint64, hardUpper bool) (Range, error) {
	if upper != LimitUnlimited && lower > upper {
		return Range{}, fmt.Errorf("range lower bound %d exceeds upper bound %d", lower, upper)
	}
	r := Range{lower: NewLimit(lower), upper: NewLimit(upper)}
	if hardUpper {
		r.upper = NewHardLimit(upper)
	}
	return r, nil
}

// Lower returns the lower bound.
func (r Range) Lower() Limit { return r.lower }

// Upper returns the upper bound.
func (r Range) Upper() Limit { return r.upper }
