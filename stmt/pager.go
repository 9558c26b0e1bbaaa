package stmt

import "fmt"

// State is the execution state of a statement.
type State int

const (
	// Initialized means the statement has not executed yet.
	Initialized State = iota
	// Paused means a limit stopped fetching with rows still available.
	Paused
	// Done is terminal: the result was exhausted, or the statement ran
	// unlimited.
	Done
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Paused:
		return "paused"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// pager enforces the row limit or range across repeated execution calls
// and owns the Initialized/Paused/Done state machine.
type pager struct {
	upper Limit
	lower Limit
	state State
}

// setLimit installs a plain limit, clearing any range lower bound.
func (p *pager) setLimit(l Limit) {
	p.upper = l
	p.lower = Limit{}
}

// setRange installs a prefetch range.
func (p *pager) setRange(r Range) {
	p.upper = r.Upper()
	p.lower = r.Lower()
}

// ceiling returns the per-call fetch cap, 0 meaning unbounded.
func (p *pager) ceiling() uint64 {
	return p.upper.Value()
}

// observe applies the transition rule for one completed execution step.
// An unlimited statement is always Done after one call; a limited one
// pauses while the backend reports more rows.
func (p *pager) observe(fetched uint64, more bool) error {
	if p.upper.Unlimited() || !more {
		p.state = Done
	} else {
		p.state = Paused
	}
	if lv := p.lower.Value(); lv != LimitUnlimited && fetched < lv {
		return fmt.Errorf("%w: fetched %d, lower bound %d", ErrRangeUnderflow, fetched, lv)
	}
	return nil
}

// reset returns the state machine to Initialized. Limits survive.
func (p *pager) reset() {
	p.state = Initialized
}
