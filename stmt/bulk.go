package stmt

import "fmt"

// SetBulk switches the statement to bulk (collection-at-a-time) mode.
// Bulk and row-at-a-time resources are mutually exclusive: the statement
// must not have any bindings or extractions registered yet.
func (s *Statement) SetBulk() error {
	if s.binds.len() > 0 || s.extracts.total() > 0 {
		return fmt.Errorf("%w: bulk mode requires no registered bindings or extractions", ErrModeConflict)
	}
	s.bulk = true
	return nil
}

// SetBulkByLimit switches to bulk mode sized by the statement's limit,
// which must already be set.
func (s *Statement) SetBulkByLimit() error {
	if s.pager.upper.Unlimited() {
		return fmt.Errorf("%w: bulk-by-limit requires a limit to size the batch", ErrModeConflict)
	}
	return s.SetBulk()
}

// BulkMode reports whether the statement is in bulk mode.
func (s *Statement) BulkMode() bool { return s.bulk }

// checkBindMode verifies that a resource's bulk flag agrees with the
// statement's mode.
func (s *Statement) checkBindMode(bulk bool, what, name string) error {
	if s.bulk && !bulk {
		return fmt.Errorf("%w: row-at-a-time %s %q on a bulk statement", ErrModeConflict, what, name)
	}
	if !s.bulk && bulk {
		return fmt.Errorf("%w: bulk %s %q on a row-at-a-time statement", ErrModeConflict, what, name)
	}
	return nil
}
