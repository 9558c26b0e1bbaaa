package stmt

import "errors"

var (
	// ErrModeConflict reports an illegal configuration mix: bulk and
	// row-at-a-time resources on the same statement, bulk-by-limit without
	// a limit, or a storage change while extraction buffers exist.
	ErrModeConflict = errors.New("mode conflict")

	// ErrRangeUnderflow reports an execution step that fetched fewer rows
	// than the lower bound of the configured range.
	ErrRangeUnderflow = errors.New("fetched row count below lower range bound")
)
