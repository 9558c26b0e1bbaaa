package stmt

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WaitForever is the Wait timeout sentinel meaning "block indefinitely".
const WaitForever int64 = -1

// Result is the one-shot, waitable handle of an asynchronous execution. A
// dispatched job always runs to completion; a timed-out wait leaves it
// untouched and the handle may be waited on again.
type Result struct {
	done chan struct{}
	once sync.Once
	rows uint64
	err  error
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

func (r *Result) complete(rows uint64, err error) {
	r.once.Do(func() {
		r.rows = rows
		r.err = err
		close(r.done)
	})
}

// Completed reports whether the job has finished.
func (r *Result) Completed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// TryWait blocks until the job completes or millis milliseconds elapse.
// A negative timeout blocks indefinitely. It returns whether the job
// completed.
func (r *Result) TryWait(millis int64) bool {
	if millis < 0 {
		<-r.done
		return true
	}
	select {
	case <-r.done:
		return true
	case <-time.After(time.Duration(millis) * time.Millisecond):
		return false
	}
}

// Rows returns the row/affected count. Valid only after completion.
func (r *Result) Rows() uint64 { return r.rows }

// Err returns the execution error, if any. Valid only after completion.
func (r *Result) Err() error { return r.err }

// ExecuteAsync runs one execution step on the statement's worker and
// returns its waitable handle. Executing asynchronously does not alter the
// statement's stored async flag. At most one job is outstanding per
// statement: dispatching while a previous job runs first waits it out.
func (s *Statement) ExecuteAsync(ctx context.Context, resetBuffers bool) *Result {
	return s.dispatch(ctx, resetBuffers)
}

func (s *Statement) dispatch(ctx context.Context, resetBuffers bool) *Result {
	s.synchronize()

	r := newResult()
	s.mu.Lock()
	s.result = r
	s.mu.Unlock()

	go func() {
		n, err := s.doExecute(ctx, resetBuffers)
		if err != nil {
			err = fmt.Errorf("statement %s: %w", s.id, err)
		}
		r.complete(n, err)
	}()
	return r
}

// Wait blocks until the outstanding asynchronous job completes or the
// timeout elapses; WaitForever blocks indefinitely. It returns the
// row/affected count, whether the job completed (an elapsed timeout is not
// an error; re-waiting is allowed), and the job's execution error. For a
// statement with no outstanding job it returns (0, true, nil).
func (s *Statement) Wait(millis int64) (uint64, bool, error) {
	s.mu.Lock()
	r := s.result
	s.mu.Unlock()
	if r == nil {
		return 0, true, nil
	}
	if !r.TryWait(millis) {
		return 0, false, nil
	}
	return r.Rows(), true, r.Err()
}

// synchronize waits out any outstanding asynchronous execution.
func (s *Statement) synchronize() {
	s.mu.Lock()
	r := s.result
	s.mu.Unlock()
	if r != nil {
		r.TryWait(WaitForever)
	}
}
