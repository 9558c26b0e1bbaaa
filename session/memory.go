package session

import (
	"context"
	"errors"
	"sync"

	"github.com/stmtflow/stmtflow/backend"
)

// MemoryDriver is a Driver for tests and embedded use. Backends come from a
// caller-supplied factory (typically producing backend.Memory instances),
// and transaction control is pure bookkeeping with queryable counters.
type MemoryDriver struct {
	mu      sync.Mutex
	factory func() backend.Backend

	begins    int
	commits   int
	rollbacks int
	beginErr  error
}

// NewMemoryDriver creates a MemoryDriver whose backends come from factory.
func NewMemoryDriver(factory func() backend.Backend) *MemoryDriver {
	return &MemoryDriver{factory: factory}
}

// FailBeginWith makes subsequent Begin calls return err.
func (d *MemoryDriver) FailBeginWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.beginErr = err
}

// NewBackend implements Driver.
func (d *MemoryDriver) NewBackend() (backend.Backend, error) {
	if d.factory == nil {
		return nil, errors.New("memory driver: no backend factory")
	}
	return d.factory(), nil
}

// Begin implements Driver.
func (d *MemoryDriver) Begin(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.beginErr != nil {
		return d.beginErr
	}
	d.begins++
	return nil
}

// Commit implements Driver.
func (d *MemoryDriver) Commit(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commits++
	return nil
}

// Rollback implements Driver.
func (d *MemoryDriver) Rollback(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rollbacks++
	return nil
}

// Close implements Driver.
func (d *MemoryDriver) Close() error { return nil }

// BeginCount returns the number of transactions started.
func (d *MemoryDriver) BeginCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.begins
}

// CommitCount returns the number of commits.
func (d *MemoryDriver) CommitCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commits
}

// RollbackCount returns the number of rollbacks.
func (d *MemoryDriver) RollbackCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rollbacks
}

var _ Driver = (*MemoryDriver)(nil)
