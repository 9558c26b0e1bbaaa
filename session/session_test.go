package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stmtflow/stmtflow/backend"
)

func newMemorySession(opts ...Option) (*Session, *MemoryDriver) {
	drv := NewMemoryDriver(func() backend.Backend { return backend.NewMemory() })
	return New(drv, opts...), drv
}

func TestSessionDefaults(t *testing.T) {
	sess, _ := newMemorySession()
	assert.False(t, sess.Autocommit())
	assert.False(t, sess.InTransaction())
	assert.NotEqual(t, "", sess.ID().String())
}

func TestSessionAutocommitOption(t *testing.T) {
	sess, _ := newMemorySession(WithAutocommit(true))
	assert.True(t, sess.Autocommit())

	sess.SetAutocommit(false)
	assert.False(t, sess.Autocommit())
}

func TestSessionTransactionLifecycle(t *testing.T) {
	sess, drv := newMemorySession()
	ctx := context.Background()

	require.NoError(t, sess.Begin(ctx))
	assert.True(t, sess.InTransaction())
	assert.Error(t, sess.Begin(ctx))

	require.NoError(t, sess.Commit(ctx))
	assert.False(t, sess.InTransaction())
	assert.Error(t, sess.Commit(ctx))
	assert.Error(t, sess.Rollback(ctx))

	require.NoError(t, sess.Begin(ctx))
	require.NoError(t, sess.Rollback(ctx))
	assert.False(t, sess.InTransaction())

	assert.Equal(t, 2, drv.BeginCount())
	assert.Equal(t, 1, drv.CommitCount())
	assert.Equal(t, 1, drv.RollbackCount())
}

func TestSessionBeginFailureLeavesState(t *testing.T) {
	sess, drv := newMemorySession()
	drv.FailBeginWith(assert.AnError)

	require.ErrorIs(t, sess.Begin(context.Background()), assert.AnError)
	assert.False(t, sess.InTransaction())
}

func TestSessionCloseRollsBackOpenTransaction(t *testing.T) {
	sess, drv := newMemorySession()
	require.NoError(t, sess.Begin(context.Background()))
	require.NoError(t, sess.Close())
	assert.False(t, sess.InTransaction())
	assert.Equal(t, 1, drv.RollbackCount())
}

func TestSessionNewBackend(t *testing.T) {
	sess, _ := newMemorySession()
	be, err := sess.NewBackend()
	require.NoError(t, err)
	assert.NotNil(t, be)

	empty := New(NewMemoryDriver(nil))
	_, err = empty.NewBackend()
	assert.Error(t, err)
}
