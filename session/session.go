// Package session models the database session a statement executes under:
// identity, autocommit mode, and explicit transaction boundaries. The
// actual connection handling is delegated to a Driver.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stmtflow/stmtflow/backend"
)

// Driver binds a Session to a concrete database: it produces execution
// backends and carries out transaction control.
type Driver interface {
	NewBackend() (backend.Backend, error)
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close() error
}

// Session is a logical database session. It tracks whether an explicit
// transaction is in progress; the statement façade consults that state
// before deciding to auto-begin one.
type Session struct {
	id         uuid.UUID
	driver     Driver
	autocommit bool
	inTx       bool
}

// Option configures a Session.
type Option func(*Session)

// WithAutocommit sets the session's autocommit mode. An autocommit session
// never gets an implicitly started transaction.
func WithAutocommit(on bool) Option {
	return func(s *Session) { s.autocommit = on }
}

// New creates a Session over the given driver.
func New(driver Driver, opts ...Option) *Session {
	s := &Session{
		id:     uuid.New(),
		driver: driver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identity.
func (s *Session) ID() uuid.UUID { return s.id }

// Autocommit reports the autocommit mode.
func (s *Session) Autocommit() bool { return s.autocommit }

// SetAutocommit changes the autocommit mode.
func (s *Session) SetAutocommit(on bool) { s.autocommit = on }

// InTransaction reports whether an explicit transaction is in progress.
func (s *Session) InTransaction() bool { return s.inTx }

// NewBackend produces a fresh execution backend bound to this session.
func (s *Session) NewBackend() (backend.Backend, error) {
	return s.driver.NewBackend()
}

// Begin starts a transaction.
func (s *Session) Begin(ctx context.Context) error {
	if s.inTx {
		return fmt.Errorf("session %s: transaction already in progress", s.id)
	}
	if err := s.driver.Begin(ctx); err != nil {
		return err
	}
	s.inTx = true
	return nil
}

// Commit commits the open transaction.
func (s *Session) Commit(ctx context.Context) error {
	if !s.inTx {
		return fmt.Errorf("session %s: no transaction in progress", s.id)
	}
	if err := s.driver.Commit(ctx); err != nil {
		return err
	}
	s.inTx = false
	return nil
}

// Rollback rolls back the open transaction.
func (s *Session) Rollback(ctx context.Context) error {
	if !s.inTx {
		return fmt.Errorf("session %s: no transaction in progress", s.id)
	}
	if err := s.driver.Rollback(ctx); err != nil {
		return err
	}
	s.inTx = false
	return nil
}

// Close releases the driver. An open transaction is rolled back first.
func (s *Session) Close() error {
	if s.inTx {
		_ = s.driver.Rollback(context.Background())
		s.inTx = false
	}
	return s.driver.Close()
}
