package session

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stmtflow/stmtflow/backend"
	"github.com/stmtflow/stmtflow/dialect"
)

// PgxDriver is a Driver over a pgx connection pool. While a transaction is
// open every backend query routes through it; otherwise queries go straight
// to the pool. The pool itself is owned by the connector that created it,
// not by the driver.
type PgxDriver struct {
	pool *pgxpool.Pool
	d    dialect.Dialect

	mu sync.Mutex
	tx pgx.Tx
}

// NewPgxDriver creates a PgxDriver over pool.
func NewPgxDriver(pool *pgxpool.Pool) *PgxDriver {
	return &PgxDriver{
		pool: pool,
		d:    dialect.NewPostgres(),
	}
}

// NewBackend implements Driver.
func (p *PgxDriver) NewBackend() (backend.Backend, error) {
	return backend.NewPgx(p, p.d), nil
}

// Query implements backend.Queryer.
func (p *PgxDriver) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.mu.Lock()
	tx := p.tx
	p.mu.Unlock()
	if tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return p.pool.Query(ctx, sql, args...)
}

// SendBatch implements backend.Queryer.
func (p *PgxDriver) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	p.mu.Lock()
	tx := p.tx
	p.mu.Unlock()
	if tx != nil {
		return tx.SendBatch(ctx, b)
	}
	return p.pool.SendBatch(ctx, b)
}

// Begin implements Driver.
func (p *PgxDriver) Begin(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tx != nil {
		return errors.New("pgx driver: transaction already open")
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	p.tx = tx
	return nil
}

// Commit implements Driver.
func (p *PgxDriver) Commit(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tx == nil {
		return errors.New("pgx driver: no open transaction")
	}
	err := p.tx.Commit(ctx)
	p.tx = nil
	return err
}

// Rollback implements Driver.
func (p *PgxDriver) Rollback(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tx == nil {
		return errors.New("pgx driver: no open transaction")
	}
	err := p.tx.Rollback(ctx)
	p.tx = nil
	return err
}

// Close implements Driver. It rolls back any open transaction; the pool is
// left to its owner.
func (p *PgxDriver) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tx != nil {
		err := p.tx.Rollback(context.Background())
		p.tx = nil
		return err
	}
	return nil
}

var _ Driver = (*PgxDriver)(nil)
var _ backend.Queryer = (*PgxDriver)(nil)
