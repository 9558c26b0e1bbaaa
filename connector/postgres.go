package connector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stmtflow/stmtflow/session"
)

func init() {
	Register("postgres", postgresProvider{})
}

type postgresProvider struct{}

// Connect implements Provider.
func (postgresProvider) Connect(ctx context.Context, cfg Config) (Connection, error) {
	p := &PostgresConnection{config: cfg}
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := p.connect(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// PostgresConnection is a Connection over a pgx connection pool.
type PostgresConnection struct {
	config Config
	pool   *pgxpool.Pool
}

// connect establishes the pool.
func (p *PostgresConnection) connect(ctx context.Context) error {
	if p.pool != nil {
		return nil
	}

	settings := p.config.Pool.withDefaults()
	poolCfg, err := pgxpool.ParseConfig(p.buildDSN())
	if err != nil {
		return err
	}
	poolCfg.MaxConns = int32(settings.MaxOpen)
	poolCfg.MinConns = int32(settings.MaxIdle)
	poolCfg.MaxConnLifetime = settings.MaxLifetime
	poolCfg.MaxConnIdleTime = settings.MaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return err
	}
	p.pool = pool
	return nil
}

// buildDSN creates a PostgreSQL connection string.
func (p *PostgresConnection) buildDSN() string {
	return NewDSNBuilder("postgres").
		Auth(p.config.Username, p.config.Password).
		Host(p.config.Host, p.config.Port).
		Database(p.config.Database).
		Param("sslmode", p.config.SSLMode).
		Params(p.config.Params).
		Build()
}

// Session implements Connection. Each session gets its own driver so
// transactions are scoped per session; the pool underneath is shared.
func (p *PostgresConnection) Session(opts ...session.Option) *session.Session {
	opts = append([]session.Option{session.WithAutocommit(p.config.Autocommit)}, opts...)
	return session.New(session.NewPgxDriver(p.pool), opts...)
}

// Health implements Connection.
func (p *PostgresConnection) Health(ctx context.Context) error {
	if p.pool == nil {
		return fmt.Errorf("not connected")
	}
	return p.pool.Ping(ctx)
}

// Stats implements Connection.
func (p *PostgresConnection) Stats() ConnectionStats {
	if p.pool == nil {
		return ConnectionStats{}
	}
	s := p.pool.Stat()
	return ConnectionStats{
		OpenConnections: int(s.TotalConns()),
		InUse:           int(s.AcquiredConns()),
		Idle:            int(s.IdleConns()),
	}
}

// Close implements Connection.
func (p *PostgresConnection) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

var _ Connection = (*PostgresConnection)(nil)
