// Package connector manages database connections for stmtflow sessions:
// configuration, DSN construction, connect retries, and a provider
// registry keyed by driver name.
package connector

import (
	"context"

	"github.com/stmtflow/stmtflow/session"
)

// Connection is an established database connection able to hand out
// sessions.
type Connection interface {
	// Session creates a logical session over this connection.
	Session(opts ...session.Option) *session.Session
	// Health checks the connection.
	Health(ctx context.Context) error
	// Stats returns connection pool statistics.
	Stats() ConnectionStats
	// Close closes the connection pool.
	Close() error
}

// Provider connects to one database family.
type Provider interface {
	Connect(ctx context.Context, config Config) (Connection, error)
}

// ConnectionStats represents connection pool statistics.
type ConnectionStats struct {
	OpenConnections int
	InUse           int
	Idle            int
}
