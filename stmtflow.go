// Package stmtflow is a client-side SQL statement façade. A Statement
// accumulates text and formatting arguments, carries ordered binding and
// extraction registries, pages result rows through a limit/range window,
// and can execute synchronously or hand the work to a background worker.
package stmtflow

import (
	"context"

	"github.com/stmtflow/stmtflow/connector"
	"github.com/stmtflow/stmtflow/session"
	"github.com/stmtflow/stmtflow/stmt"
)

type Config = connector.Config
type Connection = connector.Connection

// Connect opens a connection through the named provider ("postgres" is
// registered by default).
func Connect(ctx context.Context, provider string, config Config) (Connection, error) {
	return connector.Connect(ctx, provider, config)
}

// NewStatement creates a statement bound to the given session.
func NewStatement(sess *session.Session) (*stmt.Statement, error) {
	return stmt.New(sess)
}
