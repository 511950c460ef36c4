package adapter

import (
	"context"
	"database/sql/driver"
)

// SessionConnector wraps a database/sql driver.Connector so Policy runs on
// every freshly established physical connection before it is handed back
// to the pool, never on a pooled connection's reuse. database/sql has no
// native after-connect hook; wrapping the connector is the idiomatic way to
// get pgxpool.Config.AfterConnect's exactly-once-per-connection semantics
// out of a database/sql driver.
type SessionConnector struct {
	driver.Connector
	Policy SessionPolicy
}

// Connect opens a new physical connection and applies Policy before
// returning it. A policy failure aborts the connection: Connect closes it
// and returns the error, so database/sql never pools a misconfigured
// session.
func (c *SessionConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	execer, ok := conn.(driver.ExecerContext)
	if !ok {
		return conn, nil
	}
	exec := func(ctx context.Context, statement string) error {
		_, err := execer.ExecContext(ctx, statement, nil)
		return err
	}
	if err := c.Policy(ctx, exec); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
