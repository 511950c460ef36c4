package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
)

// toolAppName is embedded as the session application_name by every
// after-connect hook, per spec.md §4.4 step 4.
const toolAppName = "dbsurveyor-collect"

// ToolVersion is the running tool's version, baked into every connection's
// application_name via AppName. Bumped at release time.
const ToolVersion = "0.1.0"

// AppName returns the application_name value every adapter's after-connect
// hook must set, with the running tool version baked in.
func AppName(version string) string {
	return fmt.Sprintf("%s-%s", toolAppName, version)
}

// Fixed session-policy values common across engines (spec.md §4.4 steps
// 2-3); step 1 (statement timeout) and step 5 (read-only) come from the
// caller's ConnectionConfig, step 6 (UTC) has no parameters.
const (
	SessionLockTimeout              = 30 * time.Second
	SessionIdleInTransactionTimeout = 60 * time.Second
)

// StatementExecFunc runs one session-level statement against a single
// freshly established physical connection. Each engine supplies its own
// implementation (pgx.Conn.Exec, a database/sql driver.ExecerContext, a
// PRAGMA runner, ...).
type StatementExecFunc func(ctx context.Context, statement string) error

// SessionPolicy is the after-connect hook contract: a function that
// applies the mandatory session invariants to one freshly established
// physical connection via exec. It runs exactly once per physical
// connection, never per acquire — each engine's pool wires it into its
// driver's AfterConnect (or equivalent) callback so a reused pooled
// connection is never re-configured on every checkout.
type SessionPolicy func(ctx context.Context, exec StatementExecFunc) error

// ApplySessionPolicy runs each statement via exec in order, aborting the
// connection on the first failure per spec.md §4.4 ("failure in any step
// aborts that connection").
func ApplySessionPolicy(ctx context.Context, exec StatementExecFunc, statements []string) error {
	for _, stmt := range statements {
		if err := exec(ctx, stmt); err != nil {
			return fmt.Errorf("session policy: %s: %w", stmt, err)
		}
	}
	return nil
}

// PoolStats mirrors the pool_statistics operation from spec.md §4.4.
type PoolStats struct {
	Idle   int32
	Active int32
	Total  int32
	Max    int32
}

// AcquireTimeoutError maps a driver-level pool-acquire timeout to the
// ConnectionTimeout error kind, never a generic connection error, so
// callers can distinguish contention from unreachability.
func AcquireTimeoutError(target string, d time.Duration) error {
	return dberrors.NewConnectionTimeoutError(target, d)
}
