package adapter

import (
	"context"
	"strings"
	"sync"

	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
)

// Constructor builds a DatabaseAdapter, opening its pool lazily (no
// connection attempted until first acquire).
type Constructor func(ctx context.Context, dsn string, cfg model.ConnectionConfig) (DatabaseAdapter, error)

// Registry dispatches connection strings to the right adapter constructor
// by URL scheme or filename suffix. Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	constructors map[Engine]Constructor
}

// NewRegistry returns an empty registry; callers register engine
// constructors with Register before calling Open.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[Engine]Constructor)}
}

// DefaultRegistry is the process-wide registry that each engine package's
// init() registers itself into via a blank import, mirroring the
// database/sql driver-registration pattern.
var DefaultRegistry = NewRegistry()

// Register associates an engine with its adapter constructor. A later call
// for the same engine replaces the earlier one.
func (r *Registry) Register(e Engine, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[e] = ctor
}

// IsRegistered reports whether a constructor exists for e.
func (r *Registry) IsRegistered(e Engine) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[e]
	return ok
}

// schemeTable maps every accepted URL scheme prefix (spec.md §6) to its
// engine.
var schemeTable = map[string]Engine{
	"postgres":     EnginePostgres,
	"postgresql":   EnginePostgres,
	"mysql":        EngineMySQL,
	"sqlite":       EngineSQLite,
	"mongodb":      EngineMongoDB,
	"mongodb+srv":  EngineMongoDB,
	"mssql":        EngineMSSQL,
	"sqlserver":    EngineMSSQL,
}

// DetectEngine dispatches a connection string to an Engine by URL scheme,
// or by filename suffix for the bare-path SQLite form.
func DetectEngine(dsn string) (Engine, error) {
	if idx := strings.Index(dsn, "://"); idx >= 0 {
		scheme := strings.ToLower(dsn[:idx])
		if e, ok := schemeTable[scheme]; ok {
			return e, nil
		}
		return "", dberrors.NewConfigurationError("dsn", "unknown scheme '"+scheme+"': supported schemes are postgres(ql), mysql, sqlite, mongodb(+srv), mssql/sqlserver")
	}
	lower := strings.ToLower(dsn)
	if strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite") || strings.HasSuffix(lower, ".sqlite3") {
		return EngineSQLite, nil
	}
	return "", dberrors.NewConfigurationError("dsn", "cannot determine engine: provide a scheme prefix (postgres://, mysql://, mongodb://, mssql://) or a .db/.sqlite path")
}

// Open dispatches dsn to the appropriate registered constructor. Unknown
// schemes and unregistered-but-recognised engines both surface as
// ConfigurationError / UnsupportedFeatureError per spec.md §4.5.
func (r *Registry) Open(ctx context.Context, dsn string, cfg model.ConnectionConfig) (DatabaseAdapter, error) {
	engine, err := DetectEngine(dsn)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	ctor, ok := r.constructors[engine]
	r.mu.RUnlock()
	if !ok {
		return nil, dberrors.NewUnsupportedFeatureError(
			string(engine),
			"rebuild with the "+string(engine)+" adapter linked in",
		)
	}

	return ctor(ctx, dsn, cfg)
}
