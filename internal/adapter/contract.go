package adapter

import (
	"context"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
)

// DatabaseAdapter is the uniform, object-safe contract implemented by each
// engine. A factory (Registry.Open in registry.go) returns the concrete adapter behind
// this interface so callers never branch on engine type directly.
type DatabaseAdapter interface {
	// DatabaseType returns the canonical engine identifier.
	DatabaseType() Engine

	// SupportsFeature reports whether this adapter supports a given
	// capability; infallible.
	SupportsFeature(f Feature) bool

	// ConnectionConfig returns the sanitised configuration this adapter was
	// constructed with; infallible, never includes credentials.
	ConnectionConfig() model.ConnectionConfig

	// TestConnection verifies connectivity and catalogue-read privileges
	// without collecting a full schema.
	TestConnection(ctx context.Context) error

	// CollectSchema introspects the connected database into a unified
	// DatabaseSchema. Partial failures below "tables" are captured as
	// warnings in CollectionMetadata rather than aborting.
	CollectSchema(ctx context.Context) (*model.DatabaseSchema, error)

	// Close releases the adapter's pool and any other held resources.
	Close(ctx context.Context) error
}

// MultiDatabaseAdapter is implemented by server-level engines (Postgres,
// MySQL, SQL Server) that can enumerate and fan out over sibling databases.
// SQLite and MongoDB do not implement this in this spec's scope (see
// FeatureMultiDatabase).
type MultiDatabaseAdapter interface {
	DatabaseAdapter

	// ListDatabases enumerates accessible databases on the connected
	// server, excluding system databases unless requested otherwise by the
	// caller (the orchestrator applies that filter, not the adapter).
	ListDatabases(ctx context.Context) ([]DatabaseDescriptor, error)

	// WithDatabase returns a new adapter instance connected to a sibling
	// database on the same server, sharing host/credentials.
	WithDatabase(ctx context.Context, database string) (DatabaseAdapter, error)
}

// DatabaseDescriptor is one entry in a server's database enumeration.
type DatabaseDescriptor struct {
	Name        string
	Accessible  bool
	Owner       *string
	Encoding    *string
	Collation   *string
	SizeBytes   *uint64
	IsSystem    bool
}

// Sampler is implemented by adapters that support row sampling (all five
// engines in this spec's scope).
type Sampler interface {
	// SampleTable returns up to limit rows from table, using the detected
	// ordering strategy. Implemented by internal/sample per engine.
	SampleTable(ctx context.Context, table model.Table, limit int, throttle int) (model.TableSample, error)
}
