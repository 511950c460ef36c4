// Package adapter defines the capability-based contract implemented by each
// database engine, the pool-construction/session-policy rules every
// adapter's pool must apply, and the registry that dispatches a connection
// string to the right adapter constructor.
package adapter

// Engine is the closed set of database types this tool supports.
type Engine string

const (
	EnginePostgres Engine = "postgresql"
	EngineMySQL    Engine = "mysql"
	EngineSQLite   Engine = "sqlite"
	EngineMSSQL    Engine = "mssql"
	EngineMongoDB  Engine = "mongodb"
)

// Feature is the closed capability set queried via SupportsFeature.
type Feature string

const (
	FeatureSchemaCollection Feature = "schema_collection"
	FeatureDataSampling     Feature = "data_sampling"
	FeatureMultiDatabase    Feature = "multi_database"
	FeatureConnectionPooling Feature = "connection_pooling"
	FeatureQueryTimeout     Feature = "query_timeout"
	FeatureReadOnlyMode     Feature = "read_only_mode"
)

// capabilityTable is the static per-engine feature matrix. SQLite has
// neither multi-database fan-out nor a real pool (single file); MongoDB
// reports no multi-database or read-only mode in this spec's scope.
var capabilityTable = map[Engine]map[Feature]bool{
	EnginePostgres: {
		FeatureSchemaCollection:  true,
		FeatureDataSampling:      true,
		FeatureMultiDatabase:     true,
		FeatureConnectionPooling: true,
		FeatureQueryTimeout:      true,
		FeatureReadOnlyMode:      true,
	},
	EngineMySQL: {
		FeatureSchemaCollection:  true,
		FeatureDataSampling:      true,
		FeatureMultiDatabase:     true,
		FeatureConnectionPooling: true,
		FeatureQueryTimeout:      true,
		FeatureReadOnlyMode:      true,
	},
	EngineMSSQL: {
		FeatureSchemaCollection:  true,
		FeatureDataSampling:      true,
		FeatureMultiDatabase:     true,
		FeatureConnectionPooling: true,
		FeatureQueryTimeout:      true,
		FeatureReadOnlyMode:      true,
	},
	EngineSQLite: {
		FeatureSchemaCollection:  true,
		FeatureDataSampling:      true,
		FeatureMultiDatabase:     false,
		FeatureConnectionPooling: false,
		FeatureQueryTimeout:      true,
		FeatureReadOnlyMode:      true,
	},
	EngineMongoDB: {
		FeatureSchemaCollection:  true,
		FeatureDataSampling:      true,
		FeatureMultiDatabase:     false,
		FeatureConnectionPooling: true,
		FeatureQueryTimeout:      true,
		FeatureReadOnlyMode:      false,
	},
}

// SupportsFeature reports whether engine e supports feature f. Unknown
// engines support nothing.
func SupportsFeature(e Engine, f Feature) bool {
	features, ok := capabilityTable[e]
	if !ok {
		return false
	}
	return features[f]
}
