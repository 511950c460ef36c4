// Package collect holds the cross-engine constants the per-engine
// collectors (internal/collect/postgres, mysql, sqlite, mssql, mongodb)
// share: system schema/database exclusion lists used to keep
// administrative catalogs out of a collected schema.
package collect

// PostgresSystemSchemas lists schemas excluded from collection unless the
// caller explicitly opts into system objects.
var PostgresSystemSchemas = map[string]bool{
	"pg_catalog":         true,
	"information_schema": true,
	"pg_toast":           true,
}

// MySQLSystemSchemas lists MySQL's built-in schemas.
var MySQLSystemSchemas = map[string]bool{
	"information_schema": true,
	"performance_schema": true,
	"mysql":              true,
	"sys":                true,
}

// MSSQLSystemSchemas lists SQL Server's built-in schemas.
var MSSQLSystemSchemas = map[string]bool{
	"sys":                true,
	"INFORMATION_SCHEMA": true,
	"guest":              true,
	"db_owner":           true,
	"db_accessadmin":     true,
	"db_securityadmin":   true,
	"db_ddladmin":        true,
	"db_backupoperator":  true,
	"db_datareader":      true,
	"db_datawriter":      true,
	"db_denydatareader":  true,
	"db_denydatawriter":  true,
}

// MySQLSystemDatabases and MSSQLSystemDatabases list the per-engine
// built-in databases excluded from ListDatabases results unless
// IncludeSystem is set.
var MySQLSystemDatabases = map[string]bool{
	"information_schema": true,
	"performance_schema": true,
	"mysql":               true,
	"sys":                 true,
}

var MSSQLSystemDatabases = map[string]bool{
	"master": true, "tempdb": true, "model": true, "msdb": true,
}

var PostgresSystemDatabases = map[string]bool{
	"template0": true, "template1": true,
}
