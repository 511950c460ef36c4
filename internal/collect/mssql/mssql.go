// Package mssql implements the SQL Server schema collector over
// database/sql and github.com/microsoft/go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	mssqldriver "github.com/microsoft/go-mssqldb"

	"github.com/dbsurveyor/dbsurveyor/internal/adapter"
	"github.com/dbsurveyor/dbsurveyor/internal/collect"
	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/sample"
)

func init() {
	adapter.DefaultRegistry.Register(adapter.EngineMSSQL, Construct)
}

// Adapter implements adapter.DatabaseAdapter, adapter.MultiDatabaseAdapter
// and adapter.Sampler over database/sql.
type Adapter struct {
	db  *sql.DB
	dsn string
	cfg model.ConnectionConfig
}

// Construct opens a SQL Server connection, translating a mssql:// /
// sqlserver:// scheme dsn into the driver's native "sqlserver://" form, and
// wrapping the driver's connector so the mandatory session policy
// runs once per physical connection.
func Construct(ctx context.Context, dsn string, cfg model.ConnectionConfig) (adapter.DatabaseAdapter, error) {
	native := strings.Replace(dsn, "mssql://", "sqlserver://", 1)
	if cfg.ReadOnly {
		native = withApplicationIntentReadOnly(native)
	}

	baseConnector, err := mssqldriver.NewConnector(native)
	if err != nil {
		return nil, dberrors.NewConfigurationError("dsn", err.Error())
	}
	connector := &adapter.SessionConnector{Connector: baseConnector, Policy: sessionPolicy(cfg)}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(int(cfg.MaxConnections))
	db.SetMaxIdleConns(int(cfg.MinIdleConnections))
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.IdleTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, dberrors.NewConnectionError(dsn, err)
	}

	return &Adapter{db: db, dsn: native, cfg: cfg}, nil
}

// sessionPolicy builds the statements applied to every freshly opened SQL
// Server connection. T-SQL has no session-level statement-timeout or
// idle-in-transaction GUC and no session timezone setting (SQL Server runs
// on the server's local time zone, or UTC if the server is configured
// that way); those three steps have no equivalent here and
// are left to the client-side context deadlines CollectSchema/SampleTable
// already apply. Lock timeout and application name both have real SQL
// Server equivalents and are applied below; read-only intent is instead
// requested via the ApplicationIntent=ReadOnly connection-string parameter
// in Construct, since T-SQL has no per-transaction read-only SET.
func sessionPolicy(cfg model.ConnectionConfig) adapter.SessionPolicy {
	statements := []string{
		fmt.Sprintf("SET LOCK_TIMEOUT %d", adapter.SessionLockTimeout.Milliseconds()),
		fmt.Sprintf("SET CONTEXT_INFO %s", hexAppName(adapter.AppName(adapter.ToolVersion))),
	}

	return func(ctx context.Context, exec adapter.StatementExecFunc) error {
		return adapter.ApplySessionPolicy(ctx, exec, statements)
	}
}

// withApplicationIntentReadOnly appends the ApplicationIntent=ReadOnly
// connection-string parameter, requesting routing to a readable secondary
// on an Always On availability group instead of the primary replica.
func withApplicationIntentReadOnly(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "ApplicationIntent=ReadOnly"
}

// hexAppName renders name as the 0x-prefixed varbinary literal
// SET CONTEXT_INFO requires; SQL Server has no application_name session
// variable, so CONTEXT_INFO (visible via sys.dm_exec_sessions) is the
// closest available per-session marker.
func hexAppName(name string) string {
	const maxContextInfoBytes = 128
	b := []byte(name)
	if len(b) > maxContextInfoBytes {
		b = b[:maxContextInfoBytes]
	}
	return "0x" + fmt.Sprintf("%x", b)
}

func (a *Adapter) DatabaseType() adapter.Engine { return adapter.EngineMSSQL }

func (a *Adapter) SupportsFeature(f adapter.Feature) bool {
	return adapter.SupportsFeature(adapter.EngineMSSQL, f)
}

func (a *Adapter) ConnectionConfig() model.ConnectionConfig { return a.cfg }

func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return dberrors.NewConnectionError(a.dsn, err)
	}
	return nil
}

func (a *Adapter) Close(_ context.Context) error { return a.db.Close() }

// ListDatabases enumerates sibling databases on the connected instance.
func (a *Adapter) ListDatabases(ctx context.Context) ([]adapter.DatabaseDescriptor, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT name, database_id, collation_name, state_desc
		FROM sys.databases ORDER BY name`)
	if err != nil {
		return nil, dberrors.NewCollectionFailedError("list databases", err)
	}
	defer rows.Close()

	var out []adapter.DatabaseDescriptor
	for rows.Next() {
		var d adapter.DatabaseDescriptor
		var databaseID int
		var state string
		if err := rows.Scan(&d.Name, &databaseID, &d.Collation, &state); err != nil {
			return nil, dberrors.NewCollectionFailedError("scan database row", err)
		}
		d.Accessible = state == "ONLINE"
		d.IsSystem = collect.MSSQLSystemDatabases[d.Name]
		out = append(out, d)
	}
	return out, nil
}

// WithDatabase opens a new adapter bound to a sibling database.
func (a *Adapter) WithDatabase(ctx context.Context, database string) (adapter.DatabaseAdapter, error) {
	dsn, err := rewriteDatabase(a.dsn, database)
	if err != nil {
		return nil, err
	}
	return Construct(ctx, dsn, a.cfg)
}

func rewriteDatabase(dsn, database string) (string, error) {
	if strings.Contains(dsn, "database=") {
		idx := strings.Index(dsn, "database=")
		end := strings.IndexByte(dsn[idx:], '&')
		if end < 0 {
			return dsn[:idx] + "database=" + database, nil
		}
		return dsn[:idx] + "database=" + database + dsn[idx+end:], nil
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "database=" + database, nil
}

// CollectSchema introspects the connected database's schemas.
func (a *Adapter) CollectSchema(ctx context.Context) (*model.DatabaseSchema, error) {
	info, err := a.collectDatabaseInfo(ctx)
	if err != nil {
		return nil, err
	}

	meta := model.CollectionMetadata{DatabaseType: string(adapter.EngineMSSQL)}
	schema := model.NewDatabaseSchema(info, meta)

	columnRows, err := a.discoverColumns(ctx)
	if err != nil {
		return nil, dberrors.NewCollectionFailedError("discover columns", err)
	}
	columnsByTable := AssembleColumns(columnRows)

	pkByTable, err := a.discoverPrimaryKeys(ctx)
	if err != nil {
		return nil, dberrors.NewCollectionFailedError("discover primary keys", err)
	}

	fkRows, err := a.discoverForeignKeys(ctx)
	if err != nil {
		return nil, dberrors.NewCollectionFailedError("discover foreign keys", err)
	}
	fksByTable := AssembleForeignKeys(fkRows)

	idxRows, err := a.discoverIndexes(ctx)
	if err != nil {
		return nil, dberrors.NewCollectionFailedError("discover indexes", err)
	}
	idxByTable := AssembleIndexes(idxRows)

	tableNames, err := a.discoverTableNames(ctx)
	if err != nil {
		return nil, dberrors.NewCollectionFailedError("discover tables", err)
	}

	for _, tn := range tableNames {
		key := tn.schema + "." + tn.name
		table := model.Table{
			Name:              tn.name,
			Schema:            collect.StringPtr(tn.schema),
			Columns:           columnsByTable[key],
			PrimaryKey:        pkByTable[key],
			ForeignKeys:       fksByTable[key],
			Indexes:           idxByTable[key],
			EstimatedRowCount: collect.RowCountPointer(a.estimateRowCount(ctx, tn.schema, tn.name)),
		}
		schema.Tables = append(schema.Tables, table)
	}

	schema.AggregateFromTables()
	schema.CollectionMetadata.CompletedAt = time.Now().UTC()
	return schema, nil
}

func (a *Adapter) collectDatabaseInfo(ctx context.Context) (model.DatabaseInfo, error) {
	var name, version, collation string
	err := a.db.QueryRowContext(ctx, `
		SELECT DB_NAME(), CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128)), DATABASEPROPERTYEX(DB_NAME(), 'Collation')`).
		Scan(&name, &version, &collation)
	if err != nil {
		return model.DatabaseInfo{}, dberrors.NewCollectionFailedError("collect database info", err)
	}
	return model.DatabaseInfo{
		Name: name, Version: collect.StringPtr(version), Collation: collect.StringPtr(collation),
		AccessLevel:      model.AccessFull,
		CollectionStatus: model.CollectionStatus{Kind: model.CollectionSuccess},
	}, nil
}

type tableName struct{ schema, name string }

func (a *Adapter) discoverTableNames(ctx context.Context) ([]tableName, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT s.name, t.name FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		ORDER BY s.name, t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tableName
	for rows.Next() {
		var tn tableName
		if err := rows.Scan(&tn.schema, &tn.name); err != nil {
			return nil, err
		}
		if collect.MSSQLSystemSchemas[tn.schema] {
			continue
		}
		out = append(out, tn)
	}
	return out, nil
}

func (a *Adapter) discoverColumns(ctx context.Context) ([]ColumnRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT s.name, t.name, c.name, ty.name, c.max_length, c.is_nullable,
		       OBJECT_DEFINITION(c.default_object_id), c.column_id, c.is_identity,
		       (SELECT CASE WHEN ic.column_id IS NOT NULL THEN 1 ELSE 0 END
		        FROM sys.indexes i
		        JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id AND ic.column_id = c.column_id
		        WHERE i.object_id = t.object_id AND i.is_primary_key = 1)
		FROM sys.columns c
		JOIN sys.tables t ON t.object_id = c.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.types ty ON ty.user_type_id = c.user_type_id
		ORDER BY s.name, t.name, c.column_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ColumnRow
	for rows.Next() {
		var r ColumnRow
		var defaultValue sql.NullString
		var isPK sql.NullInt64
		if err := rows.Scan(&r.Schema, &r.Table, &r.Column, &r.TypeName, &r.MaxLength, &r.IsNullable,
			&defaultValue, &r.OrdinalPosition, &r.IsAutoIncrement, &isPK); err != nil {
			return nil, err
		}
		if defaultValue.Valid {
			r.ColumnDefault = &defaultValue.String
		}
		r.IsPrimaryKey = isPK.Valid && isPK.Int64 == 1
		out = append(out, r)
	}
	return out, nil
}

func (a *Adapter) discoverPrimaryKeys(ctx context.Context) (map[string][]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT s.name, t.name, c.name, ic.key_ordinal
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE i.is_primary_key = 1
		ORDER BY s.name, t.name, ic.key_ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var schema, table, column string
		var ordinal int
		if err := rows.Scan(&schema, &table, &column, &ordinal); err != nil {
			return nil, err
		}
		key := schema + "." + table
		result[key] = append(result[key], column)
	}
	return result, nil
}

func (a *Adapter) discoverForeignKeys(ctx context.Context) ([]ForeignKeyRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT s.name, t.name, fk.name, fk.object_id, fkc.constraint_column_id,
		       c.name, rs.name, rt.name, rc.name, fk.delete_referential_action_desc, fk.update_referential_action_desc
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.tables t ON t.object_id = fk.parent_object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.columns c ON c.object_id = fkc.parent_object_id AND c.column_id = fkc.parent_column_id
		JOIN sys.tables rt ON rt.object_id = fk.referenced_object_id
		JOIN sys.schemas rs ON rs.schema_id = rt.schema_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		ORDER BY s.name, t.name, fk.object_id, fkc.constraint_column_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ForeignKeyRow
	for rows.Next() {
		var r ForeignKeyRow
		if err := rows.Scan(&r.Schema, &r.Table, &r.ConstraintName, &r.ConstraintID, &r.ColumnPosition,
			&r.Column, &r.ReferencedSchema, &r.ReferencedTable, &r.ReferencedColumn, &r.OnDelete, &r.OnUpdate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (a *Adapter) discoverIndexes(ctx context.Context) ([]IndexRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT s.name, t.name, i.name, c.name, ic.key_ordinal, ic.is_descending_key, i.is_unique, i.is_primary_key, i.type_desc
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE i.name IS NOT NULL
		ORDER BY s.name, t.name, i.name, ic.key_ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexRow
	for rows.Next() {
		var r IndexRow
		if err := rows.Scan(&r.Schema, &r.Table, &r.IndexName, &r.Column, &r.KeyOrdinal,
			&r.Descending, &r.IsUnique, &r.IsPrimary, &r.IndexType); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (a *Adapter) estimateRowCount(ctx context.Context, schema, table string) int64 {
	var estimate int64
	err := a.db.QueryRowContext(ctx, `
		SELECT SUM(p.rows) FROM sys.partitions p
		JOIN sys.tables t ON t.object_id = p.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @p1 AND t.name = @p2 AND p.index_id IN (0, 1)`, schema, table).Scan(&estimate)
	if err != nil {
		return -1
	}
	return estimate
}

// SampleTable pulls up to limit rows using the detected ordering strategy.
func (a *Adapter) SampleTable(ctx context.Context, table model.Table, limit int, throttleMS int) (model.TableSample, error) {
	strategy := sample.DetectOrderingStrategy(table, "")
	qualified := sample.QualifiedIdentifier(sample.DialectMSSQL, table.Schema, table.Name)
	orderBy := sample.EmitOrderBy(sample.DialectMSSQL, strategy)
	query := fmt.Sprintf("SELECT TOP (@p1) * FROM %s %s", qualified, orderBy)

	rows, err := a.db.QueryContext(ctx, query, limit)
	if err != nil {
		return model.TableSample{}, dberrors.NewCollectionFailedError("sample table "+table.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return model.TableSample{}, dberrors.NewCollectionFailedError("read sample columns", err)
	}

	var collected []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return model.TableSample{}, dberrors.NewCollectionFailedError("scan sample row", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		collected = append(collected, sample.RowToJSON(row))
		if err := sample.Throttle(ctx, throttleMS); err != nil {
			return model.TableSample{}, err
		}
	}

	return model.TableSample{
		TableName: table.Name, Schema: table.Schema, Rows: collected,
		SampleSize: len(collected), Strategy: strategy, CollectedAt: time.Now().UTC(),
		Warnings: sample.TableWarnings(strategy, table.Columns),
	}, nil
}
