// Package mysql implements the MySQL schema collector over database/sql
// and github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/dbsurveyor/dbsurveyor/internal/adapter"
	"github.com/dbsurveyor/dbsurveyor/internal/collect"
	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/sample"
)

func init() {
	adapter.DefaultRegistry.Register(adapter.EngineMySQL, Construct)
}

// Adapter implements adapter.DatabaseAdapter, adapter.MultiDatabaseAdapter
// and adapter.Sampler over database/sql.
type Adapter struct {
	db  *sql.DB
	dsn string
	cfg model.ConnectionConfig
}

// Construct builds a MySQL adapter, applying the connection pool limits
// database/sql exposes directly (SetMaxOpenConns/SetMaxIdleConns/
// SetConnMaxLifetime/SetConnMaxIdleTime) and wrapping the driver's
// connector so the mandatory session policy runs once per
// physical connection instead of never, since database/sql has no native
// after-connect hook.
func Construct(ctx context.Context, dsn string, cfg model.ConnectionConfig) (adapter.DatabaseAdapter, error) {
	trimmed := strings.TrimPrefix(dsn, "mysql://")

	baseConnector, err := (mysqldriver.MySQLDriver{}).OpenConnector(trimmed)
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

	return &Adapter{db: db, dsn: dsn, cfg: cfg}, nil
}

// sessionPolicy builds the statements applied to every freshly opened
// MySQL connection. MySQL has no session-level
// application_name variable, so step 4 uses a user-defined session
// variable as the closest available marker; it has no idle-in-transaction
// session timeout either, so that step is approximated with wait_timeout,
// the nearest MySQL analogue for an idle session being reclaimed.
func sessionPolicy(cfg model.ConnectionConfig) adapter.SessionPolicy {
	statements := []string{
		fmt.Sprintf("SET SESSION MAX_EXECUTION_TIME = %d", cfg.QueryTimeout.Milliseconds()),
		fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", int64(adapter.SessionLockTimeout.Seconds())),
		fmt.Sprintf("SET SESSION wait_timeout = %d", int64(adapter.SessionIdleInTransactionTimeout.Seconds())),
		fmt.Sprintf("SET @application_name = '%s'", adapter.AppName(adapter.ToolVersion)),
	}
	if cfg.ReadOnly {
		statements = append(statements, "SET SESSION TRANSACTION READ ONLY")
	}
	statements = append(statements, "SET time_zone = '+00:00'")

	return func(ctx context.Context, exec adapter.StatementExecFunc) error {
		return adapter.ApplySessionPolicy(ctx, exec, statements)
	}
}

func (a *Adapter) DatabaseType() adapter.Engine { return adapter.EngineMySQL }

func (a *Adapter) SupportsFeature(f adapter.Feature) bool {
	return adapter.SupportsFeature(adapter.EngineMySQL, f)
}

func (a *Adapter) ConnectionConfig() model.ConnectionConfig { return a.cfg }

func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return dberrors.NewConnectionError(a.dsn, err)
	}
	return nil
}

func (a *Adapter) Close(_ context.Context) error { return a.db.Close() }

// ListDatabases enumerates schemas on the connected server, used by the
// multi-database orchestrator (MySQL has no separate database/schema
// distinction: one schema is one database).
func (a *Adapter) ListDatabases(ctx context.Context) ([]adapter.DatabaseDescriptor, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT SCHEMA_NAME, DEFAULT_CHARACTER_SET_NAME, DEFAULT_COLLATION_NAME
		FROM information_schema.SCHEMATA ORDER BY SCHEMA_NAME`)
	if err != nil {
		return nil, dberrors.NewCollectionFailedError("list databases", err)
	}
	defer rows.Close()

	var out []adapter.DatabaseDescriptor
	for rows.Next() {
		var d adapter.DatabaseDescriptor
		if err := rows.Scan(&d.Name, &d.Encoding, &d.Collation); err != nil {
			return nil, dberrors.NewCollectionFailedError("scan database row", err)
		}
		d.Accessible = true
		d.IsSystem = collect.MySQLSystemDatabases[d.Name]
		out = append(out, d)
	}
	return out, nil
}

// WithDatabase opens a new adapter pointed at a sibling schema.
func (a *Adapter) WithDatabase(ctx context.Context, database string) (adapter.DatabaseAdapter, error) {
	dsn, err := rewriteDatabase(a.dsn, database)
	if err != nil {
		return nil, err
	}
	return Construct(ctx, dsn, a.cfg)
}

func rewriteDatabase(dsn, database string) (string, error) {
	idx := strings.LastIndex(dsn, "/")
	if idx < 0 {
		return "", dberrors.NewConfigurationError("dsn", "missing database path segment")
	}
	base := dsn[:idx+1]
	if q := strings.Index(dsn[idx:], "?"); q >= 0 {
		return base + database + dsn[idx:][q:], nil
	}
	return base + database, nil
}

// CollectSchema introspects the connected schema following the same
// shared collection order.
func (a *Adapter) CollectSchema(ctx context.Context) (*model.DatabaseSchema, error) {
	info, err := a.collectDatabaseInfo(ctx)
	if err != nil {
		return nil, err
	}

	meta := model.CollectionMetadata{DatabaseType: string(adapter.EngineMySQL)}
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

	major, minor := a.serverVersion(ctx)
	var checksByTable map[string][]model.Constraint
	if SupportsCheckConstraints(major, minor) {
		checkRows, err := a.discoverCheckConstraints(ctx)
		if err == nil {
			checksByTable = AssembleCheckConstraints(checkRows)
		}
	}

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
			Constraints:       checksByTable[key],
			EstimatedRowCount: collect.RowCountPointer(a.estimateRowCount(ctx, tn.schema, tn.name)),
		}
		schema.Tables = append(schema.Tables, table)
	}

	schema.AggregateFromTables()
	schema.CollectionMetadata.CompletedAt = time.Now().UTC()
	return schema, nil
}

func (a *Adapter) collectDatabaseInfo(ctx context.Context) (model.DatabaseInfo, error) {
	var name, version, encoding, collation string
	err := a.db.QueryRowContext(ctx, `
		SELECT DATABASE(), VERSION(),
		       DEFAULT_CHARACTER_SET_NAME, DEFAULT_COLLATION_NAME
		FROM information_schema.SCHEMATA WHERE SCHEMA_NAME = DATABASE()`).
		Scan(&name, &version, &encoding, &collation)
	if err != nil {
		return model.DatabaseInfo{}, dberrors.NewCollectionFailedError("collect database info", err)
	}
	return model.DatabaseInfo{
		Name: name, Version: collect.StringPtr(version),
		Encoding: collect.StringPtr(encoding), Collation: collect.StringPtr(collation),
		AccessLevel:      model.AccessFull,
		CollectionStatus: model.CollectionStatus{Kind: model.CollectionSuccess},
	}, nil
}

func (a *Adapter) serverVersion(ctx context.Context) (int, int) {
	var version string
	if err := a.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return 0, 0
	}
	var major, minor int
	fmt.Sscanf(version, "%d.%d", &major, &minor)
	return major, minor
}

type tableName struct{ schema, name string }

func (a *Adapter) discoverTableNames(ctx context.Context) ([]tableName, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT TABLE_SCHEMA, TABLE_NAME FROM information_schema.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = DATABASE()
		ORDER BY TABLE_SCHEMA, TABLE_NAME`)
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
		out = append(out, tn)
	}
	return out, nil
}

func (a *Adapter) discoverColumns(ctx context.Context) ([]ColumnRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT TABLE_SCHEMA, TABLE_NAME, COLUMN_NAME, DATA_TYPE, COLUMN_TYPE,
		       IS_NULLABLE = 'YES', COLUMN_DEFAULT, CHARACTER_MAXIMUM_LENGTH,
		       ORDINAL_POSITION, COLUMN_KEY = 'PRI', EXTRA LIKE '%auto_increment%', COLUMN_COMMENT
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE()
		ORDER BY TABLE_SCHEMA, TABLE_NAME, ORDINAL_POSITION`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ColumnRow
	for rows.Next() {
		var r ColumnRow
		if err := rows.Scan(&r.Schema, &r.Table, &r.Column, &r.DataType, &r.ColumnType,
			&r.IsNullable, &r.ColumnDefault, &r.MaxLength, &r.OrdinalPosition,
			&r.IsPrimaryKey, &r.IsAutoIncrement, &r.Comment); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (a *Adapter) discoverPrimaryKeys(ctx context.Context) (map[string][]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT tc.TABLE_SCHEMA, tc.TABLE_NAME, kcu.COLUMN_NAME, kcu.ORDINAL_POSITION
		FROM information_schema.TABLE_CONSTRAINTS tc
		JOIN information_schema.KEY_COLUMN_USAGE kcu
		  ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME AND kcu.TABLE_SCHEMA = tc.TABLE_SCHEMA AND kcu.TABLE_NAME = tc.TABLE_NAME
		WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = DATABASE()
		ORDER BY tc.TABLE_SCHEMA, tc.TABLE_NAME, kcu.ORDINAL_POSITION`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var schema, table, column string
		var pos int
		if err := rows.Scan(&schema, &table, &column, &pos); err != nil {
			return nil, err
		}
		key := schema + "." + table
		result[key] = append(result[key], column)
	}
	return result, nil
}

func (a *Adapter) discoverForeignKeys(ctx context.Context) ([]ForeignKeyRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME, kcu.ORDINAL_POSITION,
		       kcu.REFERENCED_TABLE_SCHEMA, kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME,
		       rc.DELETE_RULE, rc.UPDATE_RULE
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
		  ON rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND rc.CONSTRAINT_SCHEMA = kcu.TABLE_SCHEMA
		WHERE kcu.REFERENCED_TABLE_NAME IS NOT NULL AND kcu.TABLE_SCHEMA = DATABASE()
		ORDER BY kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ForeignKeyRow
	for rows.Next() {
		var r ForeignKeyRow
		if err := rows.Scan(&r.Schema, &r.Table, &r.ConstraintName, &r.Column, &r.OrdinalPosition,
			&r.ReferencedSchema, &r.ReferencedTable, &r.ReferencedColumn, &r.OnDelete, &r.OnUpdate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (a *Adapter) discoverIndexes(ctx context.Context) ([]IndexRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT TABLE_SCHEMA, TABLE_NAME, INDEX_NAME,
		       GROUP_CONCAT(COLUMN_NAME ORDER BY SEQ_IN_INDEX),
		       MAX(NON_UNIQUE), MAX(INDEX_NAME = 'PRIMARY')
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE()
		GROUP BY TABLE_SCHEMA, TABLE_NAME, INDEX_NAME`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexRow
	for rows.Next() {
		var r IndexRow
		var columnsCSV string
		var nonUnique, isPrimary int
		if err := rows.Scan(&r.Schema, &r.Table, &r.IndexName, &columnsCSV, &nonUnique, &isPrimary); err != nil {
			return nil, err
		}
		r.Columns = strings.Split(columnsCSV, ",")
		r.IsUnique = nonUnique == 0
		r.IsPrimary = isPrimary == 1
		out = append(out, r)
	}
	return out, nil
}

func (a *Adapter) discoverCheckConstraints(ctx context.Context) ([]CheckConstraintRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT cc.CONSTRAINT_SCHEMA, tc.TABLE_NAME, cc.CONSTRAINT_NAME, cc.CHECK_CLAUSE
		FROM information_schema.CHECK_CONSTRAINTS cc
		JOIN information_schema.TABLE_CONSTRAINTS tc
		  ON tc.CONSTRAINT_NAME = cc.CONSTRAINT_NAME AND tc.CONSTRAINT_SCHEMA = cc.CONSTRAINT_SCHEMA
		WHERE cc.CONSTRAINT_SCHEMA = DATABASE()`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CheckConstraintRow
	for rows.Next() {
		var r CheckConstraintRow
		if err := rows.Scan(&r.Schema, &r.Table, &r.Name, &r.Clause); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (a *Adapter) estimateRowCount(ctx context.Context, schema, table string) int64 {
	var estimate sql.NullInt64
	err := a.db.QueryRowContext(ctx, `
		SELECT TABLE_ROWS FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`, schema, table).Scan(&estimate)
	if err != nil || !estimate.Valid {
		return -1
	}
	return estimate.Int64
}

// SampleTable pulls up to limit rows using the detected ordering strategy.
func (a *Adapter) SampleTable(ctx context.Context, table model.Table, limit int, throttleMS int) (model.TableSample, error) {
	strategy := sample.DetectOrderingStrategy(table, "")
	query := sample.BuildSampleQuery(sample.DialectMySQL, nil, table.Name, strategy, "?")

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
