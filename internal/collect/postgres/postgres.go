// Package postgres implements the PostgreSQL schema collector: connection
// management over pgxpool, catalog introspection, and assembly into the
// unified model.DatabaseSchema.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dbsurveyor/dbsurveyor/internal/adapter"
	"github.com/dbsurveyor/dbsurveyor/internal/collect"
	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/sample"
)

func init() {
	adapter.DefaultRegistry.Register(adapter.EnginePostgres, Construct)
}

// Adapter implements adapter.DatabaseAdapter, adapter.MultiDatabaseAdapter
// and adapter.Sampler over a pgxpool.Pool.
type Adapter struct {
	pool   *pgxpool.Pool
	dsn    string
	cfg    model.ConnectionConfig
	policy adapter.SessionPolicy
}

// Construct builds a PostgreSQL adapter for the registry, running the
// mandatory after-connect session policy exactly once per physical
// connection via pgxpool's AfterConnect hook.
func Construct(ctx context.Context, dsn string, cfg model.ConnectionConfig) (adapter.DatabaseAdapter, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, dberrors.NewConfigurationError("dsn", err.Error())
	}

	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MinConns = int32(cfg.MinIdleConnections)
	poolCfg.MaxConnLifetime = cfg.MaxLifetime
	poolCfg.MaxConnIdleTime = cfg.IdleTimeout

	policy := sessionPolicy(cfg)
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		exec := func(ctx context.Context, statement string) error {
			_, err := conn.Exec(ctx, statement)
			return err
		}
		return policy(ctx, exec)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, dberrors.NewConnectionError(dsn, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, dberrors.NewConnectionError(dsn, err)
	}

	return &Adapter{pool: pool, dsn: dsn, cfg: cfg, policy: policy}, nil
}

// sessionPolicy builds the after-connect hook that applies the six
// mandatory session invariants to every freshly established
// physical connection, never on pool checkout. A failure in any step aborts
// that connection; pgxpool discards it and opens a replacement.
func sessionPolicy(cfg model.ConnectionConfig) adapter.SessionPolicy {
	statements := []string{
		fmt.Sprintf("SET statement_timeout = %d", cfg.QueryTimeout.Milliseconds()),
		fmt.Sprintf("SET lock_timeout = %d", adapter.SessionLockTimeout.Milliseconds()),
		fmt.Sprintf("SET idle_in_transaction_session_timeout = %d", adapter.SessionIdleInTransactionTimeout.Milliseconds()),
		fmt.Sprintf("SET application_name = '%s'", adapter.AppName(adapter.ToolVersion)),
	}
	if cfg.ReadOnly {
		statements = append(statements, "SET default_transaction_read_only = on")
	}
	statements = append(statements, "SET TIME ZONE 'UTC'")

	return func(ctx context.Context, exec adapter.StatementExecFunc) error {
		return adapter.ApplySessionPolicy(ctx, exec, statements)
	}
}

func (a *Adapter) DatabaseType() adapter.Engine { return adapter.EnginePostgres }

func (a *Adapter) SupportsFeature(f adapter.Feature) bool {
	return adapter.SupportsFeature(adapter.EnginePostgres, f)
}

func (a *Adapter) ConnectionConfig() model.ConnectionConfig { return a.cfg }

func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return dberrors.NewConnectionError(a.dsn, err)
	}
	return nil
}

func (a *Adapter) Close(_ context.Context) error {
	a.pool.Close()
	return nil
}

// ListDatabases enumerates sibling databases on the same PostgreSQL
// instance, used by the multi-database orchestrator.
func (a *Adapter) ListDatabases(ctx context.Context) ([]adapter.DatabaseDescriptor, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT d.datname, pg_catalog.pg_get_userbyid(d.datdba), pg_encoding_to_char(d.encoding),
		       d.datcollate, pg_database_size(d.datname), d.datistemplate OR d.datname = 'postgres'
		FROM pg_catalog.pg_database d
		WHERE d.datallowconn
		ORDER BY d.datname`)
	if err != nil {
		return nil, dberrors.NewCollectionFailedError("list databases", err)
	}
	defer rows.Close()

	var out []adapter.DatabaseDescriptor
	for rows.Next() {
		var d adapter.DatabaseDescriptor
		var sizeBytes int64
		if err := rows.Scan(&d.Name, &d.Owner, &d.Encoding, &d.Collation, &sizeBytes, &d.IsSystem); err != nil {
			return nil, dberrors.NewCollectionFailedError("scan database row", err)
		}
		sb := uint64(sizeBytes)
		d.SizeBytes = &sb
		d.Accessible = true
		if collect.PostgresSystemDatabases[d.Name] {
			d.IsSystem = true
		}
		out = append(out, d)
	}
	return out, nil
}

// WithDatabase opens a fresh adapter bound to a sibling database, reusing
// the current connection's host/credentials.
func (a *Adapter) WithDatabase(ctx context.Context, database string) (adapter.DatabaseAdapter, error) {
	dsn, err := rewriteDatabase(a.dsn, database)
	if err != nil {
		return nil, err
	}
	built, err := Construct(ctx, dsn, a.cfg)
	if err != nil {
		return nil, err
	}
	return built, nil
}

// CollectSchema introspects every non-system schema of the connected
// database into a model.DatabaseSchema: database info, then the base tables
// with their columns, primary keys, foreign keys, indexes and estimated row
// counts. A failing catalogue query for table names, columns, keys or
// indexes aborts the whole run; an unavailable row-count estimate only
// leaves EstimatedRowCount unset. Views, routines, triggers, custom types
// and table constraints are not collected.
func (a *Adapter) CollectSchema(ctx context.Context) (*model.DatabaseSchema, error) {
	info, err := a.collectDatabaseInfo(ctx)
	if err != nil {
		return nil, err
	}

	meta := model.CollectionMetadata{DatabaseType: string(adapter.EnginePostgres)}
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
	var name, version, encoding, collation, owner string
	var sizeBytes int64
	err := a.pool.QueryRow(ctx, `
		SELECT current_database(), version(), pg_encoding_to_char(encoding), datcollate,
		       pg_catalog.pg_get_userbyid(datdba), pg_database_size(current_database())
		FROM pg_catalog.pg_database WHERE datname = current_database()`).
		Scan(&name, &version, &encoding, &collation, &owner, &sizeBytes)
	if err != nil {
		return model.DatabaseInfo{}, dberrors.NewCollectionFailedError("collect database info", err)
	}
	sb := uint64(sizeBytes)
	return model.DatabaseInfo{
		Name: name, Version: collect.StringPtr(version), SizeBytes: &sb,
		Encoding: collect.StringPtr(encoding), Collation: collect.StringPtr(collation), Owner: collect.StringPtr(owner),
		AccessLevel:      model.AccessFull,
		CollectionStatus: model.CollectionStatus{Kind: model.CollectionSuccess},
	}, nil
}

type tableName struct{ schema, name string }

func (a *Adapter) discoverTableNames(ctx context.Context) ([]tableName, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT table_schema, table_name FROM information_schema.tables
		WHERE table_type = 'BASE TABLE' ORDER BY table_schema, table_name`)
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
		if collect.PostgresSystemSchemas[tn.schema] {
			continue
		}
		out = append(out, tn)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].schema != out[j].schema {
			return out[i].schema < out[j].schema
		}
		return out[i].name < out[j].name
	})
	return out, nil
}

func (a *Adapter) discoverColumns(ctx context.Context) ([]ColumnRow, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT c.table_schema, c.table_name, c.column_name, c.data_type, c.udt_name,
		       c.is_nullable = 'YES', c.column_default, c.character_maximum_length,
		       c.numeric_precision, c.numeric_scale, c.ordinal_position,
		       pg_get_serial_sequence(c.table_schema || '.' || c.table_name, c.column_name) IS NOT NULL
		FROM information_schema.columns c
		JOIN information_schema.tables t ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE t.table_type = 'BASE TABLE'
		ORDER BY c.table_schema, c.table_name, c.ordinal_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ColumnRow
	for rows.Next() {
		var r ColumnRow
		if err := rows.Scan(&r.Schema, &r.Table, &r.Column, &r.DataType, &r.UDTName,
			&r.IsNullable, &r.ColumnDefault, &r.MaxLength, &r.NumericPrecision, &r.NumericScale,
			&r.OrdinalPosition, &r.IsAutoIncrement); err != nil {
			return nil, err
		}
		if collect.PostgresSystemSchemas[r.Schema] {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (a *Adapter) discoverPrimaryKeys(ctx context.Context) (map[string][]string, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT tc.table_schema, tc.table_name, kcu.column_name, kcu.ordinal_position
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		ORDER BY tc.table_schema, tc.table_name, kcu.ordinal_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type pkRow struct {
		schema, table, column string
		position              int
	}
	var pkRows []pkRow
	for rows.Next() {
		var r pkRow
		if err := rows.Scan(&r.schema, &r.table, &r.column, &r.position); err != nil {
			return nil, err
		}
		pkRows = append(pkRows, r)
	}

	result := make(map[string][]string)
	for _, r := range pkRows {
		key := r.schema + "." + r.table
		result[key] = append(result[key], r.column)
	}
	return result, nil
}

func (a *Adapter) discoverForeignKeys(ctx context.Context) ([]ForeignKeyRow, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT tc.table_schema, tc.table_name, tc.constraint_name, kcu.column_name, kcu.ordinal_position,
		       ccu.table_schema, ccu.table_name, ccu.column_name,
		       rc.delete_rule, rc.update_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints rc
		  ON rc.constraint_name = tc.constraint_name AND rc.constraint_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = rc.unique_constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY'
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name, kcu.ordinal_position`)
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
	rows, err := a.pool.Query(ctx, `
		SELECT n.nspname, t.relname, i.relname, a.attname, array_position(ix.indkey, a.attnum),
		       ix.indisunique, ix.indisprimary, am.amname
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_am am ON am.oid = i.relam
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		ORDER BY n.nspname, t.relname, i.relname, array_position(ix.indkey, a.attnum)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexRow
	for rows.Next() {
		var r IndexRow
		var position int32
		if err := rows.Scan(&r.Schema, &r.Table, &r.IndexName, &r.Column, &position,
			&r.IsUnique, &r.IsPrimary, &r.IndexType); err != nil {
			return nil, err
		}
		r.Position = int(position)
		out = append(out, r)
	}
	return out, nil
}

func (a *Adapter) estimateRowCount(ctx context.Context, schema, table string) int64 {
	var estimate int64
	err := a.pool.QueryRow(ctx, `
		SELECT COALESCE(reltuples, 0)::bigint FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2`, schema, table).Scan(&estimate)
	if err != nil {
		return -1
	}
	return estimate
}

// SampleTable pulls up to limit rows from a table using the detected
// ordering strategy, converting each row to a JSON-safe representation.
func (a *Adapter) SampleTable(ctx context.Context, table model.Table, limit int, throttleMS int) (model.TableSample, error) {
	strategy := sample.DetectOrderingStrategy(table, "ctid")
	query := sample.BuildSampleQuery(sample.DialectPostgres, table.Schema, table.Name, strategy, "$1")

	rows, err := a.pool.Query(ctx, query, limit)
	if err != nil {
		return model.TableSample{}, dberrors.NewCollectionFailedError("sample table "+table.Name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var collected []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return model.TableSample{}, dberrors.NewCollectionFailedError("scan sample row", err)
		}
		row := make(map[string]any, len(values))
		for i, v := range values {
			row[string(fields[i].Name)] = v
		}
		collected = append(collected, sample.RowToJSON(row))
		if err := sample.Throttle(ctx, throttleMS); err != nil {
			return model.TableSample{}, err
		}
	}

	return model.TableSample{
		TableName:   table.Name,
		Schema:      table.Schema,
		Rows:        collected,
		SampleSize:  len(collected),
		Strategy:    strategy,
		CollectedAt: time.Now().UTC(),
		Warnings:    sample.TableWarnings(strategy, table.Columns),
	}, nil
}

func rewriteDatabase(dsn, database string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", dberrors.NewConfigurationError("dsn", "cannot parse connection URL")
	}
	u.Path = "/" + database
	u.RawPath = ""
	return u.String(), nil
}
