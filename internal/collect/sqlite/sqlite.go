// Package sqlite implements the SQLite schema collector over
// modernc.org/sqlite, a pure-Go driver requiring no cgo toolchain.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dbsurveyor/dbsurveyor/internal/adapter"
	"github.com/dbsurveyor/dbsurveyor/internal/collect"
	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/sample"
)

func init() {
	adapter.DefaultRegistry.Register(adapter.EngineSQLite, Construct)
}

// Adapter implements adapter.DatabaseAdapter and adapter.Sampler over a
// single-file SQLite database. SQLite has no connection pooling and no
// sibling databases, so MultiDatabaseAdapter is intentionally not
// implemented (adapter.SupportsFeature reports both false for this
// engine).
type Adapter struct {
	db   *sql.DB
	path string
	cfg  model.ConnectionConfig
}

// Construct opens a SQLite file. dsn may carry a sqlite:// scheme prefix
// or be a bare filesystem path (per adapter.DetectEngine's suffix-based
// fallback).
func Construct(ctx context.Context, dsn string, cfg model.ConnectionConfig) (adapter.DatabaseAdapter, error) {
	path := strings.TrimPrefix(dsn, "sqlite://")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, dberrors.NewConfigurationError("dsn", err.Error())
	}
	db.SetMaxOpenConns(1) // SQLite serializes writers; one connection avoids SQLITE_BUSY churn.

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, dberrors.NewConnectionError(dsn, err)
	}

	// SQLite has no connection pool (MaxOpenConns is pinned to 1 above), so
	// the after-connect hook other engines need to re-apply per physical
	// connection only needs to run once here, directly against that single
	// connection. Of the six mandatory session-policy steps, only lock-wait and read-only
	// have a SQLite equivalent: there is no session statement-timeout,
	// idle-in-transaction timeout, application_name, or session timezone
	// concept in SQLite.
	if err := applySessionPolicy(pingCtx, db, cfg); err != nil {
		db.Close()
		return nil, dberrors.NewConnectionError(dsn, err)
	}

	return &Adapter{db: db, path: path, cfg: cfg}, nil
}

func applySessionPolicy(ctx context.Context, db *sql.DB, cfg model.ConnectionConfig) error {
	statements := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", adapter.SessionLockTimeout.Milliseconds()),
	}
	if cfg.ReadOnly {
		statements = append(statements, "PRAGMA query_only = ON")
	}
	exec := func(ctx context.Context, statement string) error {
		_, err := db.ExecContext(ctx, statement)
		return err
	}
	return adapter.ApplySessionPolicy(ctx, exec, statements)
}

func (a *Adapter) DatabaseType() adapter.Engine { return adapter.EngineSQLite }

func (a *Adapter) SupportsFeature(f adapter.Feature) bool {
	return adapter.SupportsFeature(adapter.EngineSQLite, f)
}

func (a *Adapter) ConnectionConfig() model.ConnectionConfig { return a.cfg }

func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return dberrors.NewConnectionError(a.path, err)
	}
	return nil
}

func (a *Adapter) Close(_ context.Context) error { return a.db.Close() }

// CollectSchema introspects the file's schema via sqlite_master and the
// per-table PRAGMAs.
func (a *Adapter) CollectSchema(ctx context.Context) (*model.DatabaseSchema, error) {
	info, err := a.collectDatabaseInfo(ctx)
	if err != nil {
		return nil, err
	}

	meta := model.CollectionMetadata{DatabaseType: string(adapter.EngineSQLite)}
	schema := model.NewDatabaseSchema(info, meta)

	tableNames, err := a.discoverTableNames(ctx)
	if err != nil {
		return nil, dberrors.NewCollectionFailedError("discover tables", err)
	}

	for _, name := range tableNames {
		columnRows, err := a.tableInfo(ctx, name)
		if err != nil {
			// One unreadable table does not abort the run.
			continue
		}
		columns := AssembleColumns(columnRows)

		var primaryKey []string
		for _, c := range columns {
			if c.IsPrimaryKey {
				primaryKey = append(primaryKey, c.Name)
			}
		}

		fkRows, _ := a.foreignKeyList(ctx, name)
		idxRows, _ := a.indexList(ctx, name)

		table := model.Table{
			Name:              name,
			Columns:           columns,
			PrimaryKey:        primaryKey,
			ForeignKeys:       AssembleForeignKeys(fkRows),
			Indexes:           AssembleIndexes(name, idxRows),
			Constraints:       NotNullConstraints(name, columns),
			EstimatedRowCount: collect.RowCountPointer(a.estimateRowCount(ctx, name)),
		}
		schema.Tables = append(schema.Tables, table)
	}

	schema.AggregateFromTables()
	schema.CollectionMetadata.CompletedAt = time.Now().UTC()
	return schema, nil
}

func (a *Adapter) collectDatabaseInfo(ctx context.Context) (model.DatabaseInfo, error) {
	var version string
	if err := a.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return model.DatabaseInfo{}, dberrors.NewCollectionFailedError("collect database info", err)
	}
	return model.DatabaseInfo{
		Name: a.path, Version: collect.StringPtr(version),
		AccessLevel:      model.AccessFull,
		CollectionStatus: model.CollectionStatus{Kind: model.CollectionSuccess},
	}, nil
}

func (a *Adapter) discoverTableNames(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

func (a *Adapter) tableInfo(ctx context.Context, table string) ([]ColumnRow, error) {
	rows, err := a.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ColumnRow
	for rows.Next() {
		var r ColumnRow
		var notNull, pk int
		var defaultValue sql.NullString
		if err := rows.Scan(&r.CID, &r.Name, &r.DeclaredType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		r.NotNull = notNull != 0
		r.IsPrimaryKey = pk != 0
		if defaultValue.Valid {
			r.DefaultValue = &defaultValue.String
		}
		out = append(out, r)
	}
	return out, nil
}

func (a *Adapter) foreignKeyList(ctx context.Context, table string) ([]ForeignKeyRow, error) {
	rows, err := a.db.QueryContext(ctx, "PRAGMA foreign_key_list("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ForeignKeyRow
	for rows.Next() {
		var r ForeignKeyRow
		var match string
		if err := rows.Scan(&r.ID, &r.Seq, &r.ReferencedTable, &r.Column, &r.ReferencedColumn, &r.OnUpdate, &r.OnDelete, &match); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (a *Adapter) indexList(ctx context.Context, table string) ([]IndexRow, error) {
	rows, err := a.db.QueryContext(ctx, "PRAGMA index_list("+quoteIdent(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type idxMeta struct {
		name   string
		unique bool
	}
	var metas []idxMeta
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		metas = append(metas, idxMeta{name: name, unique: unique != 0})
	}
	rows.Close()

	var out []IndexRow
	for _, m := range metas {
		infoRows, err := a.db.QueryContext(ctx, "PRAGMA index_info("+quoteIdent(m.name)+")")
		if err != nil {
			continue
		}
		for infoRows.Next() {
			var seqno, cid int
			var colName string
			if err := infoRows.Scan(&seqno, &cid, &colName); err != nil {
				continue
			}
			out = append(out, IndexRow{IndexName: m.name, IsUnique: m.unique, Column: colName, SeqNo: seqno})
		}
		infoRows.Close()
	}
	return out, nil
}

func (a *Adapter) estimateRowCount(ctx context.Context, table string) int64 {
	var count int64
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&count); err != nil {
		return -1
	}
	return count
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SampleTable pulls up to limit rows using rowid as the system fallback
// ordering (SQLite's implicit rowid is the SystemRowId
// strategy when no primary key or timestamp column is present).
func (a *Adapter) SampleTable(ctx context.Context, table model.Table, limit int, throttleMS int) (model.TableSample, error) {
	strategy := sample.DetectOrderingStrategy(table, "rowid")
	query := sample.BuildSampleQuery(sample.DialectSQLite, nil, table.Name, strategy, "?")

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
		TableName: table.Name, Rows: collected, SampleSize: len(collected),
		Strategy: strategy, CollectedAt: time.Now().UTC(),
		Warnings: sample.TableWarnings(strategy, table.Columns),
	}, nil
}
