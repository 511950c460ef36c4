// Package mongodb implements the MongoDB schema collector: collections are
// treated as tables with a schema inferred from a document sample, since
// MongoDB carries no catalog-level column definitions.
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/dbsurveyor/dbsurveyor/internal/adapter"
	"github.com/dbsurveyor/dbsurveyor/internal/collect"
	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/sample"
)

func init() {
	adapter.DefaultRegistry.Register(adapter.EngineMongoDB, Construct)
}

// inferenceSampleSize is how many documents CollectSchema reads per
// collection to infer its field union, independent of any later
// data-sampling pass run over the same collection.
const inferenceSampleSize = 100

// Adapter implements adapter.DatabaseAdapter and adapter.Sampler over the
// official MongoDB Go driver. MongoDB has no sibling-database enumeration
// analogous to a single connected instance's other databases in the
// orchestrator's sense (each is its own independent namespace root), so
// MultiDatabaseAdapter is intentionally not implemented.
type Adapter struct {
	client *mongo.Client
	db     *mongo.Database
	uri    string
	cfg    model.ConnectionConfig
}

// Construct connects to a MongoDB deployment and selects the database
// named in the connection string's path.
//
// Construct's options apply as much of the mandatory session policy as the
// driver exposes: SetAppName covers the application-name step, and
// SetTimeout covers the statement/operation timeout step via the driver's
// Client Side Operation Timeout default applied to every operation on this
// client. MongoDB has no session-level lock-wait or idle-in-transaction
// timeout to set (SetMaxConnIdleTime already bounds idle pooled
// connections), no read-only session mode (matching this engine's
// FeatureReadOnlyMode=false), and no session time zone concept (BSON dates
// are always stored as UTC instants).
func Construct(ctx context.Context, dsn string, cfg model.ConnectionConfig) (adapter.DatabaseAdapter, error) {
	opts := options.Client().ApplyURI(dsn).
		SetMaxPoolSize(uint64(cfg.MaxConnections)).
		SetMinPoolSize(uint64(cfg.MinIdleConnections)).
		SetMaxConnIdleTime(cfg.IdleTimeout).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAppName(adapter.AppName(adapter.ToolVersion))
	if cfg.QueryTimeout > 0 {
		opts = opts.SetTimeout(cfg.QueryTimeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, dberrors.NewConfigurationError("dsn", err.Error())
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, dberrors.NewConnectionError(dsn, err)
	}

	dbName := ""
	if cfg.Database != nil {
		dbName = *cfg.Database
	}
	return &Adapter{client: client, db: client.Database(dbName), uri: dsn, cfg: cfg}, nil
}

func (a *Adapter) DatabaseType() adapter.Engine { return adapter.EngineMongoDB }

func (a *Adapter) SupportsFeature(f adapter.Feature) bool {
	return adapter.SupportsFeature(adapter.EngineMongoDB, f)
}

func (a *Adapter) ConnectionConfig() model.ConnectionConfig { return a.cfg }

func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.client.Ping(ctx, readpref.Primary()); err != nil {
		return dberrors.NewConnectionError(a.uri, err)
	}
	return nil
}

func (a *Adapter) Close(ctx context.Context) error { return a.client.Disconnect(ctx) }

// CollectSchema treats each collection as a table, inferring its columns
// from a bounded document sample and marking `_id` as the primary key.
func (a *Adapter) CollectSchema(ctx context.Context) (*model.DatabaseSchema, error) {
	info, err := a.collectDatabaseInfo(ctx)
	if err != nil {
		return nil, err
	}

	meta := model.CollectionMetadata{DatabaseType: string(adapter.EngineMongoDB)}
	schema := model.NewDatabaseSchema(info, meta)

	names, err := a.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, dberrors.NewCollectionFailedError("list collections", err)
	}

	for _, name := range names {
		docs, err := a.sampleDocuments(ctx, name, inferenceSampleSize)
		if err != nil {
			// Per-collection failure isolation: skip this collection, keep
			// going.
			continue
		}

		indexes, _ := a.discoverIndexes(ctx, name)

		table := model.Table{
			Name:              name,
			Columns:           InferSchema(docs),
			Indexes:           indexes,
			EstimatedRowCount: collect.RowCountPointer(a.estimateRowCount(ctx, name)),
		}
		for i := range table.Columns {
			if table.Columns[i].Name == "_id" {
				table.Columns[i].IsPrimaryKey = true
				table.PrimaryKey = []string{"_id"}
			}
		}
		schema.Tables = append(schema.Tables, table)
	}

	schema.AggregateFromTables()
	schema.CollectionMetadata.CompletedAt = time.Now().UTC()
	return schema, nil
}

func (a *Adapter) collectDatabaseInfo(ctx context.Context) (model.DatabaseInfo, error) {
	var buildInfo bson.M
	if err := a.db.RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&buildInfo); err != nil {
		return model.DatabaseInfo{}, dberrors.NewCollectionFailedError("collect database info", err)
	}
	version, _ := buildInfo["version"].(string)
	return model.DatabaseInfo{
		Name: a.db.Name(), Version: collect.StringPtr(version),
		AccessLevel:      model.AccessFull,
		CollectionStatus: model.CollectionStatus{Kind: model.CollectionSuccess},
	}, nil
}

func (a *Adapter) sampleDocuments(ctx context.Context, collection string, limit int64) ([]bson.M, error) {
	cursor, err := a.db.Collection(collection).Find(ctx, bson.D{}, options.Find().SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (a *Adapter) discoverIndexes(ctx context.Context, collection string) ([]model.Index, error) {
	cursor, err := a.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}

	var out []model.Index
	for _, r := range raw {
		name, _ := r["name"].(string)
		unique, _ := r["unique"].(bool)
		indexType := "btree"
		idx := model.Index{Name: name, TableName: collection, IsUnique: unique, IndexType: &indexType}
		if keyDoc, ok := r["key"].(bson.M); ok {
			keys := make([]string, 0, len(keyDoc))
			for k := range keyDoc {
				keys = append(keys, k)
			}
			for _, k := range keys {
				direction := model.SortAscending
				if v, ok := keyDoc[k].(int32); ok && v < 0 {
					direction = model.SortDescending
				}
				idx.Columns = append(idx.Columns, model.IndexColumn{Column: k, Direction: &direction})
			}
		}
		out = append(out, idx)
	}
	return out, nil
}

func (a *Adapter) estimateRowCount(ctx context.Context, collection string) int64 {
	count, err := a.db.Collection(collection).EstimatedDocumentCount(ctx)
	if err != nil {
		return -1
	}
	return count
}

// SampleTable pulls up to limit documents from a collection. MongoDB has
// no ordering-strategy analogue to a relational table's columns, so rows
// are always drawn in natural order and converted to the same JSON-safe
// representation as every other engine's samples.
func (a *Adapter) SampleTable(ctx context.Context, table model.Table, limit int, throttleMS int) (model.TableSample, error) {
	docs, err := a.sampleDocuments(ctx, table.Name, int64(limit))
	if err != nil {
		return model.TableSample{}, dberrors.NewCollectionFailedError("sample collection "+table.Name, err)
	}

	var collected []map[string]any
	for _, d := range docs {
		collected = append(collected, sample.RowToJSON(map[string]any(d)))
		if err := sample.Throttle(ctx, throttleMS); err != nil {
			return model.TableSample{}, err
		}
	}

	strategy := model.UnorderedOrdering()
	return model.TableSample{
		TableName:   table.Name,
		Rows:        collected,
		SampleSize:  len(collected),
		Strategy:    strategy,
		CollectedAt: time.Now().UTC(),
		Warnings:    sample.TableWarnings(strategy, table.Columns),
	}, nil
}
