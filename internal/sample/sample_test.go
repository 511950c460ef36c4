package sample

import (
	"context"
	"testing"
	"time"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectOrderingStrategyScenario(t *testing.T) {
	withPK := model.Table{
		Name:       "events",
		PrimaryKey: []string{"id"},
		Columns: []model.Column{
			{Name: "id", DataType: model.Integer(64, true), IsPrimaryKey: true},
			{Name: "name", DataType: model.String(nil)},
			{Name: "created_at", DataType: model.DateTime(true)},
		},
	}
	strategy := DetectOrderingStrategy(withPK, "")
	require.Equal(t, model.OrderByPrimaryKey, strategy.Kind)
	assert.Equal(t, []string{"id"}, strategy.Columns)

	clause := EmitOrderBy(DialectPostgres, strategy)
	assert.Equal(t, `ORDER BY "id" DESC`, clause)

	withoutPK := model.Table{
		Name: "events",
		Columns: []model.Column{
			{Name: "name", DataType: model.String(nil)},
			{Name: "created_at", DataType: model.DateTime(true)},
		},
	}
	strategy2 := DetectOrderingStrategy(withoutPK, "")
	require.Equal(t, model.OrderByTimestamp, strategy2.Kind)
	assert.Equal(t, "created_at", strategy2.Column)
	require.NotNil(t, strategy2.Direction)
	assert.Equal(t, model.SortDescending, *strategy2.Direction)
}

func TestDetectOrderingStrategyFallsBackToAutoIncrement(t *testing.T) {
	tbl := model.Table{
		Columns: []model.Column{
			{Name: "id", DataType: model.Integer(32, true), IsAutoIncrement: true},
			{Name: "payload", DataType: model.JSON()},
		},
	}
	strategy := DetectOrderingStrategy(tbl, "")
	assert.Equal(t, model.OrderByAutoIncrement, strategy.Kind)
	assert.Equal(t, "id", strategy.Column)
}

func TestDetectOrderingStrategyFallsBackToSystemRowID(t *testing.T) {
	tbl := model.Table{Columns: []model.Column{{Name: "payload", DataType: model.JSON()}}}
	strategy := DetectOrderingStrategy(tbl, "rowid")
	assert.Equal(t, model.OrderBySystemRowID, strategy.Kind)
	assert.Equal(t, "rowid", strategy.Column)
}

func TestDetectOrderingStrategyFallsBackToUnordered(t *testing.T) {
	tbl := model.Table{Columns: []model.Column{{Name: "payload", DataType: model.JSON()}}}
	strategy := DetectOrderingStrategy(tbl, "")
	assert.Equal(t, model.OrderUnordered, strategy.Kind)
}

func TestEmitOrderByUnorderedIsRandom(t *testing.T) {
	assert.Equal(t, "ORDER BY RANDOM()", EmitOrderBy(DialectPostgres, model.UnorderedOrdering()))
	assert.Equal(t, "ORDER BY RAND()", EmitOrderBy(DialectMySQL, model.UnorderedOrdering()))
}

func TestQuoteIdentifierPerDialect(t *testing.T) {
	assert.Equal(t, `"orders"`, QuoteIdentifier(DialectPostgres, "orders"))
	assert.Equal(t, "`orders`", QuoteIdentifier(DialectMySQL, "orders"))
	assert.Equal(t, "[orders]", QuoteIdentifier(DialectMSSQL, "orders"))
	assert.Equal(t, `"weird""name"`, QuoteIdentifier(DialectPostgres, `weird"name`))
}

func TestRowToJSONConvertsBytesToBase64(t *testing.T) {
	row := map[string]any{"blob": []byte("hi"), "name": "x", "deleted": nil}
	out := RowToJSON(row)
	assert.Equal(t, "base64:aGk=", out["blob"])
	assert.Equal(t, "x", out["name"])
	assert.Nil(t, out["deleted"])
}

func TestDetectSensitiveColumnsIsAdvisoryOnly(t *testing.T) {
	warnings := DetectSensitiveColumns([]string{"id", "password_hash", "email_address", "notes"})
	assert.Len(t, warnings, 2)
}

func TestThrottleRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Throttle(ctx, 1000)
	assert.Error(t, err)
}

func TestThrottleZeroIsNoop(t *testing.T) {
	start := time.Now()
	err := Throttle(context.Background(), 0)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
