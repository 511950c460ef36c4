package postgres

import (
	"testing"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleColumnsOrdersByOrdinalPosition(t *testing.T) {
	rows := []ColumnRow{
		{Schema: "public", Table: "users", Column: "name", DataType: "text", OrdinalPosition: 2},
		{Schema: "public", Table: "users", Column: "id", DataType: "integer", OrdinalPosition: 1, IsPrimaryKey: true},
	}
	byTable := AssembleColumns(rows)
	cols := byTable["public.users"]
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "name", cols[1].Name)
	assert.True(t, cols[0].IsPrimaryKey)
	assert.Equal(t, model.TypeInteger, cols[0].DataType.Kind)
}

func TestAssembleForeignKeysOrdersByOrdinalPositionNotName(t *testing.T) {
	rows := []ForeignKeyRow{
		{Schema: "public", Table: "orders", ConstraintName: "fk_composite", Column: "zone", OrdinalPosition: 2,
			ReferencedSchema: "public", ReferencedTable: "regions", ReferencedColumn: "zone", OnDelete: "NO ACTION", OnUpdate: "NO ACTION"},
		{Schema: "public", Table: "orders", ConstraintName: "fk_composite", Column: "country", OrdinalPosition: 1,
			ReferencedSchema: "public", ReferencedTable: "regions", ReferencedColumn: "country", OnDelete: "CASCADE", OnUpdate: "NO ACTION"},
	}
	byTable := AssembleForeignKeys(rows)
	fks := byTable["public.orders"]
	require.Len(t, fks, 1)
	assert.Equal(t, []string{"country", "zone"}, fks[0].Columns)
	assert.Equal(t, []string{"country", "zone"}, fks[0].ReferencedColumns)
	require.NotNil(t, fks[0].OnDelete)
	assert.Equal(t, model.ActionCascade, *fks[0].OnDelete)
}

func TestAssembleIndexesGroupsMultiColumn(t *testing.T) {
	rows := []IndexRow{
		{Schema: "public", Table: "users", IndexName: "idx_users_name_email", Column: "email", Position: 2, IndexType: "btree"},
		{Schema: "public", Table: "users", IndexName: "idx_users_name_email", Column: "name", Position: 1, IndexType: "btree", IsUnique: true},
	}
	byTable := AssembleIndexes(rows)
	idx := byTable["public.users"]
	require.Len(t, idx, 1)
	require.Len(t, idx[0].Columns, 2)
	assert.Equal(t, "name", idx[0].Columns[0].Column)
	assert.Equal(t, "email", idx[0].Columns[1].Column)
	assert.True(t, idx[0].IsUnique)
}

func TestMapReferentialActionUnknownDefaultsToNoAction(t *testing.T) {
	assert.Equal(t, model.ActionNoAction, mapReferentialAction("WHATEVER"))
	assert.Equal(t, model.ActionSetNull, mapReferentialAction("SET NULL"))
}
