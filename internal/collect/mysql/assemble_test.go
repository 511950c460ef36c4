package mysql

import (
	"testing"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleColumnsTinyIntOneIsBoolean(t *testing.T) {
	rows := []ColumnRow{
		{Schema: "app", Table: "users", Column: "active", DataType: "tinyint", ColumnType: "tinyint(1)", OrdinalPosition: 1},
		{Schema: "app", Table: "users", Column: "id", DataType: "int", ColumnType: "int unsigned", OrdinalPosition: 0, IsPrimaryKey: true, IsAutoIncrement: true},
	}
	byTable := AssembleColumns(rows)
	cols := byTable["app.users"]
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, model.TypeBoolean, cols[1].DataType.Kind)
	assert.False(t, cols[0].DataType.Signed)
	assert.True(t, cols[0].IsAutoIncrement)
}

func TestAssembleForeignKeysOrdersByOrdinalPosition(t *testing.T) {
	rows := []ForeignKeyRow{
		{Schema: "app", Table: "orders", ConstraintName: "fk_composite", Column: "b", OrdinalPosition: 2,
			ReferencedTable: "regions", ReferencedColumn: "b", OnDelete: "CASCADE", OnUpdate: "NO ACTION"},
		{Schema: "app", Table: "orders", ConstraintName: "fk_composite", Column: "a", OrdinalPosition: 1,
			ReferencedTable: "regions", ReferencedColumn: "a", OnDelete: "CASCADE", OnUpdate: "NO ACTION"},
	}
	byTable := AssembleForeignKeys(rows)
	fks := byTable["app.orders"]
	require.Len(t, fks, 1)
	assert.Equal(t, []string{"a", "b"}, fks[0].Columns)
}

func TestAssembleIndexesSplitsGroupConcat(t *testing.T) {
	rows := []IndexRow{
		{Schema: "app", Table: "users", IndexName: "idx", Columns: []string{"last_name", "first_name"}, IsUnique: true},
	}
	byTable := AssembleIndexes(rows)
	idx := byTable["app.users"]
	require.Len(t, idx, 1)
	require.Len(t, idx[0].Columns, 2)
	assert.Equal(t, "last_name", idx[0].Columns[0].Column)
}

func TestSupportsCheckConstraintsRequires80(t *testing.T) {
	assert.False(t, SupportsCheckConstraints(5, 7))
	assert.True(t, SupportsCheckConstraints(8, 0))
	assert.True(t, SupportsCheckConstraints(9, 1))
}

func TestAssembleCheckConstraints(t *testing.T) {
	rows := []CheckConstraintRow{{Schema: "app", Table: "orders", Name: "chk_qty", Clause: "(`qty` > 0)"}}
	byTable := AssembleCheckConstraints(rows)
	cs := byTable["app.orders"]
	require.Len(t, cs, 1)
	assert.Equal(t, model.ConstraintCheck, cs[0].Kind)
}
