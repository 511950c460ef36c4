package mssql

import (
	"testing"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleColumnsNVarcharHalvesByteLength(t *testing.T) {
	rows := []ColumnRow{
		{Schema: "dbo", Table: "users", Column: "name", TypeName: "nvarchar", MaxLength: 100, OrdinalPosition: 1},
	}
	byTable := AssembleColumns(rows)
	cols := byTable["dbo.users"]
	require.Len(t, cols, 1)
	require.NotNil(t, cols[0].DataType.MaxLength)
	assert.Equal(t, uint32(50), *cols[0].DataType.MaxLength)
}

func TestAssembleForeignKeysOrdersByConstraintColumnID(t *testing.T) {
	rows := []ForeignKeyRow{
		{Schema: "dbo", Table: "orders", ConstraintName: "fk", ConstraintID: 1, ColumnPosition: 2,
			Column: "b", ReferencedTable: "regions", ReferencedColumn: "b", OnDelete: "CASCADE", OnUpdate: "NO_ACTION"},
		{Schema: "dbo", Table: "orders", ConstraintName: "fk", ConstraintID: 1, ColumnPosition: 1,
			Column: "a", ReferencedTable: "regions", ReferencedColumn: "a", OnDelete: "CASCADE", OnUpdate: "NO_ACTION"},
	}
	byTable := AssembleForeignKeys(rows)
	fks := byTable["dbo.orders"]
	require.Len(t, fks, 1)
	assert.Equal(t, []string{"a", "b"}, fks[0].Columns)
	require.NotNil(t, fks[0].OnDelete)
	require.NotNil(t, fks[0].OnUpdate)
	assert.Equal(t, model.ActionCascade, *fks[0].OnDelete)
	assert.Equal(t, model.ActionNoAction, *fks[0].OnUpdate)
}

func TestAssembleIndexesRecordsPerColumnDirection(t *testing.T) {
	rows := []IndexRow{
		{Schema: "dbo", Table: "users", IndexName: "ix", Column: "created_at", KeyOrdinal: 1, Descending: true, IsUnique: false, IndexType: "NONCLUSTERED"},
	}
	byTable := AssembleIndexes(rows)
	idx := byTable["dbo.users"]
	require.Len(t, idx, 1)
	require.NotNil(t, idx[0].Columns[0].Direction)
	assert.Equal(t, model.SortDescending, *idx[0].Columns[0].Direction)
}
