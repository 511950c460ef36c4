package sqlite

import (
	"testing"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleColumnsSynthesizesAutoIncrementForIntegerPK(t *testing.T) {
	rows := []ColumnRow{
		{CID: 1, Name: "name", DeclaredType: "TEXT"},
		{CID: 0, Name: "id", DeclaredType: "INTEGER", IsPrimaryKey: true, NotNull: true},
	}
	cols := AssembleColumns(rows)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.True(t, cols[0].IsAutoIncrement)
	assert.False(t, cols[0].IsNullable)
	assert.True(t, cols[1].IsNullable)
}

func TestNotNullConstraintsSynthesizedPerColumn(t *testing.T) {
	cols := []model.Column{
		{Name: "id", IsNullable: false},
		{Name: "nickname", IsNullable: true},
	}
	constraints := NotNullConstraints("users", cols)
	require.Len(t, constraints, 1)
	assert.Equal(t, model.ConstraintNotNull, constraints[0].Kind)
	assert.Equal(t, []string{"id"}, constraints[0].Columns)
}

func TestAssembleForeignKeysGroupsByIDOrdersBySeq(t *testing.T) {
	rows := []ForeignKeyRow{
		{ID: 0, Seq: 1, ReferencedTable: "regions", Column: "b", ReferencedColumn: "b", OnDelete: "CASCADE"},
		{ID: 0, Seq: 0, ReferencedTable: "regions", Column: "a", ReferencedColumn: "a", OnDelete: "CASCADE"},
	}
	fks := AssembleForeignKeys(rows)
	require.Len(t, fks, 1)
	assert.Equal(t, []string{"a", "b"}, fks[0].Columns)
	require.NotNil(t, fks[0].OnDelete)
	assert.Equal(t, model.ActionCascade, *fks[0].OnDelete)
}

func TestAssembleIndexesOrdersBySeqNo(t *testing.T) {
	rows := []IndexRow{
		{IndexName: "idx", Column: "last", SeqNo: 1, IsUnique: true},
		{IndexName: "idx", Column: "first", SeqNo: 0, IsUnique: true},
	}
	idx := AssembleIndexes("users", rows)
	require.Len(t, idx, 1)
	assert.Equal(t, "first", idx[0].Columns[0].Column)
	assert.Equal(t, "last", idx[0].Columns[1].Column)
}
