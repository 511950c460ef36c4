package mssql

import (
	"sort"

	"github.com/dbsurveyor/dbsurveyor/internal/collect"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/typemap"
)

// ColumnRow is one sys.columns/sys.types join row.
type ColumnRow struct {
	Schema          string
	Table           string
	Column          string
	TypeName        string
	MaxLength       int64
	IsNullable      bool
	ColumnDefault   *string
	OrdinalPosition int
	IsPrimaryKey    bool
	IsAutoIncrement bool
}

// AssembleColumns groups column rows by (schema, table) in ordinal order.
func AssembleColumns(rows []ColumnRow) map[string][]model.Column {
	byTable := make(map[string][]ColumnRow)
	for _, r := range rows {
		key := r.Schema + "." + r.Table
		byTable[key] = append(byTable[key], r)
	}

	result := make(map[string][]model.Column, len(byTable))
	for key, trows := range byTable {
		sort.Slice(trows, func(i, j int) bool { return trows[i].OrdinalPosition < trows[j].OrdinalPosition })
		columns := make([]model.Column, 0, len(trows))
		for _, r := range trows {
			maxLen := r.MaxLength
			columns = append(columns, model.Column{
				Name:            r.Column,
				DataType:        typemap.MapMSSQLType(typemap.MSSQLColumn{DataType: r.TypeName, MaxLength: &maxLen}),
				IsNullable:      r.IsNullable,
				IsPrimaryKey:    r.IsPrimaryKey,
				IsAutoIncrement: r.IsAutoIncrement,
				DefaultValue:    r.ColumnDefault,
				OrdinalPosition: r.OrdinalPosition,
			})
		}
		result[key] = columns
	}
	return result
}

// ForeignKeyRow is one row of sys.foreign_key_columns, keyed by
// constraint_object_id with its constraint_column_id giving ordinal
// position within a composite key.
type ForeignKeyRow struct {
	Schema            string
	Table             string
	ConstraintName    string
	ConstraintID      int64
	ColumnPosition    int
	Column            string
	ReferencedSchema  string
	ReferencedTable   string
	ReferencedColumn  string
	OnDelete          string
	OnUpdate          string
}

// AssembleForeignKeys groups rows by constraint_object_id, columns ordered
// by constraint_column_id, never by name.
func AssembleForeignKeys(rows []ForeignKeyRow) map[string][]model.ForeignKey {
	type key struct {
		schema, table string
		id            int64
	}
	grouped := make(map[key][]ForeignKeyRow)
	var order []key

	for _, r := range rows {
		k := key{r.Schema, r.Table, r.ConstraintID}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], r)
	}

	result := make(map[string][]model.ForeignKey)
	for _, k := range order {
		members := grouped[k]
		sort.Slice(members, func(i, j int) bool { return members[i].ColumnPosition < members[j].ColumnPosition })

		onDelete := mapReferentialAction(members[0].OnDelete)
		onUpdate := mapReferentialAction(members[0].OnUpdate)
		fk := model.ForeignKey{
			Name:             collect.StringPtr(members[0].ConstraintName),
			ReferencedTable:  members[0].ReferencedTable,
			ReferencedSchema: collect.StringPtr(members[0].ReferencedSchema),
			OnDelete:         &onDelete,
			OnUpdate:         &onUpdate,
		}
		for _, m := range members {
			fk.Columns = append(fk.Columns, m.Column)
			fk.ReferencedColumns = append(fk.ReferencedColumns, m.ReferencedColumn)
		}
		result[k.schema+"."+k.table] = append(result[k.schema+"."+k.table], fk)
	}
	return result
}

func mapReferentialAction(action string) model.ReferentialAction {
	switch action {
	case "CASCADE":
		return model.ActionCascade
	case "SET_NULL", "SET NULL":
		return model.ActionSetNull
	case "SET_DEFAULT", "SET DEFAULT":
		return model.ActionSetDefault
	case "NO_ACTION", "NO ACTION":
		return model.ActionNoAction
	default:
		return model.ActionRestrict
	}
}

// IndexRow is one sys.indexes/sys.index_columns join row.
type IndexRow struct {
	Schema     string
	Table      string
	IndexName  string
	Column     string
	KeyOrdinal int
	Descending bool
	IsUnique   bool
	IsPrimary  bool
	IndexType  string
}

// AssembleIndexes groups rows by index name, columns ordered by
// key_ordinal, with per-column sort direction (spec.md §4.6: "index sort
// direction is recorded per dialect, not assumed ascending").
func AssembleIndexes(rows []IndexRow) map[string][]model.Index {
	type key struct{ schema, table, name string }
	grouped := make(map[key][]IndexRow)
	var order []key

	for _, r := range rows {
		k := key{r.Schema, r.Table, r.IndexName}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], r)
	}

	result := make(map[string][]model.Index)
	for _, k := range order {
		members := grouped[k]
		sort.Slice(members, func(i, j int) bool { return members[i].KeyOrdinal < members[j].KeyOrdinal })

		indexType := members[0].IndexType
		idx := model.Index{
			Name: k.name, TableName: k.table, Schema: collect.StringPtr(k.schema),
			IsUnique: members[0].IsUnique, IsPrimary: members[0].IsPrimary, IndexType: &indexType,
		}
		for _, m := range members {
			direction := model.SortAscending
			if m.Descending {
				direction = model.SortDescending
			}
			idx.Columns = append(idx.Columns, model.IndexColumn{Column: m.Column, Direction: &direction})
		}
		result[k.schema+"."+k.table] = append(result[k.schema+"."+k.table], idx)
	}
	return result
}
