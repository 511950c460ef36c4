package mysql

import (
	"sort"

	"github.com/dbsurveyor/dbsurveyor/internal/collect"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/typemap"
)

// ColumnRow is one INFORMATION_SCHEMA.COLUMNS row.
type ColumnRow struct {
	Schema          string
	Table           string
	Column          string
	DataType        string
	ColumnType      string
	IsNullable      bool
	ColumnDefault   *string
	MaxLength       *int64
	OrdinalPosition int
	IsPrimaryKey    bool
	IsAutoIncrement bool
	Comment         string
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
			columns = append(columns, model.Column{
				Name: r.Column,
				DataType: typemap.MapMySQLType(typemap.MySQLColumn{
					DataType: r.DataType, ColumnType: r.ColumnType, MaxLength: r.MaxLength,
				}),
				IsNullable:      r.IsNullable,
				IsPrimaryKey:    r.IsPrimaryKey,
				IsAutoIncrement: r.IsAutoIncrement,
				DefaultValue:    r.ColumnDefault,
				Comment:         collect.StringPtr(r.Comment),
				OrdinalPosition: r.OrdinalPosition,
			})
		}
		result[key] = columns
	}
	return result
}

// ForeignKeyRow is one row of a composite foreign key's
// key_column_usage/referential_constraints join.
type ForeignKeyRow struct {
	Schema           string
	Table            string
	ConstraintName   string
	Column           string
	OrdinalPosition  int
	ReferencedSchema string
	ReferencedTable  string
	ReferencedColumn string
	OnDelete         string
	OnUpdate         string
}

// AssembleForeignKeys groups rows by constraint name, columns ordered by
// KEY_COLUMN_USAGE.ORDINAL_POSITION (position within the key), never by name.
func AssembleForeignKeys(rows []ForeignKeyRow) map[string][]model.ForeignKey {
	type key struct{ schema, table, name string }
	grouped := make(map[key][]ForeignKeyRow)
	var order []key

	for _, r := range rows {
		k := key{r.Schema, r.Table, r.ConstraintName}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], r)
	}

	result := make(map[string][]model.ForeignKey)
	for _, k := range order {
		members := grouped[k]
		sort.Slice(members, func(i, j int) bool { return members[i].OrdinalPosition < members[j].OrdinalPosition })

		onDelete := mapReferentialAction(members[0].OnDelete)
		onUpdate := mapReferentialAction(members[0].OnUpdate)
		fk := model.ForeignKey{
			Name:             collect.StringPtr(k.name),
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
	case "SET NULL":
		return model.ActionSetNull
	case "SET DEFAULT":
		return model.ActionSetDefault
	case "RESTRICT":
		return model.ActionRestrict
	default:
		return model.ActionNoAction
	}
}

// IndexRow is one GROUP_CONCAT'd index row: one row per index, its column
// list already ordered by SEQ_IN_INDEX at the SQL layer.
type IndexRow struct {
	Schema    string
	Table     string
	IndexName string
	Columns   []string
	IsUnique  bool
	IsPrimary bool
}

// AssembleIndexes converts already-grouped index rows to model.Index.
func AssembleIndexes(rows []IndexRow) map[string][]model.Index {
	result := make(map[string][]model.Index)
	for _, r := range rows {
		indexType := "btree"
		idx := model.Index{
			Name: r.IndexName, TableName: r.Table, Schema: collect.StringPtr(r.Schema),
			IsUnique: r.IsUnique, IsPrimary: r.IsPrimary, IndexType: &indexType,
		}
		for _, c := range r.Columns {
			direction := model.SortAscending
			idx.Columns = append(idx.Columns, model.IndexColumn{Column: c, Direction: &direction})
		}
		result[r.Schema+"."+r.Table] = append(result[r.Schema+"."+r.Table], idx)
	}
	return result
}

// CheckConstraintRow is one row from INFORMATION_SCHEMA.CHECK_CONSTRAINTS,
// only populated on MySQL 8.0+ (spec.md §4.6: "CHECK constraints require
// MySQL 8.0+").
type CheckConstraintRow struct {
	Schema string
	Table  string
	Name   string
	Clause string
}

// AssembleCheckConstraints converts check-constraint rows into
// model.Constraint values.
func AssembleCheckConstraints(rows []CheckConstraintRow) map[string][]model.Constraint {
	result := make(map[string][]model.Constraint)
	for _, r := range rows {
		result[r.Schema+"."+r.Table] = append(result[r.Schema+"."+r.Table], model.Constraint{
			Name: r.Name, TableName: r.Table, Schema: collect.StringPtr(r.Schema),
			Kind: model.ConstraintCheck, Expression: collect.StringPtr(r.Clause),
		})
	}
	return result
}

// SupportsCheckConstraints reports whether the connected server's version
// string indicates 8.0 or newer.
func SupportsCheckConstraints(versionMajor, versionMinor int) bool {
	return versionMajor > 8 || (versionMajor == 8 && versionMinor >= 0)
}
