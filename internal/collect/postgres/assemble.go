package postgres

import (
	"sort"

	"github.com/dbsurveyor/dbsurveyor/internal/collect"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/typemap"
)

// ColumnRow is one information_schema.columns row (joined to
// information_schema.tables), scanned from discoverColumns's query.
type ColumnRow struct {
	Schema          string
	Table           string
	Column          string
	DataType        string
	UDTName         string
	IsNullable      bool
	ColumnDefault   *string
	MaxLength       *int64
	NumericPrecision *int64
	NumericScale    *int64
	ArrayElementUDT *string
	OrdinalPosition int
	IsPrimaryKey    bool
	IsAutoIncrement bool
	Comment         *string
}

// AssembleColumns groups scanned column rows by (schema, table) and maps
// each to a model.Column in ordinal order, per spec.md §4.6's "columns are
// ordered by ordinal_position" rule.
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
			pgCol := typemap.PostgresColumn{
				DataType:         r.DataType,
				UDTName:          r.UDTName,
				MaxLength:        r.MaxLength,
				NumericPrecision: r.NumericPrecision,
				NumericScale:     r.NumericScale,
				ArrayElementType: r.ArrayElementUDT,
			}
			columns = append(columns, model.Column{
				Name:            r.Column,
				DataType:        typemap.MapPostgresType(pgCol),
				IsNullable:      r.IsNullable,
				IsPrimaryKey:    r.IsPrimaryKey,
				IsAutoIncrement: r.IsAutoIncrement,
				DefaultValue:    r.ColumnDefault,
				Comment:         r.Comment,
				OrdinalPosition: r.OrdinalPosition,
			})
		}
		result[key] = columns
	}
	return result
}

// ForeignKeyRow is one row of a multi-column foreign key's key_column_usage
// join, scanned with its ordinal position within the key.
type ForeignKeyRow struct {
	Schema            string
	Table             string
	ConstraintName    string
	Column            string
	OrdinalPosition   int
	ReferencedSchema  string
	ReferencedTable   string
	ReferencedColumn  string
	OnDelete          string
	OnUpdate          string
}

// AssembleForeignKeys groups rows by constraint name and orders each
// constraint's columns by ordinal position, never by name — PostgreSQL's
// catalog does not guarantee key_column_usage row order, so a multi-column
// key's referencing and referenced columns are paired up by position within
// the key, per spec.md §4.6.
func AssembleForeignKeys(rows []ForeignKeyRow) map[string][]model.ForeignKey {
	type constraintKey struct{ schema, table, name string }
	grouped := make(map[constraintKey][]ForeignKeyRow)
	var order []constraintKey

	for _, r := range rows {
		key := constraintKey{r.Schema, r.Table, r.ConstraintName}
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], r)
	}

	result := make(map[string][]model.ForeignKey)
	for _, key := range order {
		members := grouped[key]
		sort.Slice(members, func(i, j int) bool { return members[i].OrdinalPosition < members[j].OrdinalPosition })

		onDelete := mapReferentialAction(members[0].OnDelete)
		onUpdate := mapReferentialAction(members[0].OnUpdate)
		fk := model.ForeignKey{
			Name:             collect.StringPtr(key.name),
			ReferencedTable:  members[0].ReferencedTable,
			ReferencedSchema: collect.StringPtr(members[0].ReferencedSchema),
			OnDelete:         &onDelete,
			OnUpdate:         &onUpdate,
		}
		for _, m := range members {
			fk.Columns = append(fk.Columns, m.Column)
			fk.ReferencedColumns = append(fk.ReferencedColumns, m.ReferencedColumn)
		}

		tableKey := key.schema + "." + key.table
		result[tableKey] = append(result[tableKey], fk)
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

// IndexRow is one index-column row from pg_index/pg_attribute.
type IndexRow struct {
	Schema    string
	Table     string
	IndexName string
	Column    string
	Position  int
	Descending bool
	IsUnique  bool
	IsPrimary bool
	IndexType string
}

// AssembleIndexes groups index-column rows into model.Index values, columns
// ordered by their position within the index definition.
func AssembleIndexes(rows []IndexRow) map[string][]model.Index {
	type idxKey struct{ schema, table, name string }
	grouped := make(map[idxKey][]IndexRow)
	var order []idxKey

	for _, r := range rows {
		key := idxKey{r.Schema, r.Table, r.IndexName}
		if _, exists := grouped[key]; !exists {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], r)
	}

	result := make(map[string][]model.Index)
	for _, key := range order {
		members := grouped[key]
		sort.Slice(members, func(i, j int) bool { return members[i].Position < members[j].Position })

		indexType := members[0].IndexType
		idx := model.Index{
			Name:      key.name,
			TableName: key.table,
			Schema:    collect.StringPtr(key.schema),
			IsUnique:  members[0].IsUnique,
			IsPrimary: members[0].IsPrimary,
			IndexType: &indexType,
		}
		for _, m := range members {
			direction := model.SortAscending
			if m.Descending {
				direction = model.SortDescending
			}
			idx.Columns = append(idx.Columns, model.IndexColumn{Column: m.Column, Direction: &direction})
		}

		tableKey := key.schema + "." + key.table
		result[tableKey] = append(result[tableKey], idx)
	}
	return result
}
