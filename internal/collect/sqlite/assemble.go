package sqlite

import (
	"sort"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/typemap"
)

// ColumnRow is one row of PRAGMA table_info(<table>).
type ColumnRow struct {
	CID          int
	Name         string
	DeclaredType string
	NotNull      bool
	DefaultValue *string
	IsPrimaryKey bool
}

// AssembleColumns maps PRAGMA table_info rows to model.Column in their
// declared CID order, synthesizing a NOT NULL constraint flag directly on
// the column (SQLite has no separate NOT NULL catalog entry — spec.md
// §4.6: "SQLite synthesizes NOT NULL constraints from table_info").
func AssembleColumns(rows []ColumnRow) []model.Column {
	sorted := append([]ColumnRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CID < sorted[j].CID })

	columns := make([]model.Column, 0, len(sorted))
	for _, r := range sorted {
		columns = append(columns, model.Column{
			Name:            r.Name,
			DataType:        typemap.MapSQLiteType(r.DeclaredType),
			IsNullable:      !r.NotNull,
			IsPrimaryKey:    r.IsPrimaryKey,
			IsAutoIncrement: r.IsPrimaryKey && isIntegerAffinity(r.DeclaredType),
			DefaultValue:    r.DefaultValue,
			OrdinalPosition: r.CID,
		})
	}
	return columns
}

func isIntegerAffinity(declaredType string) bool {
	dt := typemap.MapSQLiteType(declaredType)
	return dt.Kind == model.TypeInteger
}

// NotNullConstraints synthesizes one model.Constraint per NOT NULL column,
// since SQLite has no sqlite_master entry for column nullability.
func NotNullConstraints(table string, columns []model.Column) []model.Constraint {
	var out []model.Constraint
	for _, c := range columns {
		if !c.IsNullable {
			out = append(out, model.Constraint{
				TableName: table, Kind: model.ConstraintNotNull, Columns: []string{c.Name},
			})
		}
	}
	return out
}

// ForeignKeyRow is one row of PRAGMA foreign_key_list(<table>).
type ForeignKeyRow struct {
	ID               int
	Seq              int
	ReferencedTable  string
	Column           string
	ReferencedColumn string
	OnUpdate         string
	OnDelete         string
}

// AssembleForeignKeys groups PRAGMA foreign_key_list rows by their `id`
// (one id per key, possibly composite), columns ordered by `seq` — the
// PRAGMA's own ordinal, never by name.
func AssembleForeignKeys(rows []ForeignKeyRow) []model.ForeignKey {
	grouped := make(map[int][]ForeignKeyRow)
	var order []int
	for _, r := range rows {
		if _, ok := grouped[r.ID]; !ok {
			order = append(order, r.ID)
		}
		grouped[r.ID] = append(grouped[r.ID], r)
	}
	sort.Ints(order)

	var out []model.ForeignKey
	for _, id := range order {
		members := grouped[id]
		sort.Slice(members, func(i, j int) bool { return members[i].Seq < members[j].Seq })

		onDelete := mapReferentialAction(members[0].OnDelete)
		onUpdate := mapReferentialAction(members[0].OnUpdate)
		fk := model.ForeignKey{
			ReferencedTable: members[0].ReferencedTable,
			OnDelete:        &onDelete,
			OnUpdate:        &onUpdate,
		}
		for _, m := range members {
			fk.Columns = append(fk.Columns, m.Column)
			fk.ReferencedColumns = append(fk.ReferencedColumns, m.ReferencedColumn)
		}
		out = append(out, fk)
	}
	return out
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

// IndexRow is one row of PRAGMA index_list(<table>) joined with
// PRAGMA index_info(<index>).
type IndexRow struct {
	IndexName string
	IsUnique  bool
	Column    string
	SeqNo     int
}

// AssembleIndexes groups rows by index name, columns ordered by seqno.
func AssembleIndexes(table string, rows []IndexRow) []model.Index {
	grouped := make(map[string][]IndexRow)
	var order []string
	for _, r := range rows {
		if _, ok := grouped[r.IndexName]; !ok {
			order = append(order, r.IndexName)
		}
		grouped[r.IndexName] = append(grouped[r.IndexName], r)
	}

	var out []model.Index
	for _, name := range order {
		members := grouped[name]
		sort.Slice(members, func(i, j int) bool { return members[i].SeqNo < members[j].SeqNo })

		indexType := "btree"
		idx := model.Index{Name: name, TableName: table, IsUnique: members[0].IsUnique, IndexType: &indexType}
		for _, m := range members {
			direction := model.SortAscending
			idx.Columns = append(idx.Columns, model.IndexColumn{Column: m.Column, Direction: &direction})
		}
		out = append(out, idx)
	}
	return out
}
