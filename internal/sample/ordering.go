// Package sample implements per-table ordering-strategy detection, dialect
// aware ORDER BY emission, throttled row fetch, row-to-JSON conversion, and
// advisory sensitive-column detection (spec.md §4.7).
package sample

import (
	"fmt"
	"strings"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
)

// timestampKeywords is the closed set of column-name keywords that
// indicate a timestamp ordering column, per spec.md §4.7. Exact-name
// matches are checked before substring matches so e.g. a column literally
// named "created" wins over a column merely containing "created".
var timestampKeywords = []string{
	"created_at", "updated_at", "modified_at", "inserted_at", "timestamp",
	"created", "updated", "modified", "date_created", "date_updated",
	"date_modified", "createdat", "updatedat", "modifiedat",
	"creation_time", "modification_time", "update_time", "create_time",
}

func isTimestampType(dt model.UnifiedDataType) bool {
	switch dt.Kind {
	case model.TypeDateTime, model.TypeDate, model.TypeTime:
		return true
	default:
		return false
	}
}

// findTimestampColumn returns the name of the first column matching the
// timestamp-keyword set, preferring exact matches to substring matches.
func findTimestampColumn(columns []model.Column) (string, bool) {
	lowerName := func(c model.Column) string { return strings.ToLower(c.Name) }

	for _, kw := range timestampKeywords {
		for _, c := range columns {
			if lowerName(c) == kw && isTimestampType(c.DataType) {
				return c.Name, true
			}
		}
	}
	for _, kw := range timestampKeywords {
		for _, c := range columns {
			if strings.Contains(lowerName(c), kw) && isTimestampType(c.DataType) {
				return c.Name, true
			}
		}
	}
	return "", false
}

func findAutoIncrementColumn(columns []model.Column) (string, bool) {
	for _, c := range columns {
		if c.IsAutoIncrement {
			return c.Name, true
		}
	}
	return "", false
}

// DetectOrderingStrategy chooses the ordering strategy for table, in the
// priority order primary key → timestamp column → auto-increment →
// system row id → unordered. systemRowIDColumn is the engine-specific
// accessible row id column name ("rowid" for SQLite, "ctid" for
// PostgreSQL as a last resort), empty if the engine/table has none.
func DetectOrderingStrategy(table model.Table, systemRowIDColumn string) model.OrderingStrategy {
	if len(table.PrimaryKey) > 0 {
		return model.PrimaryKeyOrdering(table.PrimaryKey)
	}
	if col, ok := findTimestampColumn(table.Columns); ok {
		return model.TimestampOrdering(col, model.SortDescending)
	}
	if col, ok := findAutoIncrementColumn(table.Columns); ok {
		return model.AutoIncrementOrdering(col)
	}
	if systemRowIDColumn != "" {
		return model.SystemRowIDOrdering(systemRowIDColumn)
	}
	return model.UnorderedOrdering()
}

// TableWarnings builds the advisory warnings every engine's SampleTable
// attaches to the result: an Unordered-strategy notice (no stable column to
// order by, so repeated samples of the same table are not guaranteed to
// return the same rows) plus one warning per column DetectSensitiveColumns
// flags, run before every sampling pass per spec.md §4.7 step 5.
func TableWarnings(strategy model.OrderingStrategy, columns []model.Column) []string {
	var warnings []string
	if strategy.Kind == model.OrderUnordered {
		warnings = append(warnings, "no primary key, timestamp, auto-increment, or system row id column found; sample ordering is unordered and not reproducible across runs")
	}

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	for _, w := range DetectSensitiveColumns(names) {
		warnings = append(warnings, fmt.Sprintf("column %q matches the %q sensitive-data pattern group", w.Column, w.Group))
	}
	return warnings
}
