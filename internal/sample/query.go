package sample

import (
	"fmt"
	"strings"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
)

// Dialect is the closed set of identifier-quoting / random-order styles
// this package knows how to emit SQL for.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
	DialectMSSQL    Dialect = "mssql"
)

// QuoteIdentifier quotes name per dialect: double-quoted with internal
// quotes doubled for PostgreSQL/SQLite, back-ticked for MySQL, bracketed
// for SQL Server.
func QuoteIdentifier(d Dialect, name string) string {
	switch d {
	case DialectMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case DialectMSSQL:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default: // Postgres, SQLite
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// QualifiedIdentifier joins an optional schema and a table/column name,
// quoting each part per dialect.
func QualifiedIdentifier(d Dialect, schema *string, name string) string {
	if schema == nil || *schema == "" {
		return QuoteIdentifier(d, name)
	}
	return QuoteIdentifier(d, *schema) + "." + QuoteIdentifier(d, name)
}

func randomClause(d Dialect) string {
	switch d {
	case DialectMySQL:
		return "ORDER BY RAND()"
	case DialectMSSQL:
		return "ORDER BY NEWID()"
	default: // Postgres, SQLite
		return "ORDER BY RANDOM()"
	}
}

// EmitOrderBy renders the ORDER BY clause for a chosen strategy. Direction
// defaults to descending (biasing toward the most recently written rows)
// except for explicit PrimaryKey/AutoIncrement/SystemRowId orderings,
// which also default to descending per the same rationale; Unordered
// emits the dialect's random-order clause so the sample isn't biased by
// physical storage order.
func EmitOrderBy(d Dialect, strategy model.OrderingStrategy) string {
	switch strategy.Kind {
	case model.OrderByPrimaryKey:
		parts := make([]string, len(strategy.Columns))
		for i, c := range strategy.Columns {
			parts[i] = QuoteIdentifier(d, c) + " DESC"
		}
		return "ORDER BY " + strings.Join(parts, ", ")
	case model.OrderByTimestamp:
		dir := "DESC"
		if strategy.Direction != nil && *strategy.Direction == model.SortAscending {
			dir = "ASC"
		}
		return fmt.Sprintf("ORDER BY %s %s", QuoteIdentifier(d, strategy.Column), dir)
	case model.OrderByAutoIncrement:
		return fmt.Sprintf("ORDER BY %s DESC", QuoteIdentifier(d, strategy.Column))
	case model.OrderBySystemRowID:
		return fmt.Sprintf("ORDER BY %s DESC", QuoteIdentifier(d, strategy.Column))
	default: // Unordered
		return randomClause(d)
	}
}

// BuildSampleQuery renders "SELECT * FROM <qualified-identifier>
// <order-by> LIMIT ?" per spec.md §4.7 step 3. The limit itself is left as
// a driver parameter placeholder — callers bind it, it is never
// interpolated as a literal.
func BuildSampleQuery(d Dialect, schema *string, table string, strategy model.OrderingStrategy, limitPlaceholder string) string {
	return fmt.Sprintf("SELECT * FROM %s %s LIMIT %s",
		QualifiedIdentifier(d, schema, table), EmitOrderBy(d, strategy), limitPlaceholder)
}
