package typemap

import (
	"strings"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
)

// MySQLColumn carries the COLUMN_TYPE/DATA_TYPE pair MySQL's
// information_schema.columns exposes, per spec.md §4.3: COLUMN_TYPE carries
// the "unsigned" marker and any display-width/enum-values DATA_TYPE drops.
type MySQLColumn struct {
	DataType   string // e.g. "varchar", "int", "tinyint", "enum"
	ColumnType string // e.g. "int(11) unsigned", "tinyint(1)", "enum('a','b')"
	MaxLength  *int64
}

// MapMySQLType maps one column to UnifiedDataType. TINYINT(1) is reported
// as Boolean — the common MySQL convention this engine's drivers and ORMs
// follow — while any other TINYINT width is Integer{bits=8}.
func MapMySQLType(c MySQLColumn) model.UnifiedDataType {
	columnType := strings.ToLower(c.ColumnType)
	dataType := strings.ToLower(c.DataType)
	signed := !strings.Contains(columnType, "unsigned")

	switch dataType {
	case "tinyint":
		if strings.Contains(columnType, "tinyint(1)") {
			return model.Boolean()
		}
		return model.Integer(8, signed)
	case "smallint":
		return model.Integer(16, signed)
	case "mediumint":
		return model.Integer(24, signed)
	case "int", "integer":
		return model.Integer(32, signed)
	case "bigint":
		return model.Integer(64, signed)
	case "decimal", "numeric":
		return model.Float(nil)
	case "float":
		p := uint8(24)
		return model.Float(&p)
	case "double", "double precision":
		p := uint8(53)
		return model.Float(&p)
	case "bit":
		if strings.Contains(columnType, "bit(1)") {
			return model.Boolean()
		}
		return model.Custom(c.ColumnType)
	case "char", "varchar":
		return model.String(lengthPtr(c.MaxLength))
	case "tinytext", "text", "mediumtext", "longtext":
		return model.String(nil)
	case "binary", "varbinary":
		return model.Binary(lengthPtr(c.MaxLength))
	case "tinyblob", "blob", "mediumblob", "longblob":
		return model.Binary(nil)
	case "date":
		return model.Date()
	case "time":
		return model.Time(false)
	case "datetime":
		return model.DateTime(false)
	case "timestamp":
		// MySQL TIMESTAMP is always stored in UTC and converted on
		// retrieval — the closest unified concept is timezone-aware.
		return model.DateTime(true)
	case "year":
		return model.Integer(16, false)
	case "json":
		return model.JSON()
	case "enum", "set":
		return model.Custom(c.ColumnType)
	default:
		return model.Custom(c.ColumnType)
	}
}
