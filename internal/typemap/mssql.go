package typemap

import (
	"strings"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
)

// MSSQLColumn carries the sys.types-derived metadata for one column.
type MSSQLColumn struct {
	DataType  string // sys.types.name, e.g. "varchar", "int", "uniqueidentifier"
	MaxLength *int64 // bytes, as stored by SQL Server; -1 means MAX
}

// MapMSSQLType maps one column to UnifiedDataType using SQL Server's
// system type names.
func MapMSSQLType(c MSSQLColumn) model.UnifiedDataType {
	name := strings.ToLower(strings.TrimSpace(c.DataType))

	switch name {
	case "bit":
		return model.Boolean()
	case "tinyint":
		return model.Integer(8, false)
	case "smallint":
		return model.Integer(16, true)
	case "int":
		return model.Integer(32, true)
	case "bigint":
		return model.Integer(64, true)
	case "decimal", "numeric", "money", "smallmoney":
		return model.Float(nil)
	case "real":
		p := uint8(24)
		return model.Float(&p)
	case "float":
		p := uint8(53)
		return model.Float(&p)
	case "char", "varchar", "nchar", "nvarchar":
		return model.String(mssqlLength(c.MaxLength, name))
	case "text", "ntext":
		return model.String(nil)
	case "binary", "varbinary":
		return model.Binary(mssqlLength(c.MaxLength, name))
	case "image":
		return model.Binary(nil)
	case "date":
		return model.Date()
	case "time":
		return model.Time(false)
	case "smalldatetime", "datetime", "datetime2":
		return model.DateTime(false)
	case "datetimeoffset":
		return model.DateTime(true)
	case "uniqueidentifier":
		return model.UUID()
	case "xml":
		return model.Custom("xml")
	default:
		return model.Custom(c.DataType)
	}
}

func mssqlLength(maxLength *int64, name string) *uint32 {
	if maxLength == nil || *maxLength < 0 {
		return nil // MAX or unspecified
	}
	n := *maxLength
	// nchar/nvarchar store byte length as 2x character length.
	if strings.HasPrefix(name, "n") {
		n /= 2
	}
	u := uint32(n)
	return &u
}
