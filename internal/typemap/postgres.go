// Package typemap holds one pure, deterministic, exhaustive mapping
// function per engine translating that engine's declared column type
// (plus its length/precision/scale/element-type metadata) into
// model.UnifiedDataType. None of these functions touch the network; they
// operate only on strings and numbers already fetched by a collector.
package typemap

import (
	"strconv"
	"strings"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
)

// PostgresColumn carries the catalogue columns a collector fetched for one
// table column, grounded on the teacher's information_schema query in
// internal/database/postgres/schema.go (data_type, udt_name,
// character_maximum_length, numeric_precision, is ARRAY / USER-DEFINED).
type PostgresColumn struct {
	DataType         string // information_schema.columns.data_type ("ARRAY", "USER-DEFINED", "integer", ...)
	UDTName          string // pg_type.typname, e.g. "_int4", "bpchar", an enum name
	MaxLength        *int64
	NumericPrecision *int64
	NumericScale     *int64
	ArrayElementType *string // data_type of the array's element, when DataType == "ARRAY"
}

// MapPostgresType maps one column's catalogue metadata to UnifiedDataType.
// Arrays (DataType == "ARRAY", or a udt_name with a leading "_") recurse on
// the element type via a synthetic PostgresColumn built from
// ArrayElementType. Enums, geometric, network, range, and any type this
// function doesn't recognise map to Custom{udt_name}.
func MapPostgresType(c PostgresColumn) model.UnifiedDataType {
	if c.DataType == "ARRAY" || strings.HasPrefix(c.UDTName, "_") {
		elementTypeName := c.UDTName
		if strings.HasPrefix(elementTypeName, "_") {
			elementTypeName = elementTypeName[1:]
		}
		element := MapPostgresType(PostgresColumn{
			DataType: valueOr(c.ArrayElementType, elementTypeName),
			UDTName:  elementTypeName,
		})
		return model.Array(element)
	}

	if c.DataType == "USER-DEFINED" {
		return model.Custom(c.UDTName)
	}

	switch normalizePgName(c.DataType, c.UDTName) {
	case "smallint", "int2":
		return model.Integer(16, true)
	case "integer", "int", "int4", "serial":
		return model.Integer(32, true)
	case "bigint", "int8", "bigserial":
		return model.Integer(64, true)
	case "boolean", "bool":
		return model.Boolean()
	case "real", "float4":
		p := uint8(24)
		return model.Float(&p)
	case "double precision", "float8":
		p := uint8(53)
		return model.Float(&p)
	case "numeric", "decimal":
		return model.Float(nil)
	case "character varying", "varchar":
		return model.String(lengthPtr(c.MaxLength))
	case "character", "char", "bpchar":
		return model.String(lengthPtr(c.MaxLength))
	case "text":
		return model.String(nil)
	case "bytea":
		return model.Binary(nil)
	case "timestamp without time zone", "timestamp":
		return model.DateTime(false)
	case "timestamp with time zone", "timestamptz":
		return model.DateTime(true)
	case "date":
		return model.Date()
	case "time without time zone", "time":
		return model.Time(false)
	case "time with time zone", "timetz":
		return model.Time(true)
	case "json", "jsonb":
		return model.JSON()
	case "uuid":
		return model.UUID()
	default:
		return model.Custom(valueOr(&c.UDTName, c.DataType))
	}
}

func normalizePgName(dataType, udtName string) string {
	name := strings.ToLower(strings.TrimSpace(dataType))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(udtName))
	}
	return name
}

func lengthPtr(v *int64) *uint32 {
	if v == nil || *v < 0 {
		return nil
	}
	u := uint32(*v)
	return &u
}

func valueOr(ptr *string, fallback string) string {
	if ptr == nil || *ptr == "" {
		return fallback
	}
	return *ptr
}

// FormatNumeric renders a numeric precision/scale pair for diagnostics;
// unused values are omitted.
func FormatNumeric(precision, scale *int64) string {
	if precision == nil {
		return ""
	}
	if scale == nil {
		return strconv.FormatInt(*precision, 10)
	}
	return strconv.FormatInt(*precision, 10) + "," + strconv.FormatInt(*scale, 10)
}
