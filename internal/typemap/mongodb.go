package typemap

import "github.com/dbsurveyor/dbsurveyor/internal/model"

// BSONKind is the small set of BSON type tags this tool distinguishes when
// inferring a MongoDB collection's schema (spec.md §4.6 MongoDB schema
// inference). It mirrors the subset of BSON types a document-value type
// switch needs, not the full BSON type catalogue.
type BSONKind string

const (
	BSONString    BSONKind = "string"
	BSONInt32     BSONKind = "int32"
	BSONInt64     BSONKind = "int64"
	BSONDouble    BSONKind = "double"
	BSONBool      BSONKind = "bool"
	BSONDateTime  BSONKind = "datetime"
	BSONBinary    BSONKind = "binary"
	BSONObjectID  BSONKind = "objectid"
	BSONArray     BSONKind = "array"
	BSONDocument  BSONKind = "document"
	BSONDecimal128 BSONKind = "decimal128"
	BSONNull      BSONKind = "null"
	BSONRegex     BSONKind = "regex"
)

// MapBSONType maps one observed BSON kind to UnifiedDataType. elementKind
// is consulted only when kind is BSONArray (recursive element mapping);
// pass BSONNull when the array's element type could not be determined from
// any sampled document.
//
// ObjectID narrows to Custom("ObjectId") rather than Uuid: a BSON
// ObjectID is a structurally distinct 12-byte engine value (4-byte
// timestamp + 5-byte random + 3-byte counter), not an RFC 4122 UUID, and
// using Uuid here would misrepresent it to any consumer that round-trips
// UnifiedDataType back into a UUID parser.
func MapBSONType(kind BSONKind, elementKind BSONKind) model.UnifiedDataType {
	switch kind {
	case BSONString:
		return model.String(nil)
	case BSONInt32:
		return model.Integer(32, true)
	case BSONInt64:
		return model.Integer(64, true)
	case BSONDouble:
		p := uint8(53)
		return model.Float(&p)
	case BSONDecimal128:
		return model.Float(nil)
	case BSONBool:
		return model.Boolean()
	case BSONDateTime:
		return model.DateTime(true)
	case BSONBinary:
		return model.Binary(nil)
	case BSONObjectID:
		return model.Custom("ObjectId")
	case BSONDocument:
		return model.JSON()
	case BSONArray:
		if elementKind == "" {
			elementKind = BSONNull
		}
		element := MapBSONType(elementKind, "")
		return model.Array(element)
	case BSONRegex:
		return model.Custom("Regex")
	case BSONNull:
		return model.JSON()
	default:
		return model.Custom(string(kind))
	}
}
