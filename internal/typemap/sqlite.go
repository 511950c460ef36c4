package typemap

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
)

var sqliteLengthRe = regexp.MustCompile(`\((\d+)\)`)

// MapSQLiteType applies SQLite's type-affinity rules (spec.md §4.3) to a
// column's declared type string exactly as it appears in
// sqlite_master/PRAGMA table_info — SQLite has no separate length/scale
// catalogue columns, so any "(N)" suffix is parsed out of declaredType
// itself.
func MapSQLiteType(declaredType string) model.UnifiedDataType {
	upper := strings.ToUpper(strings.TrimSpace(declaredType))
	maxLength := parseSQLiteLength(upper)

	switch {
	case upper == "":
		return model.Binary(nil)
	case matchesKeyword(upper, "BOOLEAN"):
		return model.Boolean()
	case matchesKeyword(upper, "DATETIME") || matchesKeyword(upper, "TIMESTAMP"):
		return model.DateTime(false)
	case matchesKeyword(upper, "DATE"):
		return model.Date()
	case matchesKeyword(upper, "TIME"):
		return model.Time(false)
	case matchesKeyword(upper, "UUID"):
		return model.UUID()
	case matchesKeyword(upper, "JSON"):
		return model.JSON()
	case strings.Contains(upper, "INT"):
		return model.Integer(sqliteIntBits(upper), true)
	case strings.Contains(upper, "CHAR") || strings.Contains(upper, "CLOB") || strings.Contains(upper, "TEXT"):
		return model.String(maxLength)
	case strings.Contains(upper, "FLOAT"):
		p := uint8(24)
		return model.Float(&p)
	case strings.Contains(upper, "REAL") || strings.Contains(upper, "DOUB"):
		p := uint8(53)
		return model.Float(&p)
	case strings.Contains(upper, "NUMERIC") || strings.Contains(upper, "DECIMAL"):
		return model.Float(nil)
	case strings.Contains(upper, "BLOB"):
		return model.Binary(nil)
	default:
		return model.Custom(declaredType)
	}
}

func sqliteIntBits(upper string) uint8 {
	switch {
	case strings.Contains(upper, "TINYINT"):
		return 8
	case strings.Contains(upper, "SMALLINT"), strings.Contains(upper, "INT2"):
		return 16
	case strings.Contains(upper, "MEDIUMINT"):
		return 24
	case strings.Contains(upper, "BIGINT"):
		return 64
	case strings.Contains(upper, "INT8"):
		return 64
	default:
		return 32
	}
}

func matchesKeyword(upper, keyword string) bool {
	return strings.Contains(upper, keyword)
}

func parseSQLiteLength(upper string) *uint32 {
	m := sqliteLengthRe.FindStringSubmatch(upper)
	if m == nil {
		return nil
	}
	n, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return nil
	}
	u := uint32(n)
	return &u
}
