package typemap

import (
	"encoding/json"
	"testing"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, dt model.UnifiedDataType) model.UnifiedDataType {
	t.Helper()
	b, err := json.Marshal(dt)
	require.NoError(t, err)
	var out model.UnifiedDataType
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestMapSQLiteTypeScenarios(t *testing.T) {
	length255 := uint32(255)
	assert.Equal(t, model.String(&length255), MapSQLiteType("VARCHAR(255)"))
	assert.Equal(t, model.Integer(32, true), MapSQLiteType("INTEGER"))
	assert.Equal(t, model.Binary(nil), MapSQLiteType(""))
}

func TestMapSQLiteTypeAffinityBitWidths(t *testing.T) {
	assert.Equal(t, uint8(8), MapSQLiteType("TINYINT").Bits)
	assert.Equal(t, uint8(16), MapSQLiteType("SMALLINT").Bits)
	assert.Equal(t, uint8(16), MapSQLiteType("INT2").Bits)
	assert.Equal(t, uint8(24), MapSQLiteType("MEDIUMINT").Bits)
	assert.Equal(t, uint8(64), MapSQLiteType("BIGINT").Bits)
}

func TestMapSQLiteTypeUnrecognisedBecomesCustom(t *testing.T) {
	dt := MapSQLiteType("GEOMETRY")
	assert.Equal(t, model.TypeCustom, dt.Kind)
	assert.Equal(t, "GEOMETRY", dt.TypeName)
}

func TestMapMySQLTypeUnsignedFlipsSigned(t *testing.T) {
	dt := MapMySQLType(MySQLColumn{DataType: "int", ColumnType: "int(11) unsigned"})
	assert.False(t, dt.Signed)
	dt2 := MapMySQLType(MySQLColumn{DataType: "int", ColumnType: "int(11)"})
	assert.True(t, dt2.Signed)
}

func TestMapMySQLTypeTinyIntOneIsBoolean(t *testing.T) {
	dt := MapMySQLType(MySQLColumn{DataType: "tinyint", ColumnType: "tinyint(1)"})
	assert.Equal(t, model.TypeBoolean, dt.Kind)

	dt2 := MapMySQLType(MySQLColumn{DataType: "tinyint", ColumnType: "tinyint(4)"})
	assert.Equal(t, model.TypeInteger, dt2.Kind)
	assert.Equal(t, uint8(8), dt2.Bits)
}

func TestMapPostgresTypeArrayRecurses(t *testing.T) {
	dt := MapPostgresType(PostgresColumn{DataType: "ARRAY", UDTName: "_int4", ArrayElementType: ptr("integer")})
	require.Equal(t, model.TypeArray, dt.Kind)
	require.NotNil(t, dt.ElementType)
	assert.Equal(t, model.TypeInteger, dt.ElementType.Kind)
	assert.Equal(t, uint8(32), dt.ElementType.Bits)
}

func TestMapPostgresTypeUserDefinedBecomesCustom(t *testing.T) {
	dt := MapPostgresType(PostgresColumn{DataType: "USER-DEFINED", UDTName: "mood"})
	assert.Equal(t, model.TypeCustom, dt.Kind)
	assert.Equal(t, "mood", dt.TypeName)
}

func TestMapPostgresTypeTimestamptz(t *testing.T) {
	dt := MapPostgresType(PostgresColumn{DataType: "timestamp with time zone"})
	assert.Equal(t, model.TypeDateTime, dt.Kind)
	assert.True(t, dt.WithTimezone)
}

func TestMapMSSQLTypeUniqueIdentifierIsUUID(t *testing.T) {
	dt := MapMSSQLType(MSSQLColumn{DataType: "uniqueidentifier"})
	assert.Equal(t, model.TypeUUID, dt.Kind)
}

func TestMapMSSQLTypeNVarcharHalvesByteLength(t *testing.T) {
	length := int64(100)
	dt := MapMSSQLType(MSSQLColumn{DataType: "nvarchar", MaxLength: &length})
	require.NotNil(t, dt.MaxLength)
	assert.Equal(t, uint32(50), *dt.MaxLength)
}

func TestMapBSONTypeObjectIDIsNotUUID(t *testing.T) {
	dt := MapBSONType(BSONObjectID, "")
	assert.Equal(t, model.TypeCustom, dt.Kind)
	assert.Equal(t, "ObjectId", dt.TypeName)
	assert.NotEqual(t, model.TypeUUID, dt.Kind)
}

func TestMapBSONTypeArrayRecurses(t *testing.T) {
	dt := MapBSONType(BSONArray, BSONString)
	require.Equal(t, model.TypeArray, dt.Kind)
	require.NotNil(t, dt.ElementType)
	assert.Equal(t, model.TypeString, dt.ElementType.Kind)
}

func TestUnifiedDataTypeJSONRoundTripIsIdentity(t *testing.T) {
	length := uint32(64)
	precision := uint8(53)
	samples := []model.UnifiedDataType{
		model.String(&length),
		model.String(nil),
		model.Integer(32, true),
		model.Integer(8, false),
		model.Float(&precision),
		model.Float(nil),
		model.Boolean(),
		model.DateTime(true),
		model.DateTime(false),
		model.Date(),
		model.Time(true),
		model.Binary(&length),
		model.JSON(),
		model.UUID(),
		model.Array(model.Integer(32, true)),
		model.Custom("mood"),
	}
	for _, dt := range samples {
		assert.Equal(t, dt, roundTrip(t, dt))
	}
}

func ptr(s string) *string { return &s }
