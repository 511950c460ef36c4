package mongodb

import (
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferSchemaUnionsFieldPathsAcrossDocuments(t *testing.T) {
	docs := []bson.M{
		{"name": "alice", "age": int32(30)},
		{"name": "bob", "email": "bob@example.com"},
	}
	cols := InferSchema(docs)

	names := make(map[string]model.Column, len(cols))
	for _, c := range cols {
		names[c.Name] = c
	}

	require.Contains(t, names, "name")
	require.Contains(t, names, "age")
	require.Contains(t, names, "email")
	assert.False(t, names["name"].IsNullable)
	assert.True(t, names["age"].IsNullable)
	assert.True(t, names["email"].IsNullable)
}

func TestInferSchemaDominantKindWinsOverMinority(t *testing.T) {
	docs := []bson.M{
		{"value": int32(1)},
		{"value": int32(2)},
		{"value": "unexpected"},
	}
	cols := InferSchema(docs)
	require.Len(t, cols, 1)
	assert.Equal(t, model.TypeInteger, cols[0].DataType.Kind)
}

func TestInferSchemaWalksNestedDocuments(t *testing.T) {
	docs := []bson.M{
		{"address": bson.M{"city": "Springfield", "zip": "00000"}},
	}
	cols := InferSchema(docs)
	var sawCity bool
	for _, c := range cols {
		if c.Name == "address.city" {
			sawCity = true
		}
	}
	assert.True(t, sawCity)
}

func TestInferSchemaArrayRecursesElementType(t *testing.T) {
	docs := []bson.M{
		{"tags": []any{"a", "b"}},
	}
	cols := InferSchema(docs)
	require.Len(t, cols, 1)
	assert.Equal(t, model.TypeArray, cols[0].DataType.Kind)
	require.NotNil(t, cols[0].DataType.ElementType)
	assert.Equal(t, model.TypeString, cols[0].DataType.ElementType.Kind)
}
