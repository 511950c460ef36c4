package mongodb

import (
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/typemap"
)

// fieldObservation tallies how often a field path appeared, and with which
// BSON kind, across a sampled document set.
type fieldObservation struct {
	count       int
	kindCounts  map[typemap.BSONKind]int
	elementKind typemap.BSONKind
}

// InferSchema builds the field-path union across sampled documents and maps
// each field to a model.Column, choosing the dominant observed BSON kind
// per path (spec.md's MongoDB supplement: "schema inference via sampling +
// field-path union + BSON-type-per-field inference", since collections
// carry no catalog-level schema).
func InferSchema(documents []bson.M) []model.Column {
	observations := make(map[string]*fieldObservation)
	var order []string

	for _, doc := range documents {
		walkDocument("", doc, observations, &order)
	}

	columns := make([]model.Column, 0, len(order))
	for i, path := range order {
		obs := observations[path]
		kind := dominantKind(obs.kindCounts)
		columns = append(columns, model.Column{
			Name:            path,
			DataType:        typemap.MapBSONType(kind, obs.elementKind),
			IsNullable:      obs.count < len(documents),
			OrdinalPosition: i,
		})
	}
	return columns
}

func walkDocument(prefix string, doc bson.M, observations map[string]*fieldObservation, order *[]string) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		observeField(path, doc[k], observations, order)
	}
}

func observeField(path string, value any, observations map[string]*fieldObservation, order *[]string) {
	obs, exists := observations[path]
	if !exists {
		obs = &fieldObservation{kindCounts: make(map[typemap.BSONKind]int)}
		observations[path] = obs
		*order = append(*order, path)
	}
	obs.count++

	kind, elementKind := classify(value)
	obs.kindCounts[kind]++
	if elementKind != "" {
		obs.elementKind = elementKind
	}

	if nested, ok := value.(bson.M); ok {
		walkDocument(path, nested, observations, order)
	}
}

func classify(value any) (typemap.BSONKind, typemap.BSONKind) {
	switch v := value.(type) {
	case nil:
		return typemap.BSONNull, ""
	case string:
		return typemap.BSONString, ""
	case int32:
		return typemap.BSONInt32, ""
	case int64:
		return typemap.BSONInt64, ""
	case float64:
		return typemap.BSONDouble, ""
	case bool:
		return typemap.BSONBool, ""
	case bson.ObjectID:
		return typemap.BSONObjectID, ""
	case bson.DateTime:
		return typemap.BSONDateTime, ""
	case bson.Binary:
		return typemap.BSONBinary, ""
	case bson.Decimal128:
		return typemap.BSONDecimal128, ""
	case bson.Regex:
		return typemap.BSONRegex, ""
	case bson.M:
		return typemap.BSONDocument, ""
	case []any:
		elementKind := typemap.BSONKind("")
		if len(v) > 0 {
			elementKind, _ = classify(v[0])
		}
		return typemap.BSONArray, elementKind
	default:
		return typemap.BSONDocument, ""
	}
}

func dominantKind(counts map[typemap.BSONKind]int) typemap.BSONKind {
	best, bestCount := typemap.BSONNull, -1
	for k, c := range counts {
		if c > bestCount {
			best, bestCount = k, c
		}
	}
	return best
}
