package quality

import (
	"testing"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrF(v float64) *float64 { return &v }

func TestAnalyzeCompletenessFormula(t *testing.T) {
	sample := model.TableSample{
		TableName: "users",
		Rows: []map[string]any{
			{"name": "a", "bio": ""},
			{"name": "b", "bio": nil},
			{"name": "c", "bio": "hello"},
			{"name": "d", "bio": "world"},
		},
	}
	metrics := Analyze(sample, Thresholds{})
	assert.Equal(t, 1.0, metrics.Completeness.PerColumn["name"])
	assert.Equal(t, 0.5, metrics.Completeness.PerColumn["bio"])
}

func TestAnalyzeConsistencyDetectsMinorityTypes(t *testing.T) {
	sample := model.TableSample{
		TableName: "events",
		Rows: []map[string]any{
			{"count": float64(1)},
			{"count": float64(2)},
			{"count": float64(3)},
			{"count": "oops"},
		},
	}
	metrics := Analyze(sample, Thresholds{})
	require.Len(t, metrics.Consistency.TypeInconsistencies, 1)
	assert.Equal(t, "count", metrics.Consistency.TypeInconsistencies[0].Column)
	assert.Equal(t, "number", metrics.Consistency.TypeInconsistencies[0].Expected)
	assert.Equal(t, 1, metrics.Consistency.TypeInconsistencies[0].Count)
	assert.Less(t, metrics.Consistency.Score, 1.0)
}

func TestAnalyzeConsistencyDetectsFormatViolations(t *testing.T) {
	sample := model.TableSample{
		TableName: "users",
		Rows: []map[string]any{
			{"email": "a@example.com"},
			{"email": "b@example.com"},
			{"email": "c@example.com"},
			{"email": "not-an-email"},
		},
	}
	metrics := Analyze(sample, Thresholds{})
	require.Len(t, metrics.Consistency.FormatViolations, 1)
	assert.Equal(t, "email", metrics.Consistency.FormatViolations[0].Column)
	assert.Equal(t, "email", metrics.Consistency.FormatViolations[0].Expected)
	assert.Equal(t, 1, metrics.Consistency.FormatViolations[0].Count)
}

func TestAnalyzeUniquenessAndDuplicateRows(t *testing.T) {
	sample := model.TableSample{
		TableName: "orders",
		Rows: []map[string]any{
			{"id": float64(1), "status": "open"},
			{"id": float64(2), "status": "open"},
			{"id": float64(1), "status": "open"},
		},
	}
	metrics := Analyze(sample, Thresholds{})
	assert.InDelta(t, 2.0/3.0, metrics.Uniqueness.PerColumn["id"], 1e-9)
	assert.Equal(t, 1.0/3.0, metrics.Uniqueness.PerColumn["status"])
	assert.Equal(t, 1, metrics.Uniqueness.DuplicateRowCount)
}

func TestAnalyzeProducesThresholdViolations(t *testing.T) {
	sample := model.TableSample{
		TableName: "users",
		Rows: []map[string]any{
			{"bio": nil},
			{"bio": nil},
			{"bio": "x"},
		},
	}
	metrics := Analyze(sample, Thresholds{Completeness: ptrF(0.9)})
	require.Len(t, metrics.ThresholdViolations, 1)
	assert.Equal(t, "completeness", metrics.ThresholdViolations[0].Metric)
}

func TestThresholdsClampOutOfRangeValues(t *testing.T) {
	th := Thresholds{Completeness: ptrF(1.5), Uniqueness: ptrF(-0.2)}
	th.Clamp()
	assert.Equal(t, 1.0, *th.Completeness)
	assert.Equal(t, 0.0, *th.Uniqueness)
}

func TestAnalyzeAnomaliesFlagsOutliers(t *testing.T) {
	rows := []map[string]any{
		{"amount": float64(10)},
		{"amount": float64(11)},
		{"amount": float64(9)},
		{"amount": float64(10)},
		{"amount": float64(1000)},
	}
	anomalies := AnalyzeAnomalies(rows, 1.5)
	stats := anomalies.PerColumn["amount"]
	assert.Equal(t, 5, stats.SampleCount)
	assert.GreaterOrEqual(t, stats.OutlierCount, 1)
}

func TestAnalyzeAnomaliesSkipsNonNumericColumns(t *testing.T) {
	rows := []map[string]any{{"name": "a"}, {"name": "b"}}
	anomalies := AnalyzeAnomalies(rows, 2.0)
	_, ok := anomalies.PerColumn["name"]
	assert.False(t, ok)
}

func TestAnalyzeEmptySampleYieldsPerfectScores(t *testing.T) {
	metrics := Analyze(model.TableSample{TableName: "empty"}, Thresholds{})
	assert.Equal(t, 0, metrics.AnalysedRowCount)
	assert.Equal(t, 1.0, metrics.OverallScore)
}
