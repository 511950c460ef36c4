// Package quality analyses already-collected table samples for
// completeness, consistency, uniqueness, and optional anomaly signals
// (spec.md §4.9). It never touches the database.
package quality

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
)

// Thresholds are the optional configured minima for completeness,
// uniqueness, and consistency, each clamped to [0,1] on ingestion.
type Thresholds struct {
	Completeness *float64
	Uniqueness   *float64
	Consistency  *float64
}

// clamp01 clamps v into [0,1], per spec.md §4.9 "each a real in [0,1],
// clamped on ingestion".
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp clamps all three configured thresholds in place.
func (t *Thresholds) Clamp() {
	if t.Completeness != nil {
		v := clamp01(*t.Completeness)
		t.Completeness = &v
	}
	if t.Uniqueness != nil {
		v := clamp01(*t.Uniqueness)
		t.Uniqueness = &v
	}
	if t.Consistency != nil {
		v := clamp01(*t.Consistency)
		t.Consistency = &v
	}
}

// Analyze computes TableQualityMetrics for one table's sample against the
// configured thresholds.
func Analyze(sample model.TableSample, thresholds Thresholds) model.TableQualityMetrics {
	thresholds.Clamp()

	completeness := analyzeCompleteness(sample.Rows)
	consistency := analyzeConsistency(sample.Rows)
	uniqueness := analyzeUniqueness(sample.Rows)

	overall := (completeness.Score + consistency.Score + averageUniqueness(uniqueness)) / 3
	overall = clamp01(overall)

	var violations []model.ThresholdViolation
	if thresholds.Completeness != nil {
		violations = appendViolation(violations, "completeness", *thresholds.Completeness, completeness.Score)
	}
	if thresholds.Consistency != nil {
		violations = appendViolation(violations, "consistency", *thresholds.Consistency, consistency.Score)
	}
	if thresholds.Uniqueness != nil {
		violations = appendViolation(violations, "uniqueness", *thresholds.Uniqueness, averageUniqueness(uniqueness))
	}

	return model.TableQualityMetrics{
		TableName:           sample.TableName,
		Schema:              sample.Schema,
		AnalysedRowCount:    len(sample.Rows),
		Completeness:        completeness,
		Consistency:         consistency,
		Uniqueness:          uniqueness,
		OverallScore:        overall,
		ThresholdViolations: violations,
		AnalysedAt:          time.Now().UTC(),
	}
}

func appendViolation(violations []model.ThresholdViolation, metric string, threshold, actual float64) []model.ThresholdViolation {
	if actual >= threshold {
		return violations
	}
	return append(violations, model.NewThresholdViolation(metric, threshold, actual))
}

func averageUniqueness(u model.UniquenessMetrics) float64 {
	if len(u.PerColumn) == 0 {
		return 1
	}
	sum := 0.0
	for _, v := range u.PerColumn {
		sum += v
	}
	return sum / float64(len(u.PerColumn))
}

func columnNames(rows []map[string]any) []string {
	seen := make(map[string]bool)
	var names []string
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				names = append(names, col)
			}
		}
	}
	return names
}

// analyzeCompleteness implements spec.md §4.9's completeness formula:
// max(0, (total - (nulls+empty)) / total), clamping anomalous sums (where
// nulls+empty exceeds total, which cannot happen from a well-formed sample
// but is guarded anyway) to 0.
func analyzeCompleteness(rows []map[string]any) model.CompletenessMetrics {
	perColumn := make(map[string]float64)
	total := len(rows)

	for _, col := range columnNames(rows) {
		if total == 0 {
			perColumn[col] = 1
			continue
		}
		missing := 0
		for _, row := range rows {
			v, ok := row[col]
			if !ok || v == nil {
				missing++
				continue
			}
			if s, isString := v.(string); isString && s == "" {
				missing++
			}
		}
		score := float64(total-missing) / float64(total)
		if score < 0 {
			score = 0
		}
		perColumn[col] = score
	}

	return model.CompletenessMetrics{PerColumn: perColumn, Score: meanOf(perColumn)}
}

func meanOf(values map[string]float64) float64 {
	if len(values) == 0 {
		return 1
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

var (
	uuidRe  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	isoDTRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)
	isoDRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// detectFormat classifies a non-empty string value, trying in priority
// UUID, ISO 8601 datetime, ISO 8601 date, email.
func detectFormat(s string) (string, bool) {
	switch {
	case uuidRe.MatchString(s):
		return "uuid", true
	case isoDTRe.MatchString(s):
		return "iso8601_datetime", true
	case isoDRe.MatchString(s):
		return "iso8601_date", true
	case emailRe.MatchString(s):
		return "email", true
	default:
		return "", false
	}
}

func jsonTypeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, int, int64, int32:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// analyzeConsistency implements spec.md §4.9's per-column type and format
// checks.
func analyzeConsistency(rows []map[string]any) model.ConsistencyMetrics {
	var inconsistencies []model.TypeInconsistency
	var violations []model.FormatViolation
	totalCells := 0
	inconsistentCells := 0

	for _, col := range columnNames(rows) {
		typeCounts := make(map[string]int)
		formatCounts := make(map[string]int)
		nonEmptyStrings := 0

		for _, row := range rows {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			totalCells++
			typeCounts[jsonTypeOf(v)]++

			if s, isString := v.(string); isString && s != "" {
				nonEmptyStrings++
				if format, matched := detectFormat(s); matched {
					formatCounts[format]++
				} else {
					formatCounts["unrecognised"]++
				}
			}
		}

		dominant, dominantCount := dominantKey(typeCounts)
		if dominant != "" && len(typeCounts) > 1 {
			found := make(map[string]int)
			minorityCount := 0
			for t, c := range typeCounts {
				if t != dominant {
					found[t] = c
					minorityCount += c
				}
			}
			inconsistencies = append(inconsistencies, model.TypeInconsistency{
				Column: col, Expected: dominant, Found: found, Count: minorityCount,
			})
			inconsistentCells += minorityCount
		}
		_ = dominantCount

		if nonEmptyStrings > 0 {
			domFormat, domCount := dominantKey(formatCounts)
			if domFormat != "" && domFormat != "unrecognised" && float64(domCount) > 0.5*float64(nonEmptyStrings) {
				violationCount := nonEmptyStrings - domCount
				if violationCount > 0 {
					violations = append(violations, model.FormatViolation{Column: col, Expected: domFormat, Count: violationCount})
					inconsistentCells += violationCount
				}
			}
		}
	}

	score := 1.0
	if totalCells > 0 {
		score = clamp01(1 - float64(inconsistentCells)/float64(totalCells))
	}

	return model.ConsistencyMetrics{
		TypeInconsistencies: inconsistencies,
		FormatViolations:    violations,
		Score:               score,
	}
}

func dominantKey(counts map[string]int) (string, int) {
	best, bestCount := "", -1
	for k, c := range counts {
		if c > bestCount {
			best, bestCount = k, c
		}
	}
	if bestCount < 0 {
		return "", 0
	}
	return best, bestCount
}

// analyzeUniqueness implements spec.md §4.9: every column is treated as a
// candidate, plus an exact-duplicate-row count.
func analyzeUniqueness(rows []map[string]any) model.UniquenessMetrics {
	perColumn := make(map[string]float64)
	total := len(rows)

	for _, col := range columnNames(rows) {
		if total == 0 {
			perColumn[col] = 1
			continue
		}
		seen := make(map[string]struct{})
		for _, row := range rows {
			seen[fmt.Sprintf("%v", row[col])] = struct{}{}
		}
		perColumn[col] = float64(len(seen)) / float64(total)
	}

	duplicateRows := countDuplicateRows(rows)

	return model.UniquenessMetrics{PerColumn: perColumn, DuplicateRowCount: duplicateRows}
}

func countDuplicateRows(rows []map[string]any) int {
	seen := make(map[string]int)
	for _, row := range rows {
		key := fmt.Sprintf("%v", row)
		seen[key]++
	}
	duplicates := 0
	for _, count := range seen {
		if count > 1 {
			duplicates += count - 1
		}
	}
	return duplicates
}

// AnalyzeAnomalies computes mean/stddev/outlier-count for numeric columns.
// Only aggregates are returned — never example values — per spec.md's
// quality-metrics-safety design note.
func AnalyzeAnomalies(rows []map[string]any, zThreshold float64) model.AnomalyMetrics {
	perColumn := make(map[string]model.ColumnAnomalyStats)

	for _, col := range columnNames(rows) {
		var values []float64
		for _, row := range rows {
			if f, ok := asFloat(row[col]); ok {
				values = append(values, f)
			}
		}
		if len(values) == 0 {
			continue
		}
		mean, stddev := meanStdDev(values)
		outliers := 0
		if stddev > 0 {
			for _, v := range values {
				z := math.Abs((v - mean) / stddev)
				if z > zThreshold {
					outliers++
				}
			}
		}
		perColumn[col] = model.ColumnAnomalyStats{Mean: mean, StdDev: stddev, OutlierCount: outliers, SampleCount: len(values)}
	}

	return model.AnomalyMetrics{PerColumn: perColumn}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func meanStdDev(values []float64) (float64, float64) {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}
