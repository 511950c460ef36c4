// Package model defines the unified, engine-agnostic schema representation
// produced by every collector and consumed by the sampling, quality, and
// output stages. Entities are built by a collector, never mutated after
// they leave it, and carry no back-references to their owning document.
package model

import "time"

// FormatVersion is the fixed schema document version written by this
// release of the collector.
const FormatVersion = "1.0"

// AccessLevel describes how much of a database a collector could see.
type AccessLevel string

const (
	AccessFull    AccessLevel = "full"
	AccessLimited AccessLevel = "limited"
	AccessNone    AccessLevel = "none"
)

// CollectionStatusKind is the closed sum of outcomes for collecting one
// database's schema.
type CollectionStatusKind string

const (
	CollectionSuccess CollectionStatusKind = "success"
	CollectionFailed  CollectionStatusKind = "failed"
	CollectionSkipped CollectionStatusKind = "skipped"
)

// CollectionStatus tags a DatabaseInfo with the outcome of collecting it.
// Error is populated only for CollectionFailed, Reason only for
// CollectionSkipped.
type CollectionStatus struct {
	Kind   CollectionStatusKind `json:"kind"`
	Error  string               `json:"error,omitempty"`
	Reason string               `json:"reason,omitempty"`
}

// DatabaseInfo is the per-database metadata header.
type DatabaseInfo struct {
	Name             string           `json:"name"`
	Version          *string          `json:"version,omitempty"`
	SizeBytes        *uint64          `json:"size_bytes,omitempty"`
	Encoding         *string          `json:"encoding,omitempty"`
	Collation        *string          `json:"collation,omitempty"`
	Owner            *string          `json:"owner,omitempty"`
	IsSystemDatabase bool             `json:"is_system_database"`
	AccessLevel      AccessLevel      `json:"access_level"`
	CollectionStatus CollectionStatus `json:"collection_status"`
}

// DataTypeKind is the tag of the closed UnifiedDataType sum.
type DataTypeKind string

const (
	TypeString   DataTypeKind = "string"
	TypeInteger  DataTypeKind = "integer"
	TypeFloat    DataTypeKind = "float"
	TypeBoolean  DataTypeKind = "boolean"
	TypeDateTime DataTypeKind = "datetime"
	TypeDate     DataTypeKind = "date"
	TypeTime     DataTypeKind = "time"
	TypeBinary   DataTypeKind = "binary"
	TypeJSON     DataTypeKind = "json"
	TypeUUID     DataTypeKind = "uuid"
	TypeArray    DataTypeKind = "array"
	TypeCustom   DataTypeKind = "custom"
)

// UnifiedDataType is the closed sum type over physical column types. Only
// the fields relevant to Kind are meaningful; constructors below are the
// only supported way to build a valid value so irrelevant fields are never
// set accidentally.
type UnifiedDataType struct {
	Kind DataTypeKind `json:"kind"`

	// String
	MaxLength *uint32 `json:"max_length,omitempty"`

	// Integer
	Bits   uint8 `json:"bits,omitempty"`
	Signed bool  `json:"signed,omitempty"`

	// Float
	Precision *uint8 `json:"precision,omitempty"`

	// DateTime, Time
	WithTimezone bool `json:"with_timezone,omitempty"`

	// Binary reuses MaxLength.

	// Array
	ElementType *UnifiedDataType `json:"element_type,omitempty"`

	// Custom
	TypeName string `json:"type_name,omitempty"`
}

func String(maxLen *uint32) UnifiedDataType { return UnifiedDataType{Kind: TypeString, MaxLength: maxLen} }

func Integer(bits uint8, signed bool) UnifiedDataType {
	return UnifiedDataType{Kind: TypeInteger, Bits: bits, Signed: signed}
}

func Float(precision *uint8) UnifiedDataType { return UnifiedDataType{Kind: TypeFloat, Precision: precision} }

func Boolean() UnifiedDataType { return UnifiedDataType{Kind: TypeBoolean} }

func DateTime(withTZ bool) UnifiedDataType { return UnifiedDataType{Kind: TypeDateTime, WithTimezone: withTZ} }

func Date() UnifiedDataType { return UnifiedDataType{Kind: TypeDate} }

func Time(withTZ bool) UnifiedDataType { return UnifiedDataType{Kind: TypeTime, WithTimezone: withTZ} }

func Binary(maxLen *uint32) UnifiedDataType { return UnifiedDataType{Kind: TypeBinary, MaxLength: maxLen} }

func JSON() UnifiedDataType { return UnifiedDataType{Kind: TypeJSON} }

func UUID() UnifiedDataType { return UnifiedDataType{Kind: TypeUUID} }

func Array(element UnifiedDataType) UnifiedDataType {
	return UnifiedDataType{Kind: TypeArray, ElementType: &element}
}

func Custom(typeName string) UnifiedDataType {
	return UnifiedDataType{Kind: TypeCustom, TypeName: typeName}
}

// Column describes one table column.
type Column struct {
	Name            string          `json:"name"`
	DataType        UnifiedDataType `json:"data_type"`
	IsNullable      bool            `json:"is_nullable"`
	IsPrimaryKey    bool            `json:"is_primary_key"`
	IsAutoIncrement bool            `json:"is_auto_increment"`
	DefaultValue    *string         `json:"default_value,omitempty"`
	Comment         *string         `json:"comment,omitempty"`
	OrdinalPosition int             `json:"ordinal_position"`
}

// ReferentialAction is the closed set of ON DELETE / ON UPDATE behaviors.
type ReferentialAction string

const (
	ActionCascade    ReferentialAction = "cascade"
	ActionSetNull    ReferentialAction = "set_null"
	ActionSetDefault ReferentialAction = "set_default"
	ActionRestrict   ReferentialAction = "restrict"
	ActionNoAction   ReferentialAction = "no_action"
)

// ForeignKey describes one (possibly multi-column) foreign key.
type ForeignKey struct {
	Name              *string            `json:"name,omitempty"`
	Columns           []string           `json:"columns"`
	ReferencedTable   string             `json:"referenced_table"`
	ReferencedSchema  *string            `json:"referenced_schema,omitempty"`
	ReferencedColumns []string           `json:"referenced_columns"`
	OnDelete          *ReferentialAction `json:"on_delete,omitempty"`
	OnUpdate          *ReferentialAction `json:"on_update,omitempty"`
}

// SortDirection for an index column.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// IndexColumn pairs a column name with its optional sort direction.
type IndexColumn struct {
	Column    string         `json:"column"`
	Direction *SortDirection `json:"direction,omitempty"`
}

// Index describes one index, whether owned by a table or aggregated at the
// document's top level (per §4.6, both copies exist — this is intentional
// duplication, documented in the embedded output JSON Schema).
type Index struct {
	Name      string        `json:"name"`
	TableName string        `json:"table_name"`
	Schema    *string       `json:"schema,omitempty"`
	Columns   []IndexColumn `json:"columns"`
	IsUnique  bool          `json:"is_unique"`
	IsPrimary bool          `json:"is_primary"`
	IndexType *string       `json:"index_type,omitempty"`
}

// ConstraintKind is the closed set of constraint kinds.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "primary_key"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintCheck      ConstraintKind = "check"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintNotNull    ConstraintKind = "not_null"
)

// Constraint describes one table constraint.
type Constraint struct {
	Name       string         `json:"name"`
	TableName  string         `json:"table_name"`
	Schema     *string        `json:"schema,omitempty"`
	Kind       ConstraintKind `json:"kind"`
	Columns    []string       `json:"columns"`
	Expression *string        `json:"check_expression,omitempty"`
}

// Table is one relational table or equivalent (MongoDB collection).
type Table struct {
	Name             string       `json:"name"`
	Schema           *string      `json:"schema,omitempty"`
	Columns          []Column     `json:"columns"`
	PrimaryKey       []string     `json:"primary_key,omitempty"`
	ForeignKeys      []ForeignKey `json:"foreign_keys"`
	Indexes          []Index      `json:"indexes"`
	Constraints      []Constraint `json:"constraints"`
	Comment          *string      `json:"comment,omitempty"`
	EstimatedRowCount *uint64     `json:"estimated_row_count,omitempty"`
}

// View describes one database view.
type View struct {
	Name       string   `json:"name"`
	Schema     *string  `json:"schema,omitempty"`
	Definition *string  `json:"definition,omitempty"`
	Columns    []Column `json:"columns"`
	Comment    *string  `json:"comment,omitempty"`
}

// ParameterDirection is the closed set of routine parameter directions.
type ParameterDirection string

const (
	DirectionIn    ParameterDirection = "in"
	DirectionOut   ParameterDirection = "out"
	DirectionInOut ParameterDirection = "inout"
)

// Parameter describes one procedure/function parameter.
type Parameter struct {
	Name      string             `json:"name"`
	DataType  UnifiedDataType    `json:"data_type"`
	Direction ParameterDirection `json:"direction"`
	Default   *string            `json:"default_value,omitempty"`
}

// Routine describes a stored procedure or function. Procedure/Function in
// spec.md are the same shape distinguished by IsFunction.
type Routine struct {
	Name       string          `json:"name"`
	Schema     *string         `json:"schema,omitempty"`
	Definition *string         `json:"definition,omitempty"`
	Parameters []Parameter     `json:"parameters"`
	ReturnType *UnifiedDataType `json:"return_type,omitempty"`
	Language   *string         `json:"language,omitempty"`
	Comment    *string         `json:"comment,omitempty"`
	IsFunction bool            `json:"is_function"`
}

// TriggerEvent is the closed set of trigger-firing events.
type TriggerEvent string

const (
	EventInsert TriggerEvent = "insert"
	EventUpdate TriggerEvent = "update"
	EventDelete TriggerEvent = "delete"
)

// TriggerTiming is the closed set of trigger firing times.
type TriggerTiming string

const (
	TimingBefore    TriggerTiming = "before"
	TimingAfter     TriggerTiming = "after"
	TimingInsteadOf TriggerTiming = "instead_of"
)

// Trigger describes one table trigger.
type Trigger struct {
	Name       string        `json:"name"`
	TableName  string        `json:"table_name"`
	Schema     *string       `json:"schema,omitempty"`
	Event      TriggerEvent  `json:"event"`
	Timing     TriggerTiming `json:"timing"`
	Definition *string       `json:"definition,omitempty"`
}

// CustomTypeCategory is the closed set of custom-type categories.
type CustomTypeCategory string

const (
	CategoryEnum      CustomTypeCategory = "enum"
	CategoryComposite CustomTypeCategory = "composite"
	CategoryDomain    CustomTypeCategory = "domain"
	CategoryRange     CustomTypeCategory = "range"
)

// CustomType describes one engine-specific named type (enum, composite,
// domain, range, ...).
type CustomType struct {
	Name       string             `json:"name"`
	Schema     *string            `json:"schema,omitempty"`
	Definition string             `json:"definition"`
	Category   CustomTypeCategory `json:"category"`
}

// OrderingStrategyKind is the closed tag of OrderingStrategy.
type OrderingStrategyKind string

const (
	OrderByPrimaryKey    OrderingStrategyKind = "primary_key"
	OrderByTimestamp     OrderingStrategyKind = "timestamp"
	OrderByAutoIncrement OrderingStrategyKind = "auto_increment"
	OrderBySystemRowID   OrderingStrategyKind = "system_row_id"
	OrderUnordered       OrderingStrategyKind = "unordered"
)

// OrderingStrategy is the closed sum describing how a table was ordered for
// sampling. Every variant except Unordered names at least one column.
type OrderingStrategy struct {
	Kind      OrderingStrategyKind `json:"kind"`
	Columns   []string             `json:"columns,omitempty"`   // PrimaryKey
	Column    string               `json:"column,omitempty"`    // Timestamp, AutoIncrement, SystemRowId
	Direction *SortDirection       `json:"direction,omitempty"` // Timestamp
}

func PrimaryKeyOrdering(columns []string) OrderingStrategy {
	return OrderingStrategy{Kind: OrderByPrimaryKey, Columns: columns}
}

func TimestampOrdering(column string, direction SortDirection) OrderingStrategy {
	return OrderingStrategy{Kind: OrderByTimestamp, Column: column, Direction: &direction}
}

func AutoIncrementOrdering(column string) OrderingStrategy {
	return OrderingStrategy{Kind: OrderByAutoIncrement, Column: column}
}

func SystemRowIDOrdering(column string) OrderingStrategy {
	return OrderingStrategy{Kind: OrderBySystemRowID, Column: column}
}

func UnorderedOrdering() OrderingStrategy { return OrderingStrategy{Kind: OrderUnordered} }

// TableSample is the result of sampling one table.
type TableSample struct {
	TableName          string                   `json:"table_name"`
	Schema              *string                 `json:"schema,omitempty"`
	Rows                []map[string]any        `json:"rows"`
	SampleSize          int                      `json:"sample_size"`
	TotalRowCount       *uint64                  `json:"total_row_count,omitempty"`
	Strategy            OrderingStrategy         `json:"ordering_strategy"`
	CollectedAt         time.Time                `json:"collected_at"`
	Warnings            []string                 `json:"warnings,omitempty"`
}

// ViolationSeverity is Critical iff actual < 0.8 * threshold, else Warning.
type ViolationSeverity string

const (
	SeverityWarning  ViolationSeverity = "warning"
	SeverityCritical ViolationSeverity = "critical"
)

// ThresholdViolation records one metric falling below its configured
// minimum.
type ThresholdViolation struct {
	Metric    string            `json:"metric"`
	Threshold float64           `json:"threshold"`
	Actual    float64           `json:"actual"`
	Severity  ViolationSeverity `json:"severity"`
}

// NewThresholdViolation computes Severity from actual vs threshold per the
// fixed 0.8 multiplier rule.
func NewThresholdViolation(metric string, threshold, actual float64) ThresholdViolation {
	severity := SeverityWarning
	if actual < 0.8*threshold {
		severity = SeverityCritical
	}
	return ThresholdViolation{Metric: metric, Threshold: threshold, Actual: actual, Severity: severity}
}

// TypeInconsistency records a column's dominant JSON type vs minority types
// observed.
type TypeInconsistency struct {
	Column   string         `json:"column"`
	Expected string         `json:"expected"`
	Found    map[string]int `json:"found"`
	Count    int            `json:"count"`
}

// FormatViolation records a column's dominant detected string format vs
// values that don't conform.
type FormatViolation struct {
	Column   string `json:"column"`
	Expected string `json:"expected"`
	Count    int    `json:"count"`
}

// CompletenessMetrics holds per-column and aggregate completeness.
type CompletenessMetrics struct {
	PerColumn map[string]float64 `json:"per_column"`
	Score     float64            `json:"score"`
}

// ConsistencyMetrics holds per-column type/format anomalies and an
// aggregate score.
type ConsistencyMetrics struct {
	TypeInconsistencies []TypeInconsistency `json:"type_inconsistencies,omitempty"`
	FormatViolations    []FormatViolation   `json:"format_violations,omitempty"`
	Score               float64             `json:"score"`
}

// UniquenessMetrics holds per-column uniqueness ratios and exact duplicate
// row counts.
type UniquenessMetrics struct {
	PerColumn           map[string]float64 `json:"per_column"`
	DuplicateRowCount    int                `json:"duplicate_row_count"`
}

// AnomalyMetrics holds numeric-column aggregate statistics. Never persists
// example values, only counts and moments.
type AnomalyMetrics struct {
	PerColumn map[string]ColumnAnomalyStats `json:"per_column"`
}

// ColumnAnomalyStats is the aggregate numeric summary for one column.
type ColumnAnomalyStats struct {
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	OutlierCount int     `json:"outlier_count"`
	SampleCount  int     `json:"sample_count"`
}

// TableQualityMetrics is the result of quality analysis over one table's
// sample.
type TableQualityMetrics struct {
	TableName          string               `json:"table_name"`
	Schema              *string             `json:"schema,omitempty"`
	AnalysedRowCount    int                  `json:"analysed_row_count"`
	Completeness        CompletenessMetrics  `json:"completeness"`
	Consistency         ConsistencyMetrics   `json:"consistency"`
	Uniqueness          UniquenessMetrics    `json:"uniqueness"`
	Anomalies           *AnomalyMetrics      `json:"anomalies,omitempty"`
	OverallScore        float64              `json:"overall_score"`
	ThresholdViolations []ThresholdViolation `json:"threshold_violations,omitempty"`
	AnalysedAt          time.Time            `json:"analysed_at"`
}

// CollectionMetadata carries the run-level header and any non-fatal
// warnings accumulated while collecting, plus multi-database aggregate
// counters when the orchestrator ran.
type CollectionMetadata struct {
	RunID        string     `json:"run_id"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  time.Time  `json:"completed_at"`
	ToolVersion  string     `json:"tool_version"`
	DatabaseType string     `json:"database_type"`
	Warnings     []string   `json:"warnings,omitempty"`

	// Populated only when multi-database orchestration ran.
	Discovered *int                        `json:"discovered,omitempty"`
	Filtered   *int                        `json:"filtered,omitempty"`
	Collected  *int                        `json:"collected,omitempty"`
	Failed     *int                        `json:"failed,omitempty"`
	Skipped    *int                        `json:"skipped,omitempty"`
	PerDatabase map[string]time.Duration   `json:"per_database_duration,omitempty"`
}

// DatabaseSchema is the root document persisted by the output pipeline.
// Invariant: every index/constraint aggregated at the top level is also
// referenced by exactly one table entry (enforced by collectors copying
// from tables, never the reverse).
type DatabaseSchema struct {
	FormatVersion      string                `json:"format_version"`
	DatabaseInfo       DatabaseInfo          `json:"database_info"`
	Tables             []Table               `json:"tables"`
	Views              []View                `json:"views"`
	Indexes            []Index               `json:"indexes"`
	Constraints        []Constraint          `json:"constraints"`
	Procedures         []Routine             `json:"procedures"`
	Functions          []Routine             `json:"functions"`
	Triggers           []Trigger             `json:"triggers"`
	CustomTypes        []CustomType          `json:"custom_types"`
	Samples            []TableSample         `json:"samples,omitempty"`
	QualityMetrics     []TableQualityMetrics `json:"quality_metrics,omitempty"`
	CollectionMetadata CollectionMetadata    `json:"collection_metadata"`
}

// NewDatabaseSchema builds an empty root document with FormatVersion and
// CollectionMetadata pre-populated, ready for a collector to fill in.
func NewDatabaseSchema(info DatabaseInfo, meta CollectionMetadata) *DatabaseSchema {
	return &DatabaseSchema{
		FormatVersion:      FormatVersion,
		DatabaseInfo:       info,
		Tables:             []Table{},
		Views:              []View{},
		Indexes:            []Index{},
		Constraints:        []Constraint{},
		Procedures:         []Routine{},
		Functions:          []Routine{},
		Triggers:           []Trigger{},
		CustomTypes:        []CustomType{},
		CollectionMetadata: meta,
	}
}

// AggregateFromTables copies each table's indexes and constraints into the
// document's top-level sequences, per §4.6. Intentional duplication —
// documented in the embedded output JSON Schema's description fields.
func (s *DatabaseSchema) AggregateFromTables() {
	for _, t := range s.Tables {
		s.Indexes = append(s.Indexes, t.Indexes...)
		s.Constraints = append(s.Constraints, t.Constraints...)
	}
}
