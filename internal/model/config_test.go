package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectionConfigAdjustClampsMaxConnections(t *testing.T) {
	cases := []struct {
		name string
		in   uint32
		want uint32
	}{
		{"zero becomes one", 0, 1},
		{"under soft cap unchanged", 50, 50},
		{"over soft cap clamps to 100", 500, 100},
		{"over hard cap clamps to 100 too", 5000, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConnectionConfig("localhost")
			c.MaxConnections = tc.in
			c.Adjust()
			assert.Equal(t, tc.want, c.MaxConnections)
		})
	}
}

func TestConnectionConfigAdjustClampsMinIdle(t *testing.T) {
	c := DefaultConnectionConfig("localhost")
	c.MaxConnections = 10
	c.MinIdleConnections = 50
	c.Adjust()
	assert.LessOrEqual(t, c.MinIdleConnections, c.MaxConnections)
}

func TestConnectionConfigAdjustClampsTimeouts(t *testing.T) {
	c := DefaultConnectionConfig("localhost")
	c.ConnectTimeout = 3 * time.Hour
	c.QueryTimeout = -1
	c.Adjust()
	assert.LessOrEqual(t, c.ConnectTimeout, time.Hour)
	assert.Greater(t, c.QueryTimeout, time.Duration(0))
}

func TestConnectionConfigStringNeverIncludesUsername(t *testing.T) {
	user := "admin"
	c := DefaultConnectionConfig("db.internal")
	c.Username = &user
	assert.NotContains(t, c.String(), "admin")
}

func TestMultiDatabaseConfigAdjustClampsConcurrency(t *testing.T) {
	c := DefaultMultiDatabaseConfig()
	c.MaxConcurrency = 0
	c.Adjust()
	assert.Equal(t, 1, c.MaxConcurrency)
}

func TestNewThresholdViolationSeverity(t *testing.T) {
	// actual < 0.8 * threshold => Critical
	v := NewThresholdViolation("completeness", 1.0, 0.7)
	assert.Equal(t, SeverityCritical, v.Severity)

	v2 := NewThresholdViolation("completeness", 1.0, 0.85)
	assert.Equal(t, SeverityWarning, v2.Severity)

	// exact boundary 0.8*threshold is NOT critical (strict less-than)
	v3 := NewThresholdViolation("completeness", 1.0, 0.8)
	assert.Equal(t, SeverityWarning, v3.Severity)
}

func TestAggregateFromTablesCopiesIndexesAndConstraints(t *testing.T) {
	schema := NewDatabaseSchema(DatabaseInfo{Name: "db"}, CollectionMetadata{})
	schema.Tables = []Table{
		{
			Name:        "orders",
			Indexes:     []Index{{Name: "idx_orders_id", TableName: "orders"}},
			Constraints: []Constraint{{Name: "pk_orders", TableName: "orders", Kind: ConstraintPrimaryKey}},
		},
	}
	schema.AggregateFromTables()
	assert.Len(t, schema.Indexes, 1)
	assert.Len(t, schema.Constraints, 1)
	assert.Equal(t, "idx_orders_id", schema.Indexes[0].Name)
}
