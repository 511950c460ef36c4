package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvironmentAppliesOverridesAndClamps(t *testing.T) {
	t.Setenv("DBSURVEYOR_MAX_CONNECTIONS", "9000")
	t.Setenv("DBSURVEYOR_MIN_IDLE_CONNECTIONS", "5")
	t.Setenv("DBSURVEYOR_CONNECT_TIMEOUT_SECS", "15")

	cfg := FromEnvironment("localhost")

	assert.Equal(t, uint32(100), cfg.MaxConnections) // clamped to soft cap
	assert.Equal(t, uint32(5), cfg.MinIdleConnections)
	assert.Equal(t, 15*time.Second, cfg.ConnectTimeout)
}

func TestFromEnvironmentIgnoresInvalidValues(t *testing.T) {
	t.Setenv("DBSURVEYOR_MAX_CONNECTIONS", "not-a-number")

	cfg := FromEnvironment("localhost")

	assert.Equal(t, uint32(10), cfg.MaxConnections) // default stands
}

func TestFromEnvironmentDefaultsWhenUnset(t *testing.T) {
	cfg := FromEnvironment("localhost")
	assert.Equal(t, "localhost", cfg.Host)
	assert.True(t, cfg.ReadOnly)
}
