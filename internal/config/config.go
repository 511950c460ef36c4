// Package config loads the DBSURVEYOR_* environment variables named in
// spec.md §6 into a model.ConnectionConfig, following the teacher's
// default-then-override shape: start from model.DefaultConnectionConfig,
// overlay any recognised, valid environment variable, then clamp via
// ConnectionConfig.Adjust. Invalid values are ignored (the default stands);
// out-of-range values are clamped by Adjust, not rejected here.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
)

const (
	envMaxConnections     = "DBSURVEYOR_MAX_CONNECTIONS"
	envMinIdleConnections = "DBSURVEYOR_MIN_IDLE_CONNECTIONS"
	envConnectTimeout     = "DBSURVEYOR_CONNECT_TIMEOUT_SECS"
	envAcquireTimeout     = "DBSURVEYOR_ACQUIRE_TIMEOUT_SECS"
	envIdleTimeout        = "DBSURVEYOR_IDLE_TIMEOUT_SECS"
	envMaxLifetime        = "DBSURVEYOR_MAX_LIFETIME_SECS"
)

// FromEnvironment builds a ConnectionConfig for host by starting from the
// documented defaults, overlaying any DBSURVEYOR_* variables present in
// the environment, and clamping the result.
func FromEnvironment(host string) model.ConnectionConfig {
	cfg := model.DefaultConnectionConfig(host)
	ApplyEnvironment(&cfg)
	cfg.Adjust()
	return cfg
}

// ApplyEnvironment overlays recognised DBSURVEYOR_* environment variables
// onto an existing config in place. Acquire timeout (spec.md's
// DBSURVEYOR_ACQUIRE_TIMEOUT_SECS) maps onto ConnectTimeout — the pool's
// acquire timeout is defined as connect_timeout per spec.md §4.4.
func ApplyEnvironment(cfg *model.ConnectionConfig) {
	if v, ok := envUint32(envMaxConnections); ok {
		cfg.MaxConnections = v
	}
	if v, ok := envUint32(envMinIdleConnections); ok {
		cfg.MinIdleConnections = v
	}
	if v, ok := envSeconds(envConnectTimeout); ok {
		cfg.ConnectTimeout = v
	}
	if v, ok := envSeconds(envAcquireTimeout); ok {
		cfg.ConnectTimeout = v
	}
	if v, ok := envSeconds(envIdleTimeout); ok {
		cfg.IdleTimeout = v
	}
	if v, ok := envSeconds(envMaxLifetime); ok {
		cfg.MaxLifetime = v
	}
}

func envUint32(name string) (uint32, bool) {
	raw, present := os.LookupEnv(name)
	if !present {
		return 0, false
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

func envSeconds(name string) (time.Duration, bool) {
	raw, present := os.LookupEnv(name)
	if !present {
		return 0, false
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
