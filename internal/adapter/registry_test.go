package adapter

import (
	"context"
	"testing"

	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEngineByScheme(t *testing.T) {
	cases := map[string]Engine{
		"postgres://u@h/d":    EnginePostgres,
		"postgresql://u@h/d":  EnginePostgres,
		"mysql://u@h/d":       EngineMySQL,
		"mongodb://u@h/d":     EngineMongoDB,
		"mongodb+srv://u@h/d": EngineMongoDB,
		"mssql://u@h/d":       EngineMSSQL,
		"sqlserver://u@h/d":   EngineMSSQL,
	}
	for dsn, want := range cases {
		got, err := DetectEngine(dsn)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDetectEngineBySuffix(t *testing.T) {
	got, err := DetectEngine("/var/data/app.db")
	require.NoError(t, err)
	assert.Equal(t, EngineSQLite, got)

	got, err = DetectEngine("./local.sqlite")
	require.NoError(t, err)
	assert.Equal(t, EngineSQLite, got)
}

func TestDetectEngineUnknownScheme(t *testing.T) {
	_, err := DetectEngine("redis://h/d")
	assert.Error(t, err)
}

func TestDetectEngineUnrecognisable(t *testing.T) {
	_, err := DetectEngine("not-a-dsn-at-all")
	assert.Error(t, err)
}

func TestRegistryOpenUnregisteredEngineIsUnsupportedFeature(t *testing.T) {
	r := NewRegistry()
	_, err := r.Open(context.Background(), "postgres://u@h/d", model.ConnectionConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgresql")
}

func TestRegistryRegisterAndOpenDispatches(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register(EngineSQLite, func(ctx context.Context, dsn string, cfg model.ConnectionConfig) (DatabaseAdapter, error) {
		called = true
		return nil, nil
	})
	assert.True(t, r.IsRegistered(EngineSQLite))
	_, _ = r.Open(context.Background(), "file.db", model.ConnectionConfig{})
	assert.True(t, called)
}

func TestSupportsFeatureMatrix(t *testing.T) {
	assert.False(t, SupportsFeature(EngineSQLite, FeatureMultiDatabase))
	assert.False(t, SupportsFeature(EngineSQLite, FeatureConnectionPooling))
	assert.False(t, SupportsFeature(EngineMongoDB, FeatureMultiDatabase))
	assert.False(t, SupportsFeature(EngineMongoDB, FeatureReadOnlyMode))
	assert.True(t, SupportsFeature(EnginePostgres, FeatureMultiDatabase))
	assert.False(t, SupportsFeature(Engine("unknown"), FeatureSchemaCollection))
}
