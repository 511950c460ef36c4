package orchestrate

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/dbsurveyor/dbsurveyor/internal/adapter"
	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regexEquivalent(pattern, s string) bool {
	re := "^" + regexp.QuoteMeta(pattern) + "$"
	re = regexp.MustCompile(`\\\*`).ReplaceAllString(re, ".*")
	re = regexp.MustCompile(`\\\?`).ReplaceAllString(re, ".")
	matched, err := regexp.MatchString(re, s)
	if err != nil {
		return false
	}
	return matched
}

func TestGlobMatchScenarios(t *testing.T) {
	assert.True(t, GlobMatch("test_*", "test_db"))
	assert.False(t, GlobMatch("test_*", "testdb"))
	assert.False(t, GlobMatch("*test*", "tst"))
	assert.True(t, GlobMatch("test_?_*", "test_1_db"))
}

func TestGlobMatchEquivalentToRegex(t *testing.T) {
	patterns := []string{"test_*", "*_db", "a?c", "*", "exact", "te*t_?"}
	subjects := []string{"test_db", "testdb", "abc", "adc", "exact", "te_final_db_1", ""}
	for _, p := range patterns {
		for _, s := range subjects {
			assert.Equal(t, regexEquivalent(p, s), GlobMatch(p, s), "pattern=%q subject=%q", p, s)
		}
	}
}

func TestValidateDatabaseNameRejectsInjection(t *testing.T) {
	assert.Error(t, ValidateDatabaseName(""))
	assert.Error(t, ValidateDatabaseName("a;drop"))
	assert.Error(t, ValidateDatabaseName(`o'hare`))
	assert.Error(t, ValidateDatabaseName(`weird"name`))
	assert.NoError(t, ValidateDatabaseName("app_db"))
}

func TestFilterExcludesSystemAndGlob(t *testing.T) {
	dbs := []adapter.DatabaseDescriptor{
		{Name: "postgres", IsSystem: true, Accessible: true},
		{Name: "app_prod", Accessible: true},
		{Name: "app_test", Accessible: true},
		{Name: "locked_db", Accessible: false},
	}
	cfg := model.MultiDatabaseConfig{ExcludePatterns: []string{"*_test"}}

	kept, warnings := Filter(dbs, cfg)

	names := make([]string, len(kept))
	for i, d := range kept {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"app_prod"}, names)
	assert.Len(t, warnings, 1)
}

func TestRunIsolatesPerDatabaseFailures(t *testing.T) {
	dbs := []adapter.DatabaseDescriptor{
		{Name: "ok_db", Accessible: true},
		{Name: "bad_db", Accessible: true},
	}
	cfg := model.MultiDatabaseConfig{MaxConcurrency: 2, ContinueOnError: true}

	result := Run(context.Background(), dbs, cfg, func(ctx context.Context, name string) (*model.DatabaseSchema, error) {
		if name == "bad_db" {
			return nil, dberrors.NewConnectionError("bad_db_host", errors.New("refused"))
		}
		return model.NewDatabaseSchema(model.DatabaseInfo{Name: name}, model.CollectionMetadata{}), nil
	})

	require.Len(t, result.Successes, 1)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "ok_db", result.Successes[0].Name)
	assert.Equal(t, "bad_db", result.Failures[0].Name)
	assert.True(t, result.Failures[0].IsConnectionError)
	assert.Equal(t, 2, result.Discovered)
	assert.Equal(t, 2, result.Filtered)
	assert.Equal(t, 1, result.Collected)
	assert.Equal(t, 1, result.Failed)
}

func TestRunOrdersSuccessesByCompletionNotDiscovery(t *testing.T) {
	dbs := []adapter.DatabaseDescriptor{
		{Name: "slow_db", Accessible: true},
		{Name: "fast_db", Accessible: true},
	}
	cfg := model.MultiDatabaseConfig{MaxConcurrency: 2, ContinueOnError: true}

	result := Run(context.Background(), dbs, cfg, func(ctx context.Context, name string) (*model.DatabaseSchema, error) {
		if name == "slow_db" {
			time.Sleep(30 * time.Millisecond)
		}
		return model.NewDatabaseSchema(model.DatabaseInfo{Name: name}, model.CollectionMetadata{}), nil
	})

	require.Len(t, result.Successes, 2)
	assert.Equal(t, "fast_db", result.Successes[0].Name)
	assert.Equal(t, "slow_db", result.Successes[1].Name)
}

func TestRunStopsOnFirstFailureWhenContinueOnErrorFalse(t *testing.T) {
	dbs := []adapter.DatabaseDescriptor{
		{Name: "bad_db", Accessible: true},
	}
	cfg := model.MultiDatabaseConfig{MaxConcurrency: 1, ContinueOnError: false}

	result := Run(context.Background(), dbs, cfg, func(ctx context.Context, name string) (*model.DatabaseSchema, error) {
		return nil, dberrors.NewConnectionError("bad_db_host", errors.New("refused"))
	})

	assert.Equal(t, 1, result.Failed)
}
