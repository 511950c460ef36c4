package orchestrate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dbsurveyor/dbsurveyor/internal/adapter"
	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"golang.org/x/sync/errgroup"
)

const maxDatabaseNameBytes = 63

// ValidateDatabaseName rejects names that are empty, too long, or contain
// characters that could inject into a rewritten per-database URL path
// (spec.md §4.8: "reject names that are empty, >63 bytes, or contain `;`,
// `'`, or `\"`").
func ValidateDatabaseName(name string) error {
	if name == "" {
		return dberrors.NewConfigurationError("database", "name must not be empty")
	}
	if len(name) > maxDatabaseNameBytes {
		return dberrors.NewConfigurationError("database", "name exceeds 63 bytes")
	}
	if strings.ContainsAny(name, ";'\"") {
		return dberrors.NewConfigurationError("database", "name contains a disallowed character")
	}
	return nil
}

// DatabaseOutcome is one database's collection result, success or
// failure.
type DatabaseOutcome struct {
	Name              string
	Schema            *model.DatabaseSchema
	Err               error
	IsConnectionError bool
	Duration          time.Duration
}

// Result is the aggregated multi-database collection outcome.
type Result struct {
	Successes []DatabaseOutcome
	Failures  []DatabaseOutcome
	Discovered int
	Filtered   int
	Collected  int
	Failed     int
	Skipped    int
	Warnings   []string
	TotalDuration time.Duration
}

// Filter applies IncludeSystem and ExcludePatterns to a discovered
// database list, returning the surviving descriptors and a list of
// human-readable warnings for anything dropped as inaccessible.
func Filter(databases []adapter.DatabaseDescriptor, cfg model.MultiDatabaseConfig) ([]adapter.DatabaseDescriptor, []string) {
	var kept []adapter.DatabaseDescriptor
	var warnings []string

	for _, db := range databases {
		if db.IsSystem && !cfg.IncludeSystem {
			continue
		}
		if !db.Accessible {
			warnings = append(warnings, "database '"+db.Name+"' is not accessible, skipping")
			continue
		}
		excluded := false
		for _, pattern := range cfg.ExcludePatterns {
			if GlobMatch(pattern, db.Name) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		kept = append(kept, db)
	}
	return kept, warnings
}

// CollectFunc collects the full schema for one sibling database, given its
// name. Built by the caller from a MultiDatabaseAdapter.WithDatabase +
// DatabaseAdapter.CollectSchema pair.
type CollectFunc func(ctx context.Context, databaseName string) (*model.DatabaseSchema, error)

// Run fans out collect over databases with concurrency bounded by
// cfg.MaxConcurrency, isolating per-database failures. When
// cfg.ContinueOnError is false, the first failure cancels groupCtx;
// databases whose goroutine has not yet started collecting are recorded as
// Skipped rather than attempted against an already-cancelled context.
// Successes and Failures are appended in completion order, not discovery
// order: whichever database finishes first is recorded first.
func Run(ctx context.Context, databases []adapter.DatabaseDescriptor, cfg model.MultiDatabaseConfig, collect CollectFunc) *Result {
	start := time.Now()
	filtered, warnings := Filter(databases, cfg)

	result := &Result{
		Discovered: len(databases),
		Filtered:   len(filtered),
		Warnings:   warnings,
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(cfg.MaxConcurrency)

	for _, db := range filtered {
		db := db
		group.Go(func() error {
			select {
			case <-groupCtx.Done():
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			default:
			}

			if err := ValidateDatabaseName(db.Name); err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, DatabaseOutcome{Name: db.Name, Err: err})
				result.Failed++
				mu.Unlock()
				if !cfg.ContinueOnError {
					return err
				}
				return nil
			}

			dbStart := time.Now()
			schema, err := collect(groupCtx, db.Name)
			duration := time.Since(dbStart)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				_, isConnErr := asConnectionError(err)
				result.Failures = append(result.Failures, DatabaseOutcome{Name: db.Name, Err: err, IsConnectionError: isConnErr, Duration: duration})
				result.Failed++
				if !cfg.ContinueOnError {
					return err
				}
				return nil
			}

			result.Successes = append(result.Successes, DatabaseOutcome{Name: db.Name, Schema: schema, Duration: duration})
			result.Collected++
			return nil
		})
	}

	// Errors from individual collections are captured per-outcome above;
	// group.Wait only propagates when ContinueOnError is false and a
	// database genuinely failed, which simply stops draining early.
	_ = group.Wait()

	result.TotalDuration = time.Since(start)
	return result
}

func asConnectionError(err error) (*dberrors.ConnectionError, bool) {
	var ce *dberrors.ConnectionError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
