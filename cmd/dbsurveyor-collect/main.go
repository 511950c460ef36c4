// Command dbsurveyor-collect introspects a single database (or, for
// server-level engines, every sibling database on the connected instance)
// into a unified versioned JSON schema document, optionally sampling rows
// and analysing data quality, then persists the result optionally
// Zstd-compressed and/or AES-GCM-256 encrypted.
//
// CLI argument parsing is a thin boundary over the core library (spec.md's
// Non-goals exclude a rich CLI surface) — this file only wires the pieces
// together behind a handful of flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dbsurveyor/dbsurveyor/internal/adapter"
	"github.com/dbsurveyor/dbsurveyor/internal/config"
	"github.com/dbsurveyor/dbsurveyor/internal/logging"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/orchestrate"
	"github.com/dbsurveyor/dbsurveyor/internal/output"
	"github.com/dbsurveyor/dbsurveyor/internal/quality"
	"github.com/dbsurveyor/dbsurveyor/internal/redact"

	// Import every engine adapter to trigger its init() registration into
	// adapter.DefaultRegistry.
	_ "github.com/dbsurveyor/dbsurveyor/internal/collect/mongodb"
	_ "github.com/dbsurveyor/dbsurveyor/internal/collect/mssql"
	_ "github.com/dbsurveyor/dbsurveyor/internal/collect/mysql"
	_ "github.com/dbsurveyor/dbsurveyor/internal/collect/postgres"
	_ "github.com/dbsurveyor/dbsurveyor/internal/collect/sqlite"
)

var logger = logging.New("dbsurveyor-collect")

// fatal logs message at FATAL and terminates the process. logging.Logger's
// Fatal/Fatalf only emit, unlike the standard library's log.Fatal, so the
// exit is done here explicitly.
func fatal(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
	os.Exit(1)
}

type thresholdFlags []string

func (t *thresholdFlags) String() string     { return strings.Join(*t, ",") }
func (t *thresholdFlags) Set(v string) error { *t = append(*t, v); return nil }

func main() {
	dsn := flag.String("dsn", "", "connection URL (postgres://, mysql://, sqlite://, mongodb://, mssql://)")
	out := flag.String("out", "schema", "output file path, without extension")
	compress := flag.Bool("compress", false, "stream the output through Zstandard (.json.zst)")
	password := flag.String("encrypt-with", "", "encrypt the output with this password (.enc); empty disables encryption")
	sampleLimit := flag.Int("sample-rows", 0, "rows to sample per table; 0 disables sampling")
	sampleThrottleMS := flag.Int("sample-throttle-ms", 0, "milliseconds to sleep between sampled rows")
	analyseQuality := flag.Bool("analyse-quality", false, "run data-quality analysis over sampled rows")
	multiDatabase := flag.Bool("all-databases", false, "fan out over every accessible sibling database (server-level engines only)")
	includeSystem := flag.Bool("include-system-databases", false, "include system databases in --all-databases mode")
	maxConcurrency := flag.Int("max-concurrency", 4, "max concurrent databases in --all-databases mode")
	var thresholds thresholdFlags
	flag.Var(&thresholds, "quality-threshold", "metric:value pair (completeness, uniqueness, or consistency); repeatable")
	flag.Parse()

	if *dsn == "" {
		fatal("missing required -dsn flag")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	qualityThresholds := parseThresholds(thresholds)

	cfg := config.FromEnvironment("")
	a, err := adapter.DefaultRegistry.Open(ctx, *dsn, cfg)
	if err != nil {
		fatal("opening %s: %v", redact.URL(*dsn), err)
	}
	defer func() { _ = a.Close(ctx) }()

	writeOpts := output.WriteOptions{Compress: *compress, Password: *password}

	if *multiDatabase {
		runMultiDatabase(ctx, a, *out, writeOpts, *sampleLimit, *sampleThrottleMS, *analyseQuality, qualityThresholds, *includeSystem, *maxConcurrency)
		return
	}
	runSingleDatabase(ctx, a, *out, writeOpts, *sampleLimit, *sampleThrottleMS, *analyseQuality, qualityThresholds)
}

func runSingleDatabase(
	ctx context.Context,
	a adapter.DatabaseAdapter,
	outPath string,
	writeOpts output.WriteOptions,
	sampleLimit int,
	sampleThrottleMS int,
	analyseQuality bool,
	thresholds quality.Thresholds,
) {
	started := time.Now().UTC()
	schema, err := a.CollectSchema(ctx)
	if err != nil {
		fatal("collecting schema: %v", err)
	}
	stampRunMetadata(schema, started)

	collectSamplesAndQuality(ctx, a, schema, sampleLimit, sampleThrottleMS, analyseQuality, thresholds)

	path := outPath + writeOpts.Extension()
	if err := output.Write(schema, path, writeOpts); err != nil {
		fatal("writing %s: %v", path, err)
	}
	fmt.Println(path)
}

func runMultiDatabase(
	ctx context.Context,
	a adapter.DatabaseAdapter,
	outPath string,
	writeOpts output.WriteOptions,
	sampleLimit int,
	sampleThrottleMS int,
	analyseQuality bool,
	thresholds quality.Thresholds,
	includeSystem bool,
	maxConcurrency int,
) {
	multi, ok := a.(adapter.MultiDatabaseAdapter)
	if !ok {
		fatal("%s does not support multi-database collection", a.DatabaseType())
	}

	databases, err := multi.ListDatabases(ctx)
	if err != nil {
		fatal("listing databases: %v", err)
	}

	mdCfg := model.DefaultMultiDatabaseConfig()
	mdCfg.IncludeSystem = includeSystem
	mdCfg.MaxConcurrency = maxConcurrency
	mdCfg.Adjust()

	result := orchestrate.Run(ctx, databases, mdCfg, func(dbCtx context.Context, name string) (*model.DatabaseSchema, error) {
		sibling, err := multi.WithDatabase(dbCtx, name)
		if err != nil {
			return nil, err
		}
		defer func() { _ = sibling.Close(dbCtx) }()

		started := time.Now().UTC()
		schema, err := sibling.CollectSchema(dbCtx)
		if err != nil {
			return nil, err
		}
		stampRunMetadata(schema, started)
		collectSamplesAndQuality(dbCtx, sibling, schema, sampleLimit, sampleThrottleMS, analyseQuality, thresholds)
		return schema, nil
	})

	for _, success := range result.Successes {
		path := fmt.Sprintf("%s-%s%s", outPath, success.Name, writeOpts.Extension())
		if err := output.Write(success.Schema, path, writeOpts); err != nil {
			logger.Warnf("writing %s: %v", path, err)
			continue
		}
		fmt.Println(path)
	}
	for _, failure := range result.Failures {
		logger.Warnf("database %q failed: %v", failure.Name, failure.Err)
	}
	fmt.Printf("discovered=%d filtered=%d collected=%d failed=%d skipped=%d\n",
		result.Discovered, result.Filtered, result.Collected, result.Failed, result.Skipped)
}

func collectSamplesAndQuality(
	ctx context.Context,
	a adapter.DatabaseAdapter,
	schema *model.DatabaseSchema,
	sampleLimit int,
	sampleThrottleMS int,
	analyseQuality bool,
	thresholds quality.Thresholds,
) {
	if sampleLimit <= 0 {
		return
	}
	sampler, ok := a.(adapter.Sampler)
	if !ok {
		return
	}

	for _, table := range schema.Tables {
		s, err := sampler.SampleTable(ctx, table, sampleLimit, sampleThrottleMS)
		if err != nil {
			schema.CollectionMetadata.Warnings = append(schema.CollectionMetadata.Warnings,
				fmt.Sprintf("sampling table %q: %v", table.Name, err))
			continue
		}
		schema.Samples = append(schema.Samples, s)

		if analyseQuality {
			schema.QualityMetrics = append(schema.QualityMetrics, quality.Analyze(s, thresholds))
		}
	}
}

// stampRunMetadata fills in the run-level header fields a collector leaves
// zero-valued (RunID, StartedAt, ToolVersion): these describe the
// invocation, not the database, so they belong to the entry point rather
// than any per-engine CollectSchema.
func stampRunMetadata(schema *model.DatabaseSchema, started time.Time) {
	schema.CollectionMetadata.RunID = uuid.NewString()
	schema.CollectionMetadata.StartedAt = started
	schema.CollectionMetadata.ToolVersion = adapter.ToolVersion
}

// parseThresholds parses repeated "metric:value" tokens per spec.md §6's
// quality-threshold surface. Invalid tokens are logged and ignored;
// Thresholds.Clamp handles out-of-range values.
func parseThresholds(tokens []string) quality.Thresholds {
	var t quality.Thresholds
	for _, tok := range tokens {
		metric, raw, found := strings.Cut(tok, ":")
		if !found {
			logger.Warnf("ignoring malformed quality threshold %q: expected metric:value", tok)
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			logger.Warnf("ignoring malformed quality threshold %q: %v", tok, err)
			continue
		}
		switch metric {
		case "completeness":
			t.Completeness = &value
		case "uniqueness":
			t.Uniqueness = &value
		case "consistency":
			t.Consistency = &value
		default:
			logger.Warnf("ignoring unknown quality metric %q", metric)
		}
	}
	t.Clamp()
	return t
}
