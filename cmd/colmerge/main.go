// Command colmerge reconciles the column schemas of several data files and
// writes the merged column list (or the reason for refusing to merge) to
// <base1>_<base2>_..._merged.csv.
//
//	colmerge [flags] FILE...
//
// Settings resolve flag → environment → config file → default.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"colmerge/internal/config"
	"colmerge/internal/metrics"
	"colmerge/internal/metrics/datadog"
	"colmerge/internal/reconcile"
	"colmerge/internal/storage"
	_ "colmerge/internal/storage/all"
)

const usage = "usage: colmerge [flags] FILE..."

// appDeps holds the side-effecting collaborators of runMain.
type appDeps struct {
	getenv      func(string) string
	loadConfig  func(path string) (config.Config, error)
	initMetrics func(ctx context.Context, cfg config.Config, backend string) (func(), error)
	openHistory func(ctx context.Context, cfg storage.Config) (storage.RunRepository, error)
	now         func() time.Time
}

func defaultDeps() appDeps {
	return appDeps{
		getenv:      os.Getenv,
		loadConfig:  config.Load,
		initMetrics: initMetrics,
		openHistory: storage.Open,
		now:         time.Now,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()
	os.Exit(code)
}

// runMain returns the process exit code: 0 success, 1 run failure, 2 usage.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("colmerge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}

	var (
		cfgPath    = fs.String("config", "", "optional JSON config file")
		outDir     = fs.String("out-dir", "", "directory for the result file (default: working directory)")
		threshold  = fs.String("threshold", "", "merge only when the matching percentage is strictly greater (default 50)")
		normalize  = fs.String("normalize", "", "column normalization: format|uniform")
		metricsFlg = fs.String("metrics-backend", "", "metrics backend: none|datadog (overrides env METRICS_BACKEND)")
		histKind   = fs.String("history-kind", "", "run history backend: postgres|sqlite|mssql (overrides env HISTORY_KIND)")
		histDSN    = fs.String("history-dsn", "", "run history DSN (overrides env HISTORY_DSN)")
		verbose    = fs.Bool("v", false, "enable verbose logs")
		asJSON     = fs.Bool("json", false, "print the full result as JSON")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	log.SetOutput(stderr)

	cfg := config.Config{}
	if p := strings.TrimSpace(*cfgPath); p != "" {
		c, err := deps.loadConfig(p)
		if err != nil {
			fmt.Fprintf(stderr, "load config: %v\n", err)
			return 1
		}
		cfg = c
	}

	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *threshold != "" {
		v, err := strconv.ParseFloat(*threshold, 64)
		if err != nil {
			fmt.Fprintf(stderr, "invalid -threshold %q: %v\n", *threshold, err)
			return 2
		}
		cfg.Threshold = &v
	}
	if *normalize != "" {
		cfg.Normalization = *normalize
	}
	cfg.Metrics.Backend = firstNonEmpty(*metricsFlg, deps.getenv("METRICS_BACKEND"), cfg.Metrics.Backend, "none")
	if envTags := datadog.ParseTagsCSV(deps.getenv("DD_TAGS")); len(envTags) > 0 {
		cfg.Metrics.Tags = append(append([]string(nil), cfg.Metrics.Tags...), envTags...)
	}
	cfg.History.Kind = firstNonEmpty(*histKind, deps.getenv("HISTORY_KIND"), cfg.History.Kind)
	cfg.History.DSN = firstNonEmpty(*histDSN, deps.getenv("HISTORY_DSN"), cfg.History.DSN)

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "config %s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return 2
	}

	cleanupMetrics, err := deps.initMetrics(ctx, cfg, cfg.Metrics.Backend)
	if err != nil {
		log.Printf("metrics: init %s failed: %v; metrics disabled", cfg.Metrics.Backend, err)
		cleanupMetrics = func() {}
	}
	defer cleanupMetrics()

	var history storage.RunRepository
	if cfg.History.Kind != "" {
		h, err := deps.openHistory(ctx, storage.Config{Kind: cfg.History.Kind, DSN: cfg.History.DSN, Table: cfg.History.Table})
		if err != nil {
			log.Printf("history: %v; runs will not be recorded", err)
		} else {
			history = h
			defer history.Close()
		}
	}

	eng, err := reconcile.New(cfg, reconcile.Options{Verbose: *verbose})
	if err != nil {
		fmt.Fprintf(stderr, "colmerge: %v\n", err)
		return 2
	}

	started := deps.now()
	res, runErr := eng.Run(ctx, fs.Args())
	if history != nil {
		rec := historyRecord(cfg, fs.Args(), res, runErr, started, deps.now().Sub(started))
		if _, err := history.InsertRun(ctx, rec); err != nil {
			log.Printf("history: %v", err)
		}
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "colmerge: %v\n", runErr)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(stderr, "encode result: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stdout, "Matching Percentage: %.2f%%\n", res.Percentage)
	fmt.Fprintf(stdout, "Output File: %s\n", res.Output)
	return 0
}

func historyRecord(cfg config.Config, paths []string, res reconcile.Result, runErr error, started time.Time, took time.Duration) storage.RunRecord {
	rec := storage.RunRecord{
		Job:       cfg.JobName(),
		Sources:   paths,
		StartedAt: started,
		Duration:  took,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
		return rec
	}
	rec.Output = res.Output
	rec.Percentage = res.Percentage
	rec.Merged = res.Outcome.Merged()
	rec.Message = res.Outcome.Reason
	for _, c := range res.Outcome.Columns {
		rec.Columns = append(rec.Columns, string(c))
	}
	return rec
}

// setMetricsBackend is a test seam over metrics.SetBackend.
var setMetricsBackend = func(b metrics.Backend) { metrics.SetBackend(b) }

// initMetrics installs the named backend and returns its cleanup.
// "none" and "" leave the nop backend in place. cfg.Metrics.Tags already
// includes DD_TAGS.
func initMetrics(ctx context.Context, cfg config.Config, backend string) (func(), error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "none", "nop", "noop":
		return func() {}, nil

	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{JobName: cfg.JobName(), Tags: cfg.Metrics.Tags})
		if err != nil {
			return nil, err
		}
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: datadog close/flush error: %v", err)
			}
			setMetricsBackend(nil)
		}, nil

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backend)
		return func() {}, nil
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
