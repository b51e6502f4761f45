// Package reconcile is the schema reconciliation engine.
//
// Engine.Run is the single entry point for callers (CLI, service, GUI shell):
//
//	locators → resolve formats → extract one schema per source
//	         → score → decide → write result file → Result
//
// The engine is synchronous and holds no state between runs. Sources are read
// one after another, each handle closed before the next is opened. Any failure
// aborts the run before the result file is written, so a failed run leaves no
// output behind.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"colmerge/internal/config"
	"colmerge/internal/emit"
	"colmerge/internal/extract"
	"colmerge/internal/metrics"
	"colmerge/internal/schema"
	"colmerge/internal/similarity"
	"colmerge/internal/source"
)

// Result is what a successful run returns to its caller.
type Result struct {
	// Output is the location of the written result file.
	Output string `json:"output"`
	// Percentage is the matching percentage in [0,100].
	Percentage float64 `json:"percentage"`
	// Threshold is the percentage the run had to exceed to merge.
	Threshold float64 `json:"threshold"`

	Similarity similarity.Result `json:"similarity"`
	Outcome    Outcome           `json:"outcome"`
	Schemas    []schema.Schema   `json:"schemas"`
}

// Options tune an Engine beyond the run config.
type Options struct {
	// Verbose logs one line per extracted source and per run.
	Verbose bool

	// now is a test seam; production uses time.Now.
	now func() time.Time
}

// Engine runs reconciliations with a fixed configuration.
type Engine struct {
	cfg       config.Config
	threshold float64
	norm      schema.Normalization
	verbose   bool
	now       func() time.Time
}

// New validates cfg and returns an Engine.
//
// Errors:
//   - Any error-severity config.Issue (bad threshold, unknown normalization,
//     ...) is returned as a single error naming the first issue.
func New(cfg config.Config, opts Options) (*Engine, error) {
	for _, iss := range config.Validate(cfg) {
		if iss.Severity == config.SeverityError {
			return nil, fmt.Errorf("%w: config %s: %s", schema.ErrInvalidInput, iss.Path, iss.Message)
		}
	}
	norm, err := schema.ParseNormalization(cfg.Normalization)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", schema.ErrInvalidInput, err)
	}

	now := opts.now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:       cfg,
		threshold: cfg.EffectiveThreshold(),
		norm:      norm,
		verbose:   opts.Verbose,
		now:       now,
	}, nil
}

// Threshold returns the merge threshold in percent.
func (e *Engine) Threshold() float64 { return e.threshold }

// Run reconciles the schemas of paths and writes the result file.
//
// Errors (nothing is written in any of these cases):
//   - schema.ErrInvalidInput when paths is empty.
//   - schema.ErrUnsupportedFormat when any path has an unsupported suffix;
//     detected for all paths before the first read.
//   - schema.ErrMalformedSource when any source cannot be read or parsed.
//   - ctx.Err() when ctx is done before the result is written.
//   - write errors from the result file.
//
// Source-specific failures are *schema.SourceError values.
func (e *Engine) Run(ctx context.Context, paths []string) (res Result, err error) {
	start := e.now()
	defer func() {
		status, outcome := "ok", string(res.Outcome.Kind)
		if err != nil {
			status, outcome = "error", "error"
		}
		metrics.IncCounter(metrics.RunsTotal, 1, metrics.Labels{"outcome": outcome})
		metrics.ObserveHistogram(metrics.RunDurationSeconds, e.now().Sub(start).Seconds(), metrics.Labels{"status": status})
	}()

	schemas, err := e.Extract(ctx, paths)
	if err != nil {
		return Result{}, err
	}

	sim, err := similarity.Score(schemas)
	if err != nil {
		return Result{}, err
	}
	out := Decide(sim, e.threshold)

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("reconcile interrupted before writing result: %w", err)
	}

	path := emit.OutputPath(e.cfg.OutputDir, paths)
	if err := emit.WriteRows(path, out.Rows()); err != nil {
		return Result{}, fmt.Errorf("write result %s: %w", path, err)
	}

	metrics.ObserveHistogram(metrics.MatchPercentage, sim.Percentage, nil)
	if e.verbose {
		log.Printf("reconcile: sources=%d matching=%d total=%d percentage=%.2f threshold=%.2f outcome=%s output=%s",
			len(schemas), sim.Matching, sim.Total, sim.Percentage, e.Threshold(), out.Kind, path)
	}

	return Result{
		Output:     path,
		Percentage: sim.Percentage,
		Threshold:  e.Threshold(),
		Similarity: sim,
		Outcome:    out,
		Schemas:    schemas,
	}, nil
}

// Extract resolves and extracts every path in order, applying the configured
// normalization. It is the read-only half of Run and writes nothing.
func (e *Engine) Extract(ctx context.Context, paths []string) ([]schema.Schema, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no sources supplied", schema.ErrInvalidInput)
	}

	srcs, err := source.Resolve(paths)
	if err != nil {
		return nil, err
	}

	out := make([]schema.Schema, 0, len(srcs))
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract interrupted before %s: %w", src.Path, err)
		}

		s, err := extract.Schema(ctx, src, e.cfg)
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IncCounter(metrics.SourcesTotal, 1, metrics.Labels{"format": src.Format.String(), "status": status})
		if err != nil {
			return nil, err
		}

		s = e.norm.Apply(s)
		if e.verbose {
			log.Printf("extract: source=%s format=%s columns=%d", src.Path, src.Format, len(s.Columns))
		}
		out = append(out, s)
	}
	return out, nil
}
