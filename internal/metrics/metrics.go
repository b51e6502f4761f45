// Package metrics is a small process-wide metrics facade.
//
// Core code records through the package-level helpers and never depends on a
// concrete backend. Commands install a backend with SetBackend at startup; until
// then every call is a no-op.
package metrics

import "sync"

// Metric names recorded by the reconciliation engine.
const (
	// RunsTotal counts finished runs, labelled outcome=merged|not_merged|error.
	RunsTotal = "colmerge_runs_total"
	// SourcesTotal counts extracted sources, labelled format and status=ok|error.
	SourcesTotal = "colmerge_sources_total"
	// RunDurationSeconds observes wall time per run, labelled status=ok|error.
	RunDurationSeconds = "colmerge_run_duration_seconds"
	// MatchPercentage observes the matching percentage of successful runs.
	MatchPercentage = "colmerge_match_percentage"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric events. Implementations must be safe for concurrent
// use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process backend. A nil b restores the no-op
// backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}
