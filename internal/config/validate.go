package config

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"colmerge/internal/source"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, addressed by a JSON-ish path.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

var (
	knownHistory     = map[string]bool{"postgres": true, "sqlite": true, "mssql": true}
	knownMetrics     = map[string]bool{"": true, "none": true, "datadog": true}
	knownNormalizers = map[string]bool{"": true, "format": true, "uniform": true}
)

// Validate checks c and returns every issue found, errors first. An empty
// result means the config is usable as-is.
func Validate(c Config) []Issue {
	var issues []Issue
	add := func(sev Severity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if c.Threshold != nil {
		t := *c.Threshold
		switch {
		case math.IsNaN(t) || t < 0 || t > 100:
			add(SeverityError, "threshold", "must be a number within [0,100], got %g", t)
		case t == 100:
			add(SeverityWarning, "threshold", "100 can never be exceeded; no run will merge")
		}
	}

	if !knownNormalizers[strings.ToLower(strings.TrimSpace(c.Normalization))] {
		add(SeverityError, "normalization", "unknown mode %q (want format|uniform)", c.Normalization)
	}

	keys := make([]string, 0, len(c.Parsers))
	for k := range c.Parsers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !knownFormat(k) {
			add(SeverityWarning, "parsers."+k, "unknown format; options are ignored")
			continue
		}
		if comma := c.Parsers[k].String("comma", ""); comma != "" && comma != `\t` && utf8.RuneCountInString(comma) != 1 {
			add(SeverityError, "parsers."+k+".comma", "must be a single character, got %q", comma)
		}
	}

	if !knownMetrics[strings.ToLower(strings.TrimSpace(c.Metrics.Backend))] {
		add(SeverityWarning, "metrics.backend", "unknown backend %q; metrics disabled", c.Metrics.Backend)
	}

	kind := strings.ToLower(strings.TrimSpace(c.History.Kind))
	switch {
	case kind == "":
		if strings.TrimSpace(c.History.DSN) != "" {
			add(SeverityWarning, "history.dsn", "dsn set without kind; history disabled")
		}
	case !knownHistory[kind]:
		add(SeverityError, "history.kind", "unsupported kind %q (want postgres|sqlite|mssql)", c.History.Kind)
	case strings.TrimSpace(c.History.DSN) == "":
		add(SeverityError, "history.dsn", "required when history.kind is set")
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity == SeverityError && issues[j].Severity != SeverityError
	})
	return issues
}

func knownFormat(name string) bool {
	for _, f := range source.Formats {
		if strings.EqualFold(name, f.String()) {
			return true
		}
	}
	return false
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
