// Package config defines the JSON run configuration consumed by cmd/colmerge
// and cmd/colschema.
//
// A config file is optional. Every field has a working default, and the
// commands layer flags and environment variables on top (flag → env → file →
// default). A typical file:
//
//	{
//	  "job": "quarterly_reports",
//	  "output_dir": "out",
//	  "threshold": 50,
//	  "normalization": "format",
//	  "parsers": {
//	    "csv": {"comma": ";", "encoding": "windows-1250"},
//	    "xml": {"expression_type": "sawx:sqlExpression"}
//	  },
//	  "metrics": {"backend": "datadog", "tags": ["team:data"]},
//	  "history": {"kind": "sqlite", "dsn": "file:colmerge.db"}
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultThreshold is the merge threshold in percent. A run merges only when
// its matching percentage is strictly greater than the threshold.
const DefaultThreshold = 50.0

// Config is the top-level run configuration.
type Config struct {
	// Job names the run in metrics tags and history records.
	Job string `json:"job"`

	// OutputDir is where the merged CSV is written. Empty means the current
	// working directory.
	OutputDir string `json:"output_dir"`

	// Threshold overrides DefaultThreshold when set.
	Threshold *float64 `json:"threshold,omitempty"`

	// Normalization is "format" (default) or "uniform".
	Normalization string `json:"normalization"`

	// Parsers holds per-format option bags keyed by "csv", "xml" or "json".
	Parsers map[string]Options `json:"parsers,omitempty"`

	Metrics Metrics `json:"metrics"`
	History History `json:"history"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none" (default) or "datadog".
	Backend string `json:"backend"`
	// Tags are extra backend tags such as "env:prod".
	Tags []string `json:"tags,omitempty"`
}

// History configures the optional run-history store.
type History struct {
	// Kind is a registered storage kind: "postgres", "sqlite" or "mssql".
	// Empty disables history.
	Kind  string `json:"kind"`
	DSN   string `json:"dsn"`
	// Table defaults to "colmerge_runs".
	Table string `json:"table,omitempty"`
}

// Load reads and decodes a config file. Unknown fields are rejected so typos
// surface instead of silently falling back to defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Decode(b)
}

// Decode parses a config document.
func Decode(b []byte) (Config, error) {
	var c Config
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// EffectiveThreshold returns Threshold or DefaultThreshold.
func (c Config) EffectiveThreshold() float64 {
	if c.Threshold == nil {
		return DefaultThreshold
	}
	return *c.Threshold
}

// ParserOptions returns the option bag for a format name. The result is never
// nil.
func (c Config) ParserOptions(format string) Options {
	if o, ok := c.Parsers[strings.ToLower(format)]; ok && o != nil {
		return o
	}
	for k, o := range c.Parsers {
		if strings.EqualFold(k, format) && o != nil {
			return o
		}
	}
	return Options{}
}

// JobName returns Job or "colmerge".
func (c Config) JobName() string {
	if j := strings.TrimSpace(c.Job); j != "" {
		return j
	}
	return "colmerge"
}
