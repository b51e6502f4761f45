// Package source resolves input locators into typed sources and opens them
// for reading.
//
// Format detection is purely suffix-based and case-insensitive. Content is
// never sniffed: a .csv file containing JSON is still read as delimited text.
package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"colmerge/internal/schema"
)

// Format is the closed set of supported source formats.
type Format int

const (
	FormatUnknown Format = iota
	// FormatDelimited is delimited text with a header row (.csv).
	FormatDelimited
	// FormatMarkupExpression is a report definition document whose column
	// expressions carry the column names (.xml).
	FormatMarkupExpression
	// FormatHierarchicalRecord is a JSON array of keyed records (.json).
	FormatHierarchicalRecord
)

// Formats lists the supported formats in detection order.
var Formats = []Format{FormatDelimited, FormatMarkupExpression, FormatHierarchicalRecord}

var suffixes = map[string]Format{
	".csv":  FormatDelimited,
	".xml":  FormatMarkupExpression,
	".json": FormatHierarchicalRecord,
}

// String returns the short name used in config keys, metrics tags and errors.
func (f Format) String() string {
	switch f {
	case FormatDelimited:
		return "csv"
	case FormatMarkupExpression:
		return "xml"
	case FormatHierarchicalRecord:
		return "json"
	default:
		return "unknown"
	}
}

// Source is a resolved input: a locator plus its detected format.
type Source struct {
	Path   string
	Format Format
}

// Detect classifies path by its suffix.
func Detect(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := suffixes[ext]; ok {
		return f, nil
	}
	if ext == "" {
		return FormatUnknown, fmt.Errorf("%w: %s has no file extension (want .csv, .xml or .json)", schema.ErrUnsupportedFormat, path)
	}
	return FormatUnknown, fmt.Errorf("%w: %q in %s (want .csv, .xml or .json)", schema.ErrUnsupportedFormat, ext, path)
}

// Resolve detects the format of every path, in order. It fails on the first
// unsupported path so nothing is read when any input would be rejected.
func Resolve(paths []string) ([]Source, error) {
	out := make([]Source, 0, len(paths))
	for _, p := range paths {
		f, err := Detect(p)
		if err != nil {
			return nil, &schema.SourceError{Path: p, Op: "detect", Err: err}
		}
		out = append(out, Source{Path: p, Format: f})
	}
	return out, nil
}

// Basename returns the file name of path without directory and without its
// last extension: "data/q1.report.csv" → "q1.report".
func Basename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
