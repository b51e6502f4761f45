package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalization selects how extracted identifiers are made comparable.
type Normalization string

const (
	// NormalizeFormat applies only the format-specific rules: markup expression
	// columns are quote-stripped and lower-cased, delimited headers and record
	// keys are kept verbatim.
	NormalizeFormat Normalization = "format"
	// NormalizeUniform additionally runs every identifier, whatever its format,
	// through Uniform before comparison.
	NormalizeUniform Normalization = "uniform"
)

// ParseNormalization maps a config/flag value to a Normalization.
// Empty selects NormalizeFormat.
func ParseNormalization(s string) (Normalization, error) {
	switch Normalization(strings.ToLower(strings.TrimSpace(s))) {
	case "", NormalizeFormat:
		return NormalizeFormat, nil
	case NormalizeUniform:
		return NormalizeUniform, nil
	default:
		return "", fmt.Errorf("unknown normalization %q (want format|uniform)", s)
	}
}

// lower is Unicode-aware; strings.ToLower misses special casings such as
// final sigma.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Expression normalizes the text of a markup column expression: double quotes
// are removed and the remainder is lower-cased. Surrounding space is kept.
func Expression(s string) Column {
	return Column(lower(strings.ReplaceAll(s, `"`, "")))
}

// Uniform is the cross-format rule: quotes removed, lower-cased, trimmed.
func Uniform(c Column) Column {
	return Column(strings.TrimSpace(string(Expression(string(c)))))
}

// Apply returns a copy of s normalized according to n. NormalizeFormat
// returns s unchanged since extractors already applied their own rules.
func (n Normalization) Apply(s Schema) Schema {
	if n != NormalizeUniform {
		return s
	}
	out := Schema{Source: s.Source, Format: s.Format, Columns: make([]Column, len(s.Columns))}
	for i, c := range s.Columns {
		out.Columns[i] = Uniform(c)
	}
	return out
}
