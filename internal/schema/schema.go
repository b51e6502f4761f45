// Package schema holds the column model shared by the extractors, the scorer,
// and the reconciliation engine.
//
// A Schema is the ordered column list read from one source. It is produced once
// by an extractor and treated as read-only afterwards; consumers that need set
// semantics call Set, which collapses duplicates without touching the original
// order.
package schema

import "sort"

// Column is a single column identifier. Equality is exact string equality
// after whatever normalization the producing extractor applied.
type Column string

// Schema is the ordered column list extracted from a single source.
type Schema struct {
	// Source is the locator the columns were read from.
	Source string `json:"source"`
	// Format is the short format name ("csv", "xml", "json").
	Format string `json:"format"`
	// Columns are in source order. Duplicates are allowed here.
	Columns []Column `json:"columns"`
}

// ColumnSet is an unordered set of columns.
type ColumnSet map[Column]struct{}

// Set returns the distinct columns of s.
func (s Schema) Set() ColumnSet {
	out := make(ColumnSet, len(s.Columns))
	for _, c := range s.Columns {
		out[c] = struct{}{}
	}
	return out
}

// Has reports whether c is in the set.
func (cs ColumnSet) Has(c Column) bool {
	_, ok := cs[c]
	return ok
}

// Sorted returns the set members in ascending byte order.
//
// Byte order on UTF-8 strings equals code point order, so the result is stable
// across platforms and locales.
func (cs ColumnSet) Sorted() []Column {
	out := make([]Column, 0, len(cs))
	for c := range cs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Columns converts plain strings into columns.
func Columns(ss ...string) []Column {
	out := make([]Column, len(ss))
	for i, s := range ss {
		out[i] = Column(s)
	}
	return out
}

// Strings converts columns into plain strings.
func Strings(cs []Column) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}
