// Package similarity scores how much a group of schemas agree.
//
// The score is the Jaccard index over all N schemas at once, in percent:
//
//	percentage = 100 × |S1 ∩ … ∩ Sn| / |S1 ∪ … ∪ Sn|
//
// Columns are compared as sets, so duplicates inside one schema never count
// twice. Intersection and union are folds over the schemas in input order.
package similarity

import (
	"fmt"

	"colmerge/internal/schema"
)

// Result is the agreement between a group of schemas.
type Result struct {
	// Matching is the size of the intersection of all schemas.
	Matching int `json:"matching_count"`
	// Total is the size of the union of all schemas.
	Total int `json:"total_count"`
	// Percentage is 100*Matching/Total, or 0 when Total is 0.
	Percentage float64 `json:"percentage"`

	// Intersection and Union are sorted ascending.
	Intersection []schema.Column `json:"intersection"`
	Union        []schema.Column `json:"union"`
}

// Score computes the Result for schemas. It returns schema.ErrInvalidInput
// when schemas is empty. A single schema always agrees with itself (100%)
// unless it has no columns.
func Score(schemas []schema.Schema) (Result, error) {
	if len(schemas) == 0 {
		return Result{}, fmt.Errorf("%w: at least one schema is required", schema.ErrInvalidInput)
	}

	inter := schemas[0].Set()
	union := schemas[0].Set()
	for _, s := range schemas[1:] {
		set := s.Set()
		inter = intersect(inter, set)
		for c := range set {
			union[c] = struct{}{}
		}
	}

	res := Result{
		Matching:     len(inter),
		Total:        len(union),
		Intersection: inter.Sorted(),
		Union:        union.Sorted(),
	}
	res.Percentage = Percentage(res.Matching, res.Total)
	return res, nil
}

// Percentage returns 100*matching/total, defined as 0 for total == 0.
func Percentage(matching, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(matching) / float64(total)
}

func intersect(a, b schema.ColumnSet) schema.ColumnSet {
	out := make(schema.ColumnSet, len(a))
	for c := range a {
		if b.Has(c) {
			out[c] = struct{}{}
		}
	}
	return out
}
