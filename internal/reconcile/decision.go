package reconcile

import (
	"fmt"

	"colmerge/internal/schema"
	"colmerge/internal/similarity"
)

// OutcomeKind tags which variant of Outcome is populated.
type OutcomeKind string

const (
	OutcomeMerged    OutcomeKind = "merged"
	OutcomeNotMerged OutcomeKind = "not_merged"
)

// Outcome is the reconciliation decision for one run. Exactly one variant is
// populated: Merged carries Columns, NotMerged carries Reason.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`
	// Columns is the sorted, deduplicated union. Empty unless merged.
	Columns []schema.Column `json:"columns"`
	// Reason explains a refusal to merge. Empty when merged.
	Reason string `json:"reason,omitempty"`
}

// Merged reports whether o is the merged variant.
func (o Outcome) Merged() bool { return o.Kind == OutcomeMerged }

// Rows renders o as result file rows: the merged columns as a single row, or
// the reason followed by an empty column row.
func (o Outcome) Rows() [][]string {
	if o.Merged() {
		return [][]string{schema.Strings(o.Columns)}
	}
	return [][]string{{o.Reason}, {}}
}

// NotMergedReason is the diagnostic for a refused merge.
func NotMergedReason(percentage float64) string {
	return fmt.Sprintf("Matching percentage is %.2f%%. Not merging.", percentage)
}

// Decide applies the threshold policy: merge only when the percentage is
// strictly greater than threshold. Exactly threshold does not merge.
func Decide(sim similarity.Result, threshold float64) Outcome {
	if sim.Percentage > threshold {
		cols := make([]schema.Column, len(sim.Union))
		copy(cols, sim.Union)
		return Outcome{Kind: OutcomeMerged, Columns: cols}
	}
	return Outcome{Kind: OutcomeNotMerged, Columns: []schema.Column{}, Reason: NotMergedReason(sim.Percentage)}
}
