package storage

import (
	"encoding/json"
	"time"
)

// RunRecord is one reconciliation run as stored in the history table.
type RunRecord struct {
	Job        string
	Sources    []string
	Output     string
	Percentage float64
	Merged     bool
	Columns    []string
	// Message is the refusal reason for a run that did not merge.
	Message string
	// Error is set for failed runs; Output and Percentage are then zero.
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// RecordColumns are the history table's data columns, in the order Values
// returns them. The generated id column is not included.
var RecordColumns = []string{
	"job",
	"sources",
	"output",
	"percentage",
	"merged",
	"columns",
	"message",
	"error",
	"started_at",
	"duration_ms",
}

// Values returns rec's column values in RecordColumns order. Lists are stored
// as JSON arrays. Backends convert merged and started_at where their driver
// needs a different representation.
func (rec RunRecord) Values() []any {
	return []any{
		rec.Job,
		jsonList(rec.Sources),
		rec.Output,
		rec.Percentage,
		rec.Merged,
		jsonList(rec.Columns),
		rec.Message,
		rec.Error,
		rec.StartedAt.UTC(),
		rec.Duration.Milliseconds(),
	}
}

func jsonList(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}
