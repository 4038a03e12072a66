package models

import "time"

// Outcome is the terminal state of one pipeline invocation.
type Outcome string

const (
	OutcomeForwarded Outcome = "forwarded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// PipelineResult is the per-message outcome. It feeds logs, metrics and the
// ops journal; it is never persisted.
type PipelineResult struct {
	Outcome   Outcome          `json:"outcome"`
	Reason    string           `json:"reason,omitempty"`
	SourceID  string           `json:"source_id"`
	MessageID int64            `json:"message_id"`
	TraceID   string           `json:"trace_id"`
	Signal    *FormattedSignal `json:"-"`
	At        time.Time        `json:"at"`
	Elapsed   time.Duration    `json:"elapsed_ms"`
}
