package models

import "time"

// RunStatus is the status of one automation firing.
type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusSuccess  RunStatus = "success"
	RunStatusFailed   RunStatus = "failed"
	RunStatusSkipped  RunStatus = "skipped"
	RunStatusRetrying RunStatus = "retrying"
)

// Terminal reports whether the status ends a run. A worker job appends
// exactly one terminal entry, whatever path the job took.
func (s RunStatus) Terminal() bool {
	return s == RunStatusSuccess || s == RunStatusFailed || s == RunStatusSkipped
}

// LogEntry is one record of the append-only execution log. It is the single
// source of truth for "did this rule already fire for this row".
//
// RowID is nullable: the row may be deleted after the entry is written.
// Entries are only ever removed by cascade delete of their rule.
type LogEntry struct {
	ID        string    `json:"id"       validate:"required"`
	RuleID    string    `json:"rule_id"  validate:"required"`
	RowID     *string   `json:"row_id,omitempty"`
	Status    RunStatus `json:"status"   validate:"required"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
