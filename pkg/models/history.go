package models

import "time"

// HistoryEntry records a single applied state transition for a task.
// History is append-only: entries are never rewritten or deleted.
type HistoryEntry struct {
	// TaskID is the task this entry belongs to.
	TaskID string `json:"task_id"`
	// From is the state the task left.
	From State `json:"from"`
	// To is the state the task entered.
	To State `json:"to"`
	// Actor identifies who or what drove the transition.
	Actor string `json:"actor,omitempty"`
	// Note is free text attached to the transition.
	Note string `json:"note,omitempty"`
	// At is when the transition was applied.
	At time.Time `json:"at"`
}
