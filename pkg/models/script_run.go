package models

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the outcome of a script run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	// RunStatusRejected means the run never reached the database: parameter
	// validation or the injection check refused it.
	RunStatusRejected RunStatus = "rejected"
)

// ScriptRun is one recorded run of a script, successful or not.
type ScriptRun struct {
	ID       uuid.UUID `json:"id"`
	FileName string    `json:"file_name"`

	// Parameters holds the bound values, sanitized for storage.
	Parameters map[string]any `json:"parameters"`

	Status       RunStatus `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`

	ExecutedAt time.Time `json:"executed_at"`
	DurationMs *int      `json:"duration_ms,omitempty"`
	RowCount   *int      `json:"row_count,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ScriptRunFilters narrows a run history listing.
type ScriptRunFilters struct {
	FileName string
	Status   RunStatus
	Since    *time.Time
	Limit    int
	Offset   int
}
