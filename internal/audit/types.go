// Package audit keeps an append-only JSON Lines record of every processor
// outcome, grouped into runs.
package audit

import "time"

// RunID is a unique identifier for each watch session or sweep.
// It uses UUID v4 format: "xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx"
type RunID string

// EventType represents the type of audit event.
type EventType string

const (
	EventRunStart EventType = "RUN_START"
	EventRunEnd   EventType = "RUN_END"
	EventProcess  EventType = "PROCESS"
)

// OperationStatus represents the outcome of an operation.
type OperationStatus string

const (
	StatusSuccess OperationStatus = "SUCCESS"
	StatusFailure OperationStatus = "FAILURE"
)

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusInProgress RunStatus = "IN_PROGRESS"
	RunStatusCompleted  RunStatus = "COMPLETED"
	RunStatusFailed     RunStatus = "FAILED"
)

// RunType represents the type of run.
type RunType string

const (
	RunTypeWatch RunType = "WATCH"
	RunTypeSweep RunType = "SWEEP"
)

// ErrorDetails contains detailed information about an error.
type ErrorDetails struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
}

// AuditEvent represents a single audit record.
type AuditEvent struct {
	Timestamp    time.Time         `json:"timestamp"`
	RunID        RunID             `json:"runId"`
	EventType    EventType         `json:"eventType"`
	Status       OperationStatus   `json:"status"`
	Processor    string            `json:"processor,omitempty"`
	Path         string            `json:"path,omitempty"`
	ErrorDetails *ErrorDetails     `json:"errorDetails,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// RunSummary contains statistics for a completed run.
type RunSummary struct {
	Notifications int `json:"notifications"`
	Runs          int `json:"runs"`
	Failures      int `json:"failures"`
	Vanished      int `json:"vanished"`
	Skipped       int `json:"skipped"`
}

// RunInfo contains metadata and summary for a run.
type RunInfo struct {
	RunID     RunID
	RunType   RunType
	Root      string
	StartTime time.Time
	EndTime   *time.Time
	Status    RunStatus
	Summary   RunSummary
	Events    int // PROCESS events recorded for the run
}

// Config holds configuration for the audit log.
type Config struct {
	Path       string // active log file; rotated segments sit beside it
	MaxSizeMB  int    // rotate when the active file exceeds this size
	MaxBackups int    // rotated segments to keep, 0 = all
}

// DefaultConfig returns a Config for path with sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		MaxSizeMB:  10,
		MaxBackups: 5,
	}
}
