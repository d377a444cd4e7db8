package models

import "time"

// SourceResult records how one upstream source fared during a refresh
type SourceResult struct {
	Name        string `json:"name"`
	Success     bool   `json:"success"`
	EventsFound int    `json:"eventsFound"`
	Duration    int64  `json:"duration"` // milliseconds
	Attempts    int    `json:"attempts,omitempty"`
	Rejected    int    `json:"rejected,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RefreshRun represents one weekly refresh across all sources
type RefreshRun struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
	Duration    int64     `json:"duration,omitempty"` // total duration in milliseconds
	Status      string    `json:"status"`             // running|completed|partial|failed
	TriggerType string    `json:"triggerType"`        // scheduled|manual

	WeekStart string `json:"weekStart"`

	Sources           []SourceResult `json:"sources"`
	TotalEvents       int            `json:"totalEvents"`
	DuplicatesRemoved int            `json:"duplicatesRemoved"`
	RejectedEvents    int            `json:"rejectedEvents"`

	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Refresh run status constants
const (
	RefreshStatusRunning   = "running"
	RefreshStatusCompleted = "completed"
	RefreshStatusPartial   = "partial"
	RefreshStatusFailed    = "failed"
)

// Trigger type constants
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// RefreshEvent is the payload accepted by the weekly refresh function
type RefreshEvent struct {
	TriggerType string `json:"trigger_type"`
	Source      string `json:"source,omitempty"` // set by EventBridge for scheduled runs
}

// Trigger returns the trigger type, treating an empty payload as scheduled
func (e RefreshEvent) Trigger() string {
	if e.TriggerType == TriggerManual {
		return TriggerManual
	}
	return TriggerScheduled
}
