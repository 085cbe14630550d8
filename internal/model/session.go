package model

import "time"

// EventStatus is the outcome of one stage request.
type EventStatus string

const (
	EventSucceeded EventStatus = "succeeded"
	EventFailed    EventStatus = "failed"
	EventRejected  EventStatus = "rejected"
	EventCancelled EventStatus = "cancelled"
	EventDegraded  EventStatus = "degraded"
)

// Session is one analyst's pass through the workflow.
type Session struct {
	ID        string    `json:"id"`
	Stages    []Stage   `json:"stages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageEvent records a single operation request and how it ended.
type StageEvent struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"session_id"`
	Operation  string      `json:"operation"`
	Status     EventStatus `json:"status"`
	Message    string      `json:"message,omitempty"`
	DurationMs int64       `json:"duration_ms"`
	CreatedAt  time.Time   `json:"created_at"`
}
