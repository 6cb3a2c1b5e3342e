package models

import "time"

// SourceResponse is returned by the read and refresh endpoints
type SourceResponse struct {
	Source     string      `json:"source"`
	Records    interface{} `json:"records"`
	Count      int         `json:"count"`
	State      string      `json:"state"`
	Origin     string      `json:"origin"`
	Outcome    string      `json:"outcome,omitempty"`
	RunID      string      `json:"run_id,omitempty"`
	ComputedAt *time.Time  `json:"computed_at,omitempty"`
	RequestID  string      `json:"request_id"`
}

// SourceStatus describes one registered source
type SourceStatus struct {
	Source           string        `json:"source"`
	Engine           string        `json:"engine"`
	State            string        `json:"state"`
	Records          int           `json:"records"`
	TTL              time.Duration `json:"ttl"`
	ComputedAt       *time.Time    `json:"computed_at,omitempty"`
	LastScheduledRun *time.Time    `json:"last_scheduled_run,omitempty"`
	Scheduled        bool          `json:"scheduled"`
	LastOutcome      string        `json:"last_outcome,omitempty"`
	LastRunAt        *time.Time    `json:"last_run_at,omitempty"`
}

// ScheduleResponse reports a scheduled-run attempt
type ScheduleResponse struct {
	Source    string     `json:"source"`
	Ran       bool       `json:"ran"`
	Reason    string     `json:"reason,omitempty"`
	Outcome   string     `json:"outcome,omitempty"`
	Records   int        `json:"records"`
	NextDueAt *time.Time `json:"next_due_at,omitempty"`
	RequestID string     `json:"request_id"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    time.Duration     `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SourcesResponse lists every registered source
type SourcesResponse struct {
	Sources   []SourceStatus `json:"sources"`
	RequestID string         `json:"request_id"`
}

// RegionalResponse carries events from the regional data files
type RegionalResponse struct {
	Region    string          `json:"region"`
	City      string          `json:"city,omitempty"`
	Cities    []string        `json:"cities,omitempty"`
	Events    []RegionalEvent `json:"events"`
	Count     int             `json:"count"`
	RequestID string          `json:"request_id"`
}
