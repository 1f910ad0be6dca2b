package model

import "time"

// RunStatus represents the current state of an acquisition run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single invocation of the deep loop.
type Run struct {
	ID        string      `json:"id"`
	Subject   string      `json:"subject"`
	Target    int         `json:"target"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the final counters of a run.
type RunSummary struct {
	Leads           int            `json:"leads"`
	Rounds          int            `json:"rounds"`
	Queries         int            `json:"queries"`
	Scrapes         int            `json:"scrapes"`
	Classifications int            `json:"classifications"`
	StopReason      string         `json:"stop_reason"`
	Rejections      map[string]int `json:"rejections,omitempty"`
	Tiers           map[Tier]int   `json:"tiers,omitempty"`
}
