package models

import "time"

// Event is the envelope published to Kafka after a document is stored.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// TargetReport is the per-target slice of a run summary.
type TargetReport struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
}

// RunSummary is the machine-readable outcome of one extraction run. It is
// logged, cached in Redis for dashboards, and mirrored by the exit code.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	TargetDate string         `json:"target_date"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Rounds     int            `json:"rounds"`
	Completed  int            `json:"completed"`
	Total      int            `json:"total"`
	AllDone    bool           `json:"all_done"`
	Targets    []TargetReport `json:"targets"`
}
