package model

import "time"

// RunStatus represents the current state of an underwriting run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one persisted record-to-metrics computation, kept for review.
type Run struct {
	ID        string          `json:"id"`
	Record    RawRecord       `json:"record"`
	Metrics   *LendingMetrics `json:"metrics,omitempty"`
	Audit     []string        `json:"audit,omitempty"`
	Status    RunStatus       `json:"status"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
