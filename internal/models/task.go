package models

import (
	"time"
)

// ProcessingTask tracks an asynchronous optimization job.
type ProcessingTask struct {
	ID        string           `json:"id"`
	Status    ProcessingStatus `json:"status"`
	Type      string           `json:"type"`
	Error     string           `json:"error,omitempty"`
	Retried   int              `json:"retried"`
	CreatedAt time.Time        `json:"createdAt,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt,omitempty"`
}

type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusRunning   ProcessingStatus = "running"
	StatusCompleted ProcessingStatus = "completed"
	StatusFailed    ProcessingStatus = "failed"
	StatusCancelled ProcessingStatus = "cancelled"
)
