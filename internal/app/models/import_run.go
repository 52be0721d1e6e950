package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportRun records one reconciliation pass for operators and the dashboard.
type ImportRun struct {
	ID         uuid.UUID  `json:"id"`
	Mode       Mode       `json:"mode"`
	SourceName string     `json:"sourceName"`
	Encoding   string     `json:"encoding"`
	SkipRows   int        `json:"skipRows"`
	Inserted   int        `json:"inserted"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Eliminated int        `json:"eliminated"`
	Total      int        `json:"totalProcessed"`
	Success    bool       `json:"success"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}
