package models

import (
	"time"

	"github.com/google/uuid"
)

// ToolInvocation records one tool call for the audit trail.
type ToolInvocation struct {
	ID         uuid.UUID `json:"id"`
	Tool       string    `json:"tool"`
	Arguments  string    `json:"arguments,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Invocation statuses.
const (
	InvocationOK    = "ok"
	InvocationError = "error"
)
