package store

import (
	"github.com/google/uuid"

	"github.com/AdamKaabyia/oc-mcp/pkg/models"
)

// Store defines the interface for audit persistence
type Store interface {
	RecordInvocation(inv *models.ToolInvocation) error
	GetInvocation(id uuid.UUID) (*models.ToolInvocation, error)
	ListInvocations(limit int) ([]models.ToolInvocation, error)
	ListInvocationsByTool(tool string, limit int) ([]models.ToolInvocation, error)
	PruneBefore(days int) (int64, error)
	Close() error
}
