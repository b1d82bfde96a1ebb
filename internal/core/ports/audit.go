package ports

import (
	"context"

	"github.com/wfm/task-system/internal/core/domain"
)

// AuditRecorder accepts security events without blocking the caller.
type AuditRecorder interface {
	Record(event domain.AuditEvent)
}

// AuditRepository persists security events.
type AuditRepository interface {
	InsertAuditEvent(ctx context.Context, event *domain.AuditEvent) error
}
