package postgres

import (
	"context"
	"fmt"

	"github.com/wfm/task-system/internal/core/domain"
)

// AuditRepository persists security events to the auth_events table.
type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// InsertAuditEvent appends one event.
func (r *AuditRepository) InsertAuditEvent(ctx context.Context, e *domain.AuditEvent) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`INSERT INTO auth_events (kind, username, resource, reason, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		string(e.Kind), e.Username, e.Resource, e.Reason, e.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
