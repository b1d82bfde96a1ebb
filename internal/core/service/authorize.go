package service

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wfm/task-system/internal/core/domain"
	"github.com/wfm/task-system/internal/core/policy"
	"github.com/wfm/task-system/internal/core/ports"
	"github.com/wfm/task-system/internal/pkg/metrics"
)

// guard runs the ownership policy for mutating operations and reports denials.
type guard struct {
	audit ports.AuditRecorder
	log   zerolog.Logger
}

// check returns domain.ErrAccessDenied unless actor may mutate the resource
// of the given kind and id owned by ownerID.
func (g guard) check(actor domain.Principal, kind, id, ownerID string) error {
	d := policy.Evaluate(policy.ActorFrom(actor), ownerID)
	if d.Permit {
		metrics.AuthzDecisionsTotal.WithLabelValues(kind, "permit").Inc()
		return nil
	}

	metrics.AuthzDecisionsTotal.WithLabelValues(kind, "deny").Inc()
	resource := kind + ":" + id
	g.log.Info().Str("username", actor.Username).Str("resource", resource).Str("reason", d.Reason).Msg("access denied")
	if g.audit != nil {
		g.audit.Record(domain.AuditEvent{
			Kind:       domain.AuditAccessDenied,
			Username:   actor.Username,
			Resource:   resource,
			Reason:     d.Reason,
			OccurredAt: time.Now().UTC(),
		})
	}
	return fmt.Errorf("%w: %s", domain.ErrAccessDenied, d.Reason)
}
