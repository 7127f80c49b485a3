// Package audit records administrative changes.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/runixer/trendstudio/internal/storage"
)

// Actions recorded in the audit trail.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionSet     = "set"
	ActionCleanup = "cleanup"
)

// Entity types recorded in the audit trail.
const (
	EntityTrend       = "trend"
	EntityVariables   = "variables"
	EntityMaintenance = "maintenance"
)

// SystemActor is used when no authenticated user is attached to the context.
const SystemActor = "system"

type actorKey struct{}

// WithActor attaches the acting user name to ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the acting user, or SystemActor if none is set.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return SystemActor
}

// Recorder writes audit entries. A nil Recorder or repository is a no-op.
type Recorder struct {
	repo   storage.AuditRepository
	logger *slog.Logger
}

func NewRecorder(repo storage.AuditRepository, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger.With("component", "audit")}
}

// Record stores one entry. Failures are logged, never returned: the change
// being audited has already been committed.
func (r *Recorder) Record(ctx context.Context, action, entityType, entityID string, details interface{}) {
	if r == nil || r.repo == nil {
		return
	}

	var detailsJSON string
	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			detailsJSON = string(data)
		}
	}

	entry := storage.AuditLog{
		Actor:      ActorFromContext(ctx),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    detailsJSON,
	}
	if err := r.repo.AddAuditLog(entry); err != nil {
		r.logger.Warn("failed to save audit log",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err,
		)
	}
}
