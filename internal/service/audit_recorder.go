package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/storm-dispatch/internal/domain"
	"github.com/spec-kit/storm-dispatch/internal/repository"
)

// AuditRecorder appends an immutable record for every state-changing
// operation. Writes are best-effort: a failed audit append is logged and
// swallowed so it can never fail or roll back the primary operation.
type AuditRecorder struct {
	audits repository.AuditRepository
	logger *zap.Logger
}

// NewAuditRecorder creates the recorder.
func NewAuditRecorder(audits repository.AuditRepository, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{audits: audits, logger: logger}
}

// Record appends one audit entry after a successful mutation.
func (r *AuditRecorder) Record(ctx context.Context, actor domain.Actor, entity, entityID, action string, before, after map[string]any) {
	if r == nil || r.audits == nil {
		return
	}
	entry := &domain.AuditEntry{
		ActorUserID: actor.ID,
		Entity:      entity,
		EntityID:    entityID,
		Action:      action,
		Before:      before,
		After:       after,
	}
	if err := r.audits.Create(ctx, entry); err != nil {
		r.logger.Warn("audit write failed",
			zap.String("entity", entity),
			zap.String("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err))
	}
}
