package repo

import (
	"context"
	"fmt"

	"github.com/velmart/pricing-core/internal/audit"
)

// AuditLog persists administrative audit entries.
type AuditLog struct {
	DB DB
}

// InsertAuditEntry stores one admin action.
func (a AuditLog) InsertAuditEntry(ctx context.Context, e audit.Entry) error {
	_, err := a.DB.Exec(ctx, `
INSERT INTO audit_log (action, resource_type, resource_id, actor_id, metadata, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Action, e.ResourceType, e.ResourceID, e.ActorID, e.Metadata, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
