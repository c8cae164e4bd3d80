// Package audit records administrative rule changes. Calculation traffic is
// never audited; only the write-side admin endpoints go through here.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Entry is one recorded administrative action.
type Entry struct {
	Action       string
	ResourceType string
	ResourceID   int64
	ActorID      int64
	Metadata     json.RawMessage
	OccurredAt   time.Time
}

// Store persists audit entries.
type Store interface {
	InsertAuditEntry(ctx context.Context, e Entry) error
}

// Service persists audit logs for administrative flows. Disabled instances
// drop entries silently so callers never branch on configuration.
type Service struct {
	Store   Store
	Enabled bool
	Now     func() time.Time
}

// Record persists one entry. Metadata must already be valid JSON or nil.
func (s Service) Record(ctx context.Context, actorID int64, action, resourceType string, resourceID int64, metadata json.RawMessage) error {
	if !s.Enabled {
		return nil
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return errors.New("audit: action is required")
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	return s.Store.InsertAuditEntry(ctx, Entry{
		Action:       action,
		ResourceType: strings.TrimSpace(resourceType),
		ResourceID:   resourceID,
		ActorID:      actorID,
		Metadata:     metadata,
		OccurredAt:   now,
	})
}
