package domain

import "time"

// AuditEntry is an append-only record of one state-changing operation.
type AuditEntry struct {
	ID          string
	ActorUserID string
	Entity      string
	EntityID    string
	Action      string
	Before      map[string]any
	After       map[string]any
	CreatedAt   time.Time
}
