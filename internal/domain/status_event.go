package domain

import "time"

// StatusEvent is an append-only history entry for a ticket. OldStatus is
// nil for the creation event. Rejections and reassignments record an event
// with OldStatus == NewStatus.
type StatusEvent struct {
	ID              string
	TicketID        string
	OldStatus       *TicketStatus
	NewStatus       TicketStatus
	ChangedByUserID string
	ChangedAt       time.Time
	Note            *string
}
