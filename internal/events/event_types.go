package events

import (
	"time"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventAssignmentResponded EventType = "assignment_responded"
	EventSegmentOpened       EventType = "segment_opened"
	EventSegmentClosed       EventType = "segment_closed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role"`
	CompanyID *string     `json:"company_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	SessionID   string                `json:"session_id"`
	IssueTypeID string                `json:"issue_type_id"`
	Priority    domain.TicketPriority `json:"priority"`
	Address     string                `json:"address"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Note      string              `json:"note,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignmentID string `json:"assignment_id"`
	CompanyID    string `json:"company_id"`
	CrewID       string `json:"crew_id"`
	Superseded   bool   `json:"superseded"`
}

// AssignmentRespondedPayload payload.
type AssignmentRespondedPayload struct {
	AssignmentID string                  `json:"assignment_id"`
	Status       domain.AssignmentStatus `json:"status"`
	Note         string                  `json:"note,omitempty"`
}

// SegmentPayload payload for segment open/close events.
type SegmentPayload struct {
	SegmentID string `json:"segment_id,omitempty"`
	CrewID    string `json:"crew_id"`
	CompanyID string `json:"company_id"`
}
