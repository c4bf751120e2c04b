package dto

import (
	"time"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	SessionID   string                `json:"session_id"`
	IssueTypeID string                `json:"issue_type_id"`
	Priority    domain.TicketPriority `json:"priority"`
	Address     string                `json:"address"`
	Latitude    *float64              `json:"latitude"`
	Longitude   *float64              `json:"longitude"`
	Note        *string               `json:"note"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
	Note   *string             `json:"note"`
}

// TicketResponse mirrors one ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	SessionID   string                `json:"session_id"`
	CompanyID   *string               `json:"company_id"`
	IssueTypeID string                `json:"issue_type_id"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Address     string                `json:"address"`
	Latitude    *float64              `json:"latitude"`
	Longitude   *float64              `json:"longitude"`
	CreatedBy   string                `json:"created_by"`
	Version     int64                 `json:"version"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	ClosedAt    *time.Time            `json:"closed_at"`
}

// StatusEventResponse is one timeline entry.
type StatusEventResponse struct {
	ID        string               `json:"id"`
	OldStatus *domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus  `json:"new_status"`
	ChangedBy string               `json:"changed_by"`
	ChangedAt time.Time            `json:"changed_at"`
	Note      *string              `json:"note"`
}

// WorkSegmentResponse is one recorded crew time interval.
type WorkSegmentResponse struct {
	ID        string     `json:"id"`
	TicketID  string     `json:"ticket_id"`
	SessionID string     `json:"session_id"`
	CompanyID string     `json:"company_id"`
	CrewID    string     `json:"crew_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Open      bool       `json:"open"`
}
