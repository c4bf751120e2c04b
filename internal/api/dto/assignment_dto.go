package dto

import (
	"time"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// AssignRequest payload.
type AssignRequest struct {
	CompanyID string  `json:"company_id"`
	CrewID    string  `json:"crew_id"`
	Note      *string `json:"note"`
}

// RespondRequest payload for accept/reject decisions.
type RespondRequest struct {
	Accept bool    `json:"accept"`
	Note   *string `json:"note"`
}

// AssignmentResponse mirrors one assignment.
type AssignmentResponse struct {
	ID           string                  `json:"id"`
	TicketID     string                  `json:"ticket_id"`
	CompanyID    string                  `json:"company_id"`
	CrewID       string                  `json:"crew_id"`
	Status       domain.AssignmentStatus `json:"status"`
	AssignedBy   string                  `json:"assigned_by"`
	AssignedAt   time.Time               `json:"assigned_at"`
	RespondedAt  *time.Time              `json:"responded_at"`
	ResponseNote *string                 `json:"response_note"`
	IsActive     bool                    `json:"is_active"`
}
