package domain

import "time"

// AssignmentStatus enumerates the accept/reject sub-workflow states.
type AssignmentStatus string

const (
	AssignmentPendingAccept AssignmentStatus = "PENDING_ACCEPT"
	AssignmentAccepted      AssignmentStatus = "ACCEPTED"
	AssignmentRejected      AssignmentStatus = "REJECTED"
	AssignmentReassigned    AssignmentStatus = "REASSIGNED"
)

// Assignment binds one (company, crew) pair to a ticket. Superseded and
// rejected assignments are deactivated, never deleted; at most one
// assignment per ticket is active at any time.
type Assignment struct {
	ID               string
	TicketID         string
	CompanyID        string
	CrewID           string
	Status           AssignmentStatus
	AssignedByUserID string
	AssignedAt       time.Time
	RespondedAt      *time.Time
	ResponseNote     *string
	IsActive         bool
}
