package domain

import "time"

// TicketStatus enumerates lifecycle states for restoration tickets.
type TicketStatus string

const (
	TicketStatusCreated   TicketStatus = "CREATED"
	TicketStatusAssigned  TicketStatus = "ASSIGNED"
	TicketStatusAccepted  TicketStatus = "ACCEPTED"
	TicketStatusEnroute   TicketStatus = "ENROUTE"
	TicketStatusOnSite    TicketStatus = "ON_SITE"
	TicketStatusWorking   TicketStatus = "WORKING"
	TicketStatusBlocked   TicketStatus = "BLOCKED"
	TicketStatusCompleted TicketStatus = "COMPLETED"
	TicketStatusClosed    TicketStatus = "CLOSED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// IsTerminal reports whether the status has no outgoing transitions.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// TicketPriority enumerates dispatch urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Ticket is a unit of restoration work routed through the lifecycle.
// CompanyID is nil until the first assignment; Version backs optimistic
// concurrency on every update.
type Ticket struct {
	ID              string
	SessionID       string
	CompanyID       *string
	IssueTypeID     string
	Priority        TicketPriority
	Status          TicketStatus
	Address         string
	Latitude        *float64
	Longitude       *float64
	CreatedByUserID string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
}

// IssueType categorizes restoration work (downed line, broken pole, ...).
type IssueType struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// StormSession is a named restoration event tickets belong to.
type StormSession struct {
	ID        string
	Name      string
	Utility   string
	IsActive  bool
	StartedAt time.Time
	EndedAt   *time.Time
	CreatedAt time.Time
}
