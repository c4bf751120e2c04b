package domain

import "time"

// WorkSegment is a recorded interval of active on-site/working time for a
// crew on a ticket. At most one open segment (EndedAt == nil) exists per
// (ticket, crew) pair.
type WorkSegment struct {
	ID              string
	TicketID        string
	SessionID       string
	CompanyID       string
	CrewID          string
	StartedAt       time.Time
	EndedAt         *time.Time
	CreatedByUserID string
}

// Open reports whether the segment is still accruing time.
func (s WorkSegment) Open() bool {
	return s.EndedAt == nil
}
