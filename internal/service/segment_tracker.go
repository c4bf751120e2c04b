package service

import (
	"context"

	"github.com/spec-kit/storm-dispatch/internal/domain"
	"github.com/spec-kit/storm-dispatch/internal/repository"
)

// SegmentTracker opens and closes work segments as a side effect of
// lifecycle transitions. Both operations are idempotent so redundant status
// pushes within the working class never duplicate or orphan segments.
type SegmentTracker struct {
	segments repository.WorkSegmentRepository
}

// NewSegmentTracker creates the tracker.
func NewSegmentTracker(segments repository.WorkSegmentRepository) *SegmentTracker {
	return &SegmentTracker{segments: segments}
}

// OpenIfNeeded starts a segment for the assignment's crew unless one is
// already open for the (ticket, crew) pair. Returns the open segment and
// whether a new one was created.
func (t *SegmentTracker) OpenIfNeeded(ctx context.Context, ticket *domain.Ticket, assignment *domain.Assignment, actor domain.Actor) (*domain.WorkSegment, bool, error) {
	open, err := t.segments.GetOpen(ctx, ticket.ID, assignment.CrewID)
	if err != nil {
		return nil, false, err
	}
	if open != nil {
		return open, false, nil
	}
	segment := &domain.WorkSegment{
		TicketID:        ticket.ID,
		SessionID:       ticket.SessionID,
		CompanyID:       assignment.CompanyID,
		CrewID:          assignment.CrewID,
		CreatedByUserID: actor.ID,
	}
	if err := t.segments.Create(ctx, segment); err != nil {
		return nil, false, err
	}
	return segment, true, nil
}

// CloseIfOpen ends the open segment for the (ticket, crew) pair. No-op when
// none is open, e.g. when a crew was reassigned before ever going on site.
func (t *SegmentTracker) CloseIfOpen(ctx context.Context, ticketID, crewID string) (*domain.WorkSegment, bool, error) {
	open, err := t.segments.GetOpen(ctx, ticketID, crewID)
	if err != nil {
		return nil, false, err
	}
	if open == nil {
		return nil, false, nil
	}
	if err := t.segments.Close(ctx, ticketID, crewID); err != nil {
		return nil, false, err
	}
	return open, true, nil
}
