package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storm-dispatch/internal/domain"
	"github.com/spec-kit/storm-dispatch/internal/events"
)

func TestAssignMovesCreatedTicketToAssigned(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)

	assignment := assignTicket(t, f, ticket.ID, "acme", "crew-a")
	assert.Equal(t, domain.AssignmentPendingAccept, assignment.Status)
	assert.True(t, assignment.IsActive)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, stored.Status)
	require.NotNil(t, stored.CompanyID)
	assert.Equal(t, "acme", *stored.CompanyID)

	timeline := f.statusLog.forTicket(ticket.ID)
	require.Len(t, timeline, 2)
	require.NotNil(t, timeline[1].OldStatus)
	assert.Equal(t, domain.TicketStatusCreated, *timeline[1].OldStatus)
	assert.Equal(t, domain.TicketStatusAssigned, timeline[1].NewStatus)
}

func TestAssignSupersedesActiveAssignment(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	first := assignTicket(t, f, ticket.ID, "acme", "crew-a")
	second := assignTicket(t, f, ticket.ID, "globex", "crew-b")

	assert.Equal(t, 1, f.assignments.activeCount(ticket.ID))

	old, err := f.assignments.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentReassigned, old.Status)
	assert.False(t, old.IsActive)

	active, err := f.assignments.GetActiveByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	// reassignment past CREATED keeps the ticket status
	assert.Equal(t, domain.TicketStatusAssigned, stored.Status)
	assert.Equal(t, "globex", *stored.CompanyID)

	last := f.dispatcher.published[len(f.dispatcher.published)-1]
	require.Equal(t, events.EventTicketAssigned, last.Type)
	payload, ok := last.Payload.(events.TicketAssignedPayload)
	require.True(t, ok)
	assert.True(t, payload.Superseded)
}

func TestAssignClosesSupersededCrewSegment(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	assignTicket(t, f, ticket.ID, "acme", "crew-a")

	ctx := context.Background()
	for _, next := range []domain.TicketStatus{domain.TicketStatusAccepted, domain.TicketStatusOnSite} {
		_, err := f.ticketSvc.ChangeStatus(ctx, manager, ticket.ID, next, nil)
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.segments.openCount(ticket.ID))

	assignTicket(t, f, ticket.ID, "globex", "crew-b")
	assert.Equal(t, 0, f.segments.openCount(ticket.ID))

	segmentAudits := f.audits.forEntity("work_segment")
	require.NotEmpty(t, segmentAudits)
	assert.Equal(t, "close", segmentAudits[len(segmentAudits)-1].Action)
	assert.Contains(t, f.dispatcher.typesSeen(), events.EventSegmentClosed)
}

func TestRespondConcurrentLoserGetsConflict(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	assignment := assignTicket(t, f, ticket.ID, "acme", "crew-a")
	ctx := context.Background()

	// a rejection lands after the accept has read the assignment as pending
	// but before its transaction starts
	racing := f.assignmentServiceWithTx(&staggeredTx{before: func() {
		_, err := f.assignmentSvc.Respond(ctx, acmeCrew, assignment.ID, false, nil)
		require.NoError(t, err)
	}})

	_, err := racing.Respond(ctx, acmeCrew, assignment.ID, true, nil)
	assert.Equal(t, "CONFLICT", errCode(t, err))

	stored, err := f.assignments.GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentRejected, stored.Status)
	assert.False(t, stored.IsActive)

	current, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, current.Status)
}

func TestAssignValidation(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	ctx := context.Background()

	_, err := f.assignmentSvc.Assign(ctx, acmeCrew, ticket.ID, "acme", "crew-a", nil)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.assignmentSvc.Assign(ctx, manager, ticket.ID, "acme", "crew-b", nil)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	_, err = f.assignmentSvc.Assign(ctx, manager, "missing", "acme", "crew-a", nil)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))

	_, err = f.ticketSvc.ChangeStatus(ctx, manager, ticket.ID, domain.TicketStatusCancelled, nil)
	require.NoError(t, err)
	_, err = f.assignmentSvc.Assign(ctx, manager, ticket.ID, "acme", "crew-a", nil)
	assert.Equal(t, "CONFLICT", errCode(t, err))
}

func TestUtilityAssignRequiresGrant(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	ctx := context.Background()

	_, err := f.assignmentSvc.Assign(ctx, utility, ticket.ID, "acme", "crew-a", nil)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	f.grants.grant(utility.ID, "acme")
	_, err = f.assignmentSvc.Assign(ctx, utility, ticket.ID, "acme", "crew-a", nil)
	assert.NoError(t, err)
}

func TestRespondAcceptAdvancesTicket(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	assignment := assignTicket(t, f, ticket.ID, "acme", "crew-a")

	responded, err := f.assignmentSvc.Respond(context.Background(), acmeCrew, assignment.ID, true, ptr("on our way"))
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentAccepted, responded.Status)
	assert.True(t, responded.IsActive)
	require.NotNil(t, responded.RespondedAt)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAccepted, stored.Status)
}

func TestRespondRejectLeavesTicketDispatchable(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	assignment := assignTicket(t, f, ticket.ID, "acme", "crew-a")

	responded, err := f.assignmentSvc.Respond(context.Background(), acmeCrew, assignment.ID, false, ptr("no bucket truck"))
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentRejected, responded.Status)
	assert.False(t, responded.IsActive)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, stored.Status)

	// rejection is recorded on the timeline without a status change
	timeline := f.statusLog.forTicket(ticket.ID)
	last := timeline[len(timeline)-1]
	require.NotNil(t, last.OldStatus)
	assert.Equal(t, last.NewStatus, *last.OldStatus)

	// the ticket can be dispatched again
	_, err = f.assignmentSvc.Assign(context.Background(), manager, ticket.ID, "globex", "crew-b", nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.assignments.activeCount(ticket.ID))
}

func TestRespondGuards(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	assignment := assignTicket(t, f, ticket.ID, "acme", "crew-a")
	ctx := context.Background()

	_, err := f.assignmentSvc.Respond(ctx, globexCrew, assignment.ID, true, nil)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.assignmentSvc.Respond(ctx, manager, assignment.ID, true, nil)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.assignmentSvc.Respond(ctx, acmeCrew, assignment.ID, true, nil)
	require.NoError(t, err)

	_, err = f.assignmentSvc.Respond(ctx, acmeCrew, assignment.ID, false, nil)
	assert.Equal(t, "CONFLICT", errCode(t, err))

	_, err = f.assignmentSvc.Respond(ctx, acmeCrew, "missing", true, nil)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}
