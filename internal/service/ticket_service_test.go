package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storm-dispatch/internal/domain"
	"github.com/spec-kit/storm-dispatch/internal/events"
	apperrors "github.com/spec-kit/storm-dispatch/pkg/util"
)

func createTicket(t *testing.T, f *fixture, actor domain.Actor) *domain.Ticket {
	t.Helper()
	ticket, err := f.ticketSvc.CreateTicket(context.Background(), actor, TicketCreateInput{
		SessionID:   "storm-1",
		IssueTypeID: "downed-line",
		Priority:    domain.TicketPriorityHigh,
		Address:     "12 Elm St",
	})
	require.NoError(t, err)
	return ticket
}

func assignTicket(t *testing.T, f *fixture, ticketID, companyID, crewID string) *domain.Assignment {
	t.Helper()
	assignment, err := f.assignmentSvc.Assign(context.Background(), manager, ticketID, companyID, crewID, nil)
	require.NoError(t, err)
	return assignment
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).Code
}

func TestCreateTicketWritesInitialStatusEvent(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)

	assert.Equal(t, domain.TicketStatusCreated, ticket.Status)
	assert.Nil(t, ticket.CompanyID)
	assert.Equal(t, int64(1), ticket.Version)

	timeline := f.statusLog.forTicket(ticket.ID)
	require.Len(t, timeline, 1)
	assert.Nil(t, timeline[0].OldStatus)
	assert.Equal(t, domain.TicketStatusCreated, timeline[0].NewStatus)
	assert.Equal(t, manager.ID, timeline[0].ChangedByUserID)

	require.Len(t, f.dispatcher.published, 1)
	assert.Equal(t, events.EventTicketCreated, f.dispatcher.published[0].Type)
	require.Len(t, f.audits.entries, 1)
	assert.Equal(t, "create", f.audits.entries[0].Action)
}

func TestCreateTicketRoleAndSessionChecks(t *testing.T) {
	f := newFixture()

	_, err := f.ticketSvc.CreateTicket(context.Background(), acmeCrew, TicketCreateInput{
		SessionID: "storm-1", IssueTypeID: "downed-line", Address: "12 Elm St",
	})
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	ended := f.sessions.sessions["storm-1"]
	ended.IsActive = false
	f.sessions.sessions["storm-1"] = ended
	_, err = f.ticketSvc.CreateTicket(context.Background(), manager, TicketCreateInput{
		SessionID: "storm-1", IssueTypeID: "downed-line", Address: "12 Elm St",
	})
	assert.Equal(t, "CONFLICT", errCode(t, err))
}

func TestChangeStatusFullRoundTrip(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	assignTicket(t, f, ticket.ID, "acme", "crew-a")

	ctx := context.Background()
	for _, next := range []domain.TicketStatus{
		domain.TicketStatusAccepted,
		domain.TicketStatusEnroute,
		domain.TicketStatusOnSite,
		domain.TicketStatusWorking,
		domain.TicketStatusCompleted,
		domain.TicketStatusClosed,
	} {
		updated, err := f.ticketSvc.ChangeStatus(ctx, manager, ticket.ID, next, nil)
		require.NoError(t, err, string(next))
		assert.Equal(t, next, updated.Status)

		switch next {
		case domain.TicketStatusOnSite, domain.TicketStatusWorking:
			assert.Equal(t, 1, f.segments.openCount(ticket.ID), string(next))
		default:
			assert.Equal(t, 0, f.segments.openCount(ticket.ID), string(next))
		}
		if next == domain.TicketStatusClosed {
			assert.NotNil(t, updated.ClosedAt)
		} else {
			assert.Nil(t, updated.ClosedAt)
		}
	}

	// creation + assignment + six transitions
	timeline := f.statusLog.forTicket(ticket.ID)
	assert.Len(t, timeline, 8)

	// exactly one segment, opened at ON_SITE and closed at COMPLETED
	segments, err := f.ticketSvc.ListSegments(ctx, manager, ticket.ID)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.NotNil(t, segments[0].EndedAt)
	assert.Equal(t, "crew-a", segments[0].CrewID)

	assert.Contains(t, f.dispatcher.typesSeen(), events.EventSegmentOpened)
	assert.Contains(t, f.dispatcher.typesSeen(), events.EventSegmentClosed)
}

func TestChangeStatusInvalidTransitionMutatesNothing(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)

	_, err := f.ticketSvc.ChangeStatus(context.Background(), manager, ticket.ID, domain.TicketStatusWorking, nil)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)
	assert.Equal(t, 422, domainErr.HTTPStatus)

	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCreated, stored.Status)
	assert.Len(t, f.statusLog.forTicket(ticket.ID), 1)
	assert.Empty(t, f.segments.segments)
}

func TestCancelForceClosesOpenSegment(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	assignTicket(t, f, ticket.ID, "acme", "crew-a")

	ctx := context.Background()
	for _, next := range []domain.TicketStatus{
		domain.TicketStatusAccepted,
		domain.TicketStatusWorking,
	} {
		_, err := f.ticketSvc.ChangeStatus(ctx, manager, ticket.ID, next, nil)
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.segments.openCount(ticket.ID))

	updated, err := f.ticketSvc.ChangeStatus(ctx, manager, ticket.ID, domain.TicketStatusCancelled, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, f.segments.openCount(ticket.ID))
	assert.NotNil(t, updated.ClosedAt)
}

func TestChangeStatusTerminalTicketRejected(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)

	_, err := f.ticketSvc.ChangeStatus(context.Background(), manager, ticket.ID, domain.TicketStatusCancelled, nil)
	require.NoError(t, err)

	_, err = f.ticketSvc.ChangeStatus(context.Background(), manager, ticket.ID, domain.TicketStatusAssigned, nil)
	assert.Equal(t, "INVALID_TRANSITION", errCode(t, err))
}

func TestGetTicketScoping(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	assignTicket(t, f, ticket.ID, "acme", "crew-a")

	ctx := context.Background()

	_, err := f.ticketSvc.GetTicket(ctx, acmeCrew, ticket.ID)
	assert.NoError(t, err)

	_, err = f.ticketSvc.GetTicket(ctx, globexCrew, ticket.ID)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.ticketSvc.GetTicket(ctx, admin, ticket.ID)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = f.ticketSvc.GetTicket(ctx, utility, ticket.ID)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
	f.grants.grant(utility.ID, "acme")
	_, err = f.ticketSvc.GetTicket(ctx, utility, ticket.ID)
	assert.NoError(t, err)

	_, err = f.ticketSvc.GetTicket(ctx, manager, "missing")
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestListTicketsNarrowsToScope(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := createTicket(t, f, manager)
	second := createTicket(t, f, manager)
	assignTicket(t, f, first.ID, "acme", "crew-a")
	assignTicket(t, f, second.ID, "globex", "crew-b")

	all, err := f.ticketSvc.ListTickets(ctx, manager, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.ticketSvc.ListTickets(ctx, acmeCrew, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	_, err = f.ticketSvc.ListTickets(ctx, acmeCrew, TicketListFilter{CompanyID: ptr("globex")})
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	none, err := f.ticketSvc.ListTickets(ctx, utility, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)

	f.grants.grant(utility.ID, "globex")
	granted, err := f.ticketSvc.ListTickets(ctx, utility, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, granted, 1)
	assert.Equal(t, second.ID, granted[0].ID)

	_, err = f.ticketSvc.ListTickets(ctx, admin, TicketListFilter{})
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestListTicketsShowsDispatchPoolToUtility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pool := createTicket(t, f, manager)
	assigned := createTicket(t, f, manager)
	assignTicket(t, f, assigned.ID, "acme", "crew-a")

	visible, err := f.ticketSvc.ListTickets(ctx, utility, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, pool.ID, visible[0].ID)

	// list and get agree on dispatch-pool visibility
	_, err = f.ticketSvc.GetTicket(ctx, utility, pool.ID)
	assert.NoError(t, err)

	f.grants.grant(utility.ID, "acme")
	visible, err = f.ticketSvc.ListTickets(ctx, utility, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	// contractors never see unassigned tickets
	mine, err := f.ticketSvc.ListTickets(ctx, acmeCrew, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, assigned.ID, mine[0].ID)
}

func TestSegmentOpenAndCloseAreAudited(t *testing.T) {
	f := newFixture()
	ticket := createTicket(t, f, manager)
	assignTicket(t, f, ticket.ID, "acme", "crew-a")

	ctx := context.Background()
	for _, next := range []domain.TicketStatus{
		domain.TicketStatusAccepted,
		domain.TicketStatusOnSite,
		domain.TicketStatusCompleted,
	} {
		_, err := f.ticketSvc.ChangeStatus(ctx, manager, ticket.ID, next, nil)
		require.NoError(t, err)
	}

	segmentAudits := f.audits.forEntity("work_segment")
	require.Len(t, segmentAudits, 2)
	assert.Equal(t, "open", segmentAudits[0].Action)
	assert.Equal(t, "close", segmentAudits[1].Action)
	assert.Equal(t, manager.ID, segmentAudits[0].ActorUserID)
	assert.Equal(t, "crew-a", segmentAudits[0].After["crew_id"])
}
