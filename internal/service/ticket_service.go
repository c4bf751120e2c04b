package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/storm-dispatch/internal/domain"
	"github.com/spec-kit/storm-dispatch/internal/events"
	"github.com/spec-kit/storm-dispatch/internal/lifecycle"
	"github.com/spec-kit/storm-dispatch/internal/policy"
	"github.com/spec-kit/storm-dispatch/internal/repository"
	apperrors "github.com/spec-kit/storm-dispatch/pkg/util"
)

// TicketService coordinates ticket workflows: creation, policy-scoped
// reads, and lifecycle transitions with their segment side effects.
type TicketService struct {
	tickets     repository.TicketRepository
	statusLog   repository.StatusEventRepository
	assignments repository.AssignmentRepository
	segments    repository.WorkSegmentRepository
	issueTypes  repository.IssueTypeRepository
	sessions    repository.SessionRepository
	grants      repository.GrantRepository
	tracker     *SegmentTracker
	policy      *policy.Engine
	audit       *AuditRecorder
	tx          repository.TxManager
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	StatusEventRepo repository.StatusEventRepository
	AssignmentRepo  repository.AssignmentRepository
	SegmentRepo     repository.WorkSegmentRepository
	IssueTypeRepo   repository.IssueTypeRepository
	SessionRepo     repository.SessionRepository
	GrantRepo       repository.GrantRepository
	Tracker         *SegmentTracker
	Policy          *policy.Engine
	Audit           *AuditRecorder
	Tx              repository.TxManager
	Dispatcher      events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	SessionID   string
	IssueTypeID string
	Priority    domain.TicketPriority
	Address     string
	Latitude    *float64
	Longitude   *float64
	Note        *string
}

// TicketListFilter describes listing filters before policy scoping.
type TicketListFilter struct {
	SessionID  *string
	CompanyID  *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		statusLog:   deps.StatusEventRepo,
		assignments: deps.AssignmentRepo,
		segments:    deps.SegmentRepo,
		issueTypes:  deps.IssueTypeRepo,
		sessions:    deps.SessionRepo,
		grants:      deps.GrantRepo,
		tracker:     deps.Tracker,
		policy:      deps.Policy,
		audit:       deps.Audit,
		tx:          deps.Tx,
		dispatcher:  deps.Dispatcher,
	}
}

var validPriorities = map[domain.TicketPriority]struct{}{
	domain.TicketPriorityLow:      {},
	domain.TicketPriorityMedium:   {},
	domain.TicketPriorityHigh:     {},
	domain.TicketPriorityCritical: {},
}

// CreateTicket opens a new ticket in CREATED with its initial StatusEvent.
// Only dispatch roles may create tickets.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if actor.Role != domain.RoleManager && actor.Role != domain.RoleUtility {
		return nil, apperrors.NewForbidden("ticket creation requires manager or utility role")
	}
	if strings.TrimSpace(input.Address) == "" {
		return nil, apperrors.NewValidationError("address required", nil)
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if _, ok := validPriorities[input.Priority]; !ok {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(input.Priority)})
	}

	session, err := s.sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("session", map[string]any{"session_id": input.SessionID})
		}
		return nil, apperrors.MapError(err)
	}
	if !session.IsActive {
		return nil, apperrors.NewConflict("session ended", map[string]any{"session_id": session.ID})
	}

	issueType, err := s.issueTypes.GetByID(ctx, input.IssueTypeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown issue type", map[string]any{"issue_type_id": input.IssueTypeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !issueType.IsActive {
		return nil, apperrors.NewValidationError("issue type inactive", map[string]any{"issue_type_id": issueType.ID})
	}

	ticket := &domain.Ticket{
		SessionID:       input.SessionID,
		IssueTypeID:     input.IssueTypeID,
		Priority:        input.Priority,
		Status:          domain.TicketStatusCreated,
		Address:         strings.TrimSpace(input.Address),
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
		CreatedByUserID: actor.ID,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return s.statusLog.Create(ctx, &domain.StatusEvent{
			TicketID:        ticket.ID,
			OldStatus:       nil,
			NewStatus:       domain.TicketStatusCreated,
			ChangedByUserID: actor.ID,
			Note:            input.Note,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.audit.Record(ctx, actor, "ticket", ticket.ID, "create", nil, map[string]any{
		"session_id":    ticket.SessionID,
		"issue_type_id": ticket.IssueTypeID,
		"priority":      ticket.Priority,
		"status":        ticket.Status,
	})
	s.publish(ctx, actor, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			SessionID:   ticket.SessionID,
			IssueTypeID: ticket.IssueTypeID,
			Priority:    ticket.Priority,
			Address:     ticket.Address,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket the actor is entitled to see.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.authorizeTicket(ctx, actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns the tickets visible to the actor, narrowing the
// requested filter to the actor's company scope.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		SessionID:  filter.SessionID,
		CompanyID:  filter.CompanyID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}

	switch actor.Role {
	case domain.RoleManager:
		// global visibility
	case domain.RoleContractor:
		if actor.CompanyID == nil {
			return nil, apperrors.NewForbidden(policy.ReasonCompanyRequired)
		}
		if repoFilter.CompanyID != nil && *repoFilter.CompanyID != *actor.CompanyID {
			return nil, apperrors.NewForbidden(policy.ReasonCrossCompany)
		}
		repoFilter.CompanyID = actor.CompanyID
	case domain.RoleUtility:
		granted, err := s.grants.ListCompanyIDs(ctx, actor.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if repoFilter.CompanyID != nil {
			if !contains(granted, *repoFilter.CompanyID) {
				return nil, apperrors.NewForbidden(policy.ReasonNoGrant)
			}
		} else {
			// granted companies plus the unassigned dispatch pool, matching
			// what GetTicket authorizes
			repoFilter.CompanyIDs = granted
			repoFilter.IncludeUnassigned = true
		}
	default:
		return nil, apperrors.NewForbidden(policy.ReasonAdminIdentityOnly)
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ChangeStatus applies one lifecycle transition with its segment side
// effects, the StatusEvent append, and the audit record, atomically.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Actor, ticketID string, next domain.TicketStatus, note *string) (*domain.Ticket, error) {
	existing, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.authorizeTicket(ctx, actor, existing); err != nil {
		return nil, err
	}

	var (
		ticket *domain.Ticket
		plan   lifecycle.Transition
		opened *domain.WorkSegment
		closed *domain.WorkSegment
		active *domain.Assignment
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err = s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		plan, err = lifecycle.Plan(ticket.Status, next)
		if err != nil {
			return err
		}

		active, err = s.assignments.GetActiveByTicket(ctx, ticket.ID)
		if err != nil {
			return err
		}
		// segment tracking needs an assigned crew; without one it is skipped
		if active != nil {
			switch plan.SegmentAction {
			case lifecycle.SegmentOpen:
				opened, _, err = s.tracker.OpenIfNeeded(ctx, ticket, active, actor)
			case lifecycle.SegmentClose:
				closed, _, err = s.tracker.CloseIfOpen(ctx, ticket.ID, active.CrewID)
			}
			if err != nil {
				return err
			}
		}

		oldStatus := ticket.Status
		ticket.Status = next
		if plan.Terminal {
			now := time.Now()
			ticket.ClosedAt = &now
		}
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return s.statusLog.Create(ctx, &domain.StatusEvent{
			TicketID:        ticket.ID,
			OldStatus:       &oldStatus,
			NewStatus:       next,
			ChangedByUserID: actor.ID,
			Note:            note,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.audit.Record(ctx, actor, "ticket", ticket.ID, "status_change",
		map[string]any{"status": plan.From},
		map[string]any{"status": plan.To, "closed_at": ticket.ClosedAt})
	s.publish(ctx, actor, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: plan.From,
			NewStatus: plan.To,
			Note:      strValue(note),
		},
	})
	if opened != nil {
		s.audit.Record(ctx, actor, "work_segment", opened.ID, "open", nil, map[string]any{
			"ticket_id":  ticket.ID,
			"company_id": opened.CompanyID,
			"crew_id":    opened.CrewID,
		})
		s.publish(ctx, actor, events.Event{
			Type:     events.EventSegmentOpened,
			TicketID: ticket.ID,
			Payload:  events.SegmentPayload{SegmentID: opened.ID, CrewID: opened.CrewID, CompanyID: opened.CompanyID},
		})
	}
	if closed != nil {
		s.audit.Record(ctx, actor, "work_segment", closed.ID, "close", nil, map[string]any{
			"ticket_id":  ticket.ID,
			"company_id": closed.CompanyID,
			"crew_id":    closed.CrewID,
		})
		s.publish(ctx, actor, events.Event{
			Type:     events.EventSegmentClosed,
			TicketID: ticket.ID,
			Payload:  events.SegmentPayload{SegmentID: closed.ID, CrewID: closed.CrewID, CompanyID: closed.CompanyID},
		})
	}
	return ticket, nil
}

// ListTimeline returns the ticket's append-only status history.
func (s *TicketService) ListTimeline(ctx context.Context, actor domain.Actor, ticketID string, limit, offset int) ([]domain.StatusEvent, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.statusLog.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListSegments returns the crew time segments recorded for a ticket.
func (s *TicketService) ListSegments(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.WorkSegment, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	segments, err := s.segments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return segments, nil
}

// authorizeTicket runs the policy engine against the ticket's owning
// company. Unassigned tickets form the dispatch pool and are visible to
// dispatch roles only.
func (s *TicketService) authorizeTicket(ctx context.Context, actor domain.Actor, ticket *domain.Ticket) error {
	if ticket.CompanyID == nil {
		if actor.Role == domain.RoleManager || actor.Role == domain.RoleUtility {
			return nil
		}
	}
	companyID := ""
	if ticket.CompanyID != nil {
		companyID = *ticket.CompanyID
	}
	decision, err := s.policy.Decide(ctx, actor, policy.ResourceTicket, companyID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !decision.Allowed {
		return apperrors.NewForbidden(decision.Reason)
	}
	return nil
}

func (s *TicketService) publish(ctx context.Context, actor domain.Actor, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Actor = events.Actor{UserID: actor.ID, Role: actor.Role, CompanyID: actor.CompanyID}
	_ = s.dispatcher.Publish(ctx, event)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
