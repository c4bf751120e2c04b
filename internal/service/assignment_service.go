package service

import (
	"context"
	"errors"
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

// AssignmentService handles crew-to-ticket dispatch and the accept/reject
// response workflow. Supersession, ticket updates and status events are
// applied in one transaction so no reader ever observes two active
// assignments.
type AssignmentService struct {
	tickets     repository.TicketRepository
	assignments repository.AssignmentRepository
	companies   repository.CompanyRepository
	crews       repository.CrewRepository
	statusLog   repository.StatusEventRepository
	tracker     *SegmentTracker
	policy      *policy.Engine
	audit       *AuditRecorder
	tx          repository.TxManager
	dispatcher  events.Dispatcher
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo      repository.TicketRepository
	AssignmentRepo  repository.AssignmentRepository
	CompanyRepo     repository.CompanyRepository
	CrewRepo        repository.CrewRepository
	StatusEventRepo repository.StatusEventRepository
	Tracker         *SegmentTracker
	Policy          *policy.Engine
	Audit           *AuditRecorder
	Tx              repository.TxManager
	Dispatcher      events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:     deps.TicketRepo,
		assignments: deps.AssignmentRepo,
		companies:   deps.CompanyRepo,
		crews:       deps.CrewRepo,
		statusLog:   deps.StatusEventRepo,
		tracker:     deps.Tracker,
		policy:      deps.Policy,
		audit:       deps.Audit,
		tx:          deps.Tx,
		dispatcher:  deps.Dispatcher,
	}
}

// Assign dispatches a company crew to a ticket. Any prior active assignment
// is marked REASSIGNED and deactivated; the ticket acquires the company and,
// when freshly created, moves to ASSIGNED.
func (s *AssignmentService) Assign(ctx context.Context, actor domain.Actor, ticketID, companyID, crewID string, note *string) (*domain.Assignment, error) {
	if actor.Role != domain.RoleManager && actor.Role != domain.RoleUtility {
		return nil, apperrors.NewForbidden("assignment requires manager or utility role")
	}
	if actor.Role == domain.RoleUtility {
		decision, err := s.policy.Decide(ctx, actor, policy.ResourceCompany, companyID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !decision.Allowed {
			return nil, apperrors.NewForbidden(decision.Reason)
		}
	}

	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("company", map[string]any{"company_id": companyID})
		}
		return nil, apperrors.MapError(err)
	}
	if !company.IsActive {
		return nil, apperrors.NewConflict("company inactive", map[string]any{"company_id": companyID})
	}

	crew, err := s.crews.GetByID(ctx, crewID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("crew", map[string]any{"crew_id": crewID})
		}
		return nil, apperrors.MapError(err)
	}
	if crew.CompanyID != companyID {
		return nil, apperrors.NewValidationError("crew does not belong to company", map[string]any{"crew_id": crewID, "company_id": companyID})
	}
	if !crew.IsActive {
		return nil, apperrors.NewConflict("crew inactive", map[string]any{"crew_id": crewID})
	}

	var (
		assignment    *domain.Assignment
		superseded    *domain.Assignment
		ticket        *domain.Ticket
		closedSegment *domain.WorkSegment
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err = s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return err
		}
		if ticket.Status.IsTerminal() {
			return apperrors.NewConflict("ticket is closed", map[string]any{"ticket_id": ticket.ID, "status": ticket.Status})
		}

		superseded, err = s.assignments.GetActiveByTicket(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if superseded != nil {
			superseded.Status = domain.AssignmentReassigned
			superseded.IsActive = false
			if err := s.assignments.Update(ctx, superseded); err != nil {
				return err
			}
			// a reassigned crew must not keep accruing time
			segment, _, segErr := s.tracker.CloseIfOpen(ctx, ticket.ID, superseded.CrewID)
			if segErr != nil {
				return segErr
			}
			closedSegment = segment
		}

		assignment = &domain.Assignment{
			TicketID:         ticket.ID,
			CompanyID:        companyID,
			CrewID:           crewID,
			Status:           domain.AssignmentPendingAccept,
			AssignedByUserID: actor.ID,
			IsActive:         true,
		}
		if err := s.assignments.Create(ctx, assignment); err != nil {
			return err
		}

		oldStatus := ticket.Status
		if ticket.Status == domain.TicketStatusCreated {
			plan, err := lifecycle.Plan(ticket.Status, domain.TicketStatusAssigned)
			if err != nil {
				return err
			}
			ticket.Status = plan.To
		}
		ticket.CompanyID = &companyID
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return s.statusLog.Create(ctx, &domain.StatusEvent{
			TicketID:        ticket.ID,
			OldStatus:       &oldStatus,
			NewStatus:       ticket.Status,
			ChangedByUserID: actor.ID,
			Note:            note,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if closedSegment != nil {
		s.audit.Record(ctx, actor, "work_segment", closedSegment.ID, "close", nil, map[string]any{
			"ticket_id":  ticket.ID,
			"company_id": closedSegment.CompanyID,
			"crew_id":    closedSegment.CrewID,
		})
		s.publish(ctx, actor, events.Event{
			Type:     events.EventSegmentClosed,
			TicketID: ticket.ID,
			Payload:  events.SegmentPayload{SegmentID: closedSegment.ID, CrewID: closedSegment.CrewID, CompanyID: closedSegment.CompanyID},
		})
	}

	after := map[string]any{
		"assignment_id": assignment.ID,
		"company_id":    companyID,
		"crew_id":       crewID,
		"status":        assignment.Status,
	}
	var before map[string]any
	if superseded != nil {
		before = map[string]any{
			"assignment_id": superseded.ID,
			"company_id":    superseded.CompanyID,
			"crew_id":       superseded.CrewID,
		}
	}
	s.audit.Record(ctx, actor, "assignment", assignment.ID, "assign", before, after)
	s.publish(ctx, actor, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Payload: events.TicketAssignedPayload{
			AssignmentID: assignment.ID,
			CompanyID:    companyID,
			CrewID:       crewID,
			Superseded:   superseded != nil,
		},
	})
	return assignment, nil
}

// Respond records the assigned company's accept or reject decision. Only an
// actor of the assignment's company may respond, and only once.
func (s *AssignmentService) Respond(ctx context.Context, actor domain.Actor, assignmentID string, accept bool, note *string) (*domain.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("assignment", map[string]any{"assignment_id": assignmentID})
		}
		return nil, apperrors.MapError(err)
	}
	if !actor.SameCompany(assignment.CompanyID) {
		if actor.CompanyID == nil {
			return nil, apperrors.NewForbidden(policy.ReasonCompanyRequired)
		}
		return nil, apperrors.NewForbidden(policy.ReasonCrossCompany)
	}
	if assignment.Status != domain.AssignmentPendingAccept {
		return nil, apperrors.NewConflict("assignment already responded", map[string]any{
			"assignment_id": assignment.ID,
			"status":        assignment.Status,
		})
	}

	oldStatus := assignment.Status
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetByIDForUpdate(ctx, assignment.TicketID)
		if err != nil {
			return err
		}

		// the ticket row lock serializes concurrent responders; re-read the
		// assignment under it so only the first response wins
		current, err := s.assignments.GetByID(ctx, assignment.ID)
		if err != nil {
			return err
		}
		if current.Status != domain.AssignmentPendingAccept {
			return apperrors.NewConflict("assignment already responded", map[string]any{
				"assignment_id": current.ID,
				"status":        current.Status,
			})
		}
		assignment = current

		now := time.Now()
		assignment.RespondedAt = &now
		assignment.ResponseNote = note
		ticketStatus := ticket.Status
		if accept {
			assignment.Status = domain.AssignmentAccepted
			plan, err := lifecycle.Plan(ticket.Status, domain.TicketStatusAccepted)
			if err != nil {
				return err
			}
			ticket.Status = plan.To
			if err := s.tickets.Update(ctx, ticket); err != nil {
				return err
			}
		} else {
			// rejection deactivates the assignment but leaves the ticket
			// dispatchable in its current status
			assignment.Status = domain.AssignmentRejected
			assignment.IsActive = false
		}
		if err := s.assignments.Update(ctx, assignment); err != nil {
			return err
		}
		return s.statusLog.Create(ctx, &domain.StatusEvent{
			TicketID:        ticket.ID,
			OldStatus:       &ticketStatus,
			NewStatus:       ticket.Status,
			ChangedByUserID: actor.ID,
			Note:            responseNote(accept, note),
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.audit.Record(ctx, actor, "assignment", assignment.ID, "respond",
		map[string]any{"status": oldStatus},
		map[string]any{"status": assignment.Status, "note": strValue(note)})
	s.publish(ctx, actor, events.Event{
		Type:     events.EventAssignmentResponded,
		TicketID: assignment.TicketID,
		Payload: events.AssignmentRespondedPayload{
			AssignmentID: assignment.ID,
			Status:       assignment.Status,
			Note:         strValue(note),
		},
	})
	return assignment, nil
}

// ListByTicket returns a ticket's full assignment history.
func (s *AssignmentService) ListByTicket(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Assignment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	companyID := ""
	if ticket.CompanyID != nil {
		companyID = *ticket.CompanyID
	}
	if ticket.CompanyID != nil || (actor.Role != domain.RoleManager && actor.Role != domain.RoleUtility) {
		decision, err := s.policy.Decide(ctx, actor, policy.ResourceTicket, companyID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !decision.Allowed {
			return nil, apperrors.NewForbidden(decision.Reason)
		}
	}
	assignments, err := s.assignments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assignments, nil
}

func responseNote(accept bool, note *string) *string {
	prefix := "assignment rejected"
	if accept {
		prefix = "assignment accepted"
	}
	if note != nil && *note != "" {
		combined := prefix + ": " + *note
		return &combined
	}
	return &prefix
}

func (s *AssignmentService) publish(ctx context.Context, actor domain.Actor, event events.Event) {
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
