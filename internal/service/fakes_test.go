package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/storm-dispatch/internal/domain"
	"github.com/spec-kit/storm-dispatch/internal/events"
	"github.com/spec-kit/storm-dispatch/internal/policy"
	"github.com/spec-kit/storm-dispatch/internal/repository"
	apperrors "github.com/spec-kit/storm-dispatch/pkg/util"
)

// In-memory repository fakes. They mimic the persistence contracts the
// services rely on: pgx.ErrNoRows for missing rows, version CAS on tickets,
// copies on read so uncommitted mutations stay private.

type idSeq struct{ n int }

func (s *idSeq) next(prefix string) string {
	s.n++
	return fmt.Sprintf("%s-%d", prefix, s.n)
}

type memTicketRepo struct {
	seq     idSeq
	tickets map[string]domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = r.seq.next("ticket")
	ticket.Version = 1
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	stored, ok := r.tickets[ticket.ID]
	if !ok || stored.Version != ticket.Version {
		return apperrors.NewConflict("ticket was modified concurrently", map[string]any{"ticket_id": ticket.ID})
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *memTicketRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.SessionID != nil && ticket.SessionID != *filter.SessionID {
			continue
		}
		if filter.CompanyID != nil {
			if ticket.CompanyID == nil || *ticket.CompanyID != *filter.CompanyID {
				continue
			}
		}
		if len(filter.CompanyIDs) > 0 || filter.IncludeUnassigned {
			visible := false
			if ticket.CompanyID == nil {
				visible = filter.IncludeUnassigned
			} else {
				visible = contains(filter.CompanyIDs, *ticket.CompanyID)
			}
			if !visible {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		result = append(result, ticket)
	}
	return result, nil
}

func containsStatus(statuses []domain.TicketStatus, target domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == target {
			return true
		}
	}
	return false
}

type memAssignmentRepo struct {
	seq         idSeq
	assignments map[string]domain.Assignment
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{assignments: make(map[string]domain.Assignment)}
}

func (r *memAssignmentRepo) Create(_ context.Context, assignment *domain.Assignment) error {
	assignment.ID = r.seq.next("assignment")
	assignment.AssignedAt = time.Now()
	r.assignments[assignment.ID] = *assignment
	return nil
}

func (r *memAssignmentRepo) Update(_ context.Context, assignment *domain.Assignment) error {
	if _, ok := r.assignments[assignment.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.assignments[assignment.ID] = *assignment
	return nil
}

func (r *memAssignmentRepo) GetByID(_ context.Context, id string) (*domain.Assignment, error) {
	assignment, ok := r.assignments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := assignment
	return &copied, nil
}

func (r *memAssignmentRepo) GetActiveByTicket(_ context.Context, ticketID string) (*domain.Assignment, error) {
	for _, assignment := range r.assignments {
		if assignment.TicketID == ticketID && assignment.IsActive {
			copied := assignment
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memAssignmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Assignment, error) {
	var result []domain.Assignment
	for _, assignment := range r.assignments {
		if assignment.TicketID == ticketID {
			result = append(result, assignment)
		}
	}
	return result, nil
}

func (r *memAssignmentRepo) activeCount(ticketID string) int {
	count := 0
	for _, assignment := range r.assignments {
		if assignment.TicketID == ticketID && assignment.IsActive {
			count++
		}
	}
	return count
}

type memSegmentRepo struct {
	seq      idSeq
	segments []domain.WorkSegment
}

func (r *memSegmentRepo) Create(_ context.Context, segment *domain.WorkSegment) error {
	segment.ID = r.seq.next("segment")
	segment.StartedAt = time.Now()
	r.segments = append(r.segments, *segment)
	return nil
}

func (r *memSegmentRepo) GetOpen(_ context.Context, ticketID, crewID string) (*domain.WorkSegment, error) {
	for i := range r.segments {
		s := r.segments[i]
		if s.TicketID == ticketID && s.CrewID == crewID && s.EndedAt == nil {
			copied := s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memSegmentRepo) Close(_ context.Context, ticketID, crewID string) error {
	now := time.Now()
	for i := range r.segments {
		if r.segments[i].TicketID == ticketID && r.segments[i].CrewID == crewID && r.segments[i].EndedAt == nil {
			r.segments[i].EndedAt = &now
		}
	}
	return nil
}

func (r *memSegmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.WorkSegment, error) {
	var result []domain.WorkSegment
	for _, segment := range r.segments {
		if segment.TicketID == ticketID {
			result = append(result, segment)
		}
	}
	return result, nil
}

func (r *memSegmentRepo) openCount(ticketID string) int {
	count := 0
	for _, segment := range r.segments {
		if segment.TicketID == ticketID && segment.EndedAt == nil {
			count++
		}
	}
	return count
}

type memStatusEventRepo struct {
	seq    idSeq
	events []domain.StatusEvent
}

func (r *memStatusEventRepo) Create(_ context.Context, event *domain.StatusEvent) error {
	event.ID = r.seq.next("event")
	event.ChangedAt = time.Now()
	r.events = append(r.events, *event)
	return nil
}

func (r *memStatusEventRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.StatusEvent, error) {
	var result []domain.StatusEvent
	for _, event := range r.events {
		if event.TicketID == ticketID {
			result = append(result, event)
		}
	}
	return result, nil
}

func (r *memStatusEventRepo) forTicket(ticketID string) []domain.StatusEvent {
	result, _ := r.ListByTicket(context.Background(), ticketID, 0, 0)
	return result
}

type memAuditRepo struct {
	seq     idSeq
	entries []domain.AuditEntry
}

func (r *memAuditRepo) forEntity(entity string) []domain.AuditEntry {
	var result []domain.AuditEntry
	for _, entry := range r.entries {
		if entry.Entity == entity {
			result = append(result, entry)
		}
	}
	return result
}

func (r *memAuditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	entry.ID = r.seq.next("audit")
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

type memCompanyRepo struct {
	companies map[string]domain.Company
}

func (r *memCompanyRepo) Create(_ context.Context, company *domain.Company) error {
	r.companies[company.ID] = *company
	return nil
}

func (r *memCompanyRepo) Update(_ context.Context, company *domain.Company) error {
	if _, ok := r.companies[company.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.companies[company.ID] = *company
	return nil
}

func (r *memCompanyRepo) GetByID(_ context.Context, id string) (*domain.Company, error) {
	company, ok := r.companies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := company
	return &copied, nil
}

func (r *memCompanyRepo) List(_ context.Context, _, _ int) ([]domain.Company, error) {
	var result []domain.Company
	for _, company := range r.companies {
		result = append(result, company)
	}
	return result, nil
}

type memCrewRepo struct {
	crews map[string]domain.Crew
}

func (r *memCrewRepo) Create(_ context.Context, crew *domain.Crew) error {
	r.crews[crew.ID] = *crew
	return nil
}

func (r *memCrewRepo) Update(_ context.Context, crew *domain.Crew) error {
	if _, ok := r.crews[crew.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.crews[crew.ID] = *crew
	return nil
}

func (r *memCrewRepo) GetByID(_ context.Context, id string) (*domain.Crew, error) {
	crew, ok := r.crews[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := crew
	return &copied, nil
}

func (r *memCrewRepo) ListByCompany(_ context.Context, companyID string) ([]domain.Crew, error) {
	var result []domain.Crew
	for _, crew := range r.crews {
		if crew.CompanyID == companyID {
			result = append(result, crew)
		}
	}
	return result, nil
}

type memGrantRepo struct {
	grants map[string]map[string]bool
}

func newMemGrantRepo() *memGrantRepo {
	return &memGrantRepo{grants: make(map[string]map[string]bool)}
}

func (r *memGrantRepo) grant(userID, companyID string) {
	if r.grants[userID] == nil {
		r.grants[userID] = make(map[string]bool)
	}
	r.grants[userID][companyID] = true
}

func (r *memGrantRepo) Create(_ context.Context, grant *domain.CompanyGrant) error {
	r.grant(grant.UserID, grant.CompanyID)
	return nil
}

func (r *memGrantRepo) Delete(_ context.Context, userID, companyID string) error {
	delete(r.grants[userID], companyID)
	return nil
}

func (r *memGrantRepo) HasGrant(_ context.Context, userID, companyID string) (bool, error) {
	return r.grants[userID][companyID], nil
}

func (r *memGrantRepo) ListCompanyIDs(_ context.Context, userID string) ([]string, error) {
	var result []string
	for companyID, ok := range r.grants[userID] {
		if ok {
			result = append(result, companyID)
		}
	}
	return result, nil
}

type memIssueTypeRepo struct {
	issueTypes map[string]domain.IssueType
}

func (r *memIssueTypeRepo) Create(_ context.Context, issueType *domain.IssueType) error {
	r.issueTypes[issueType.ID] = *issueType
	return nil
}

func (r *memIssueTypeRepo) GetByID(_ context.Context, id string) (*domain.IssueType, error) {
	issueType, ok := r.issueTypes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := issueType
	return &copied, nil
}

func (r *memIssueTypeRepo) List(_ context.Context) ([]domain.IssueType, error) {
	var result []domain.IssueType
	for _, issueType := range r.issueTypes {
		result = append(result, issueType)
	}
	return result, nil
}

type memSessionRepo struct {
	sessions map[string]domain.StormSession
}

func (r *memSessionRepo) Create(_ context.Context, session *domain.StormSession) error {
	r.sessions[session.ID] = *session
	return nil
}

func (r *memSessionRepo) Update(_ context.Context, session *domain.StormSession) error {
	if _, ok := r.sessions[session.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.sessions[session.ID] = *session
	return nil
}

func (r *memSessionRepo) GetByID(_ context.Context, id string) (*domain.StormSession, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := session
	return &copied, nil
}

func (r *memSessionRepo) List(_ context.Context, activeOnly bool) ([]domain.StormSession, error) {
	var result []domain.StormSession
	for _, session := range r.sessions {
		if activeOnly && !session.IsActive {
			continue
		}
		result = append(result, session)
	}
	return result, nil
}

// passthroughTx runs the function directly; the fakes have no transactions.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// staggeredTx runs a callback once before the transaction body, letting
// tests slot a competing writer between an out-of-tx read and the
// transactional re-check.
type staggeredTx struct {
	before func()
}

func (t *staggeredTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t.before != nil {
		hook := t.before
		t.before = nil
		hook()
	}
	return fn(ctx)
}

// captureDispatcher records published events for assertions.
type captureDispatcher struct {
	published []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) typesSeen() []events.EventType {
	types := make([]events.EventType, 0, len(d.published))
	for _, event := range d.published {
		types = append(types, event.Type)
	}
	return types
}

// fixture wires the full service graph over in-memory fakes with one active
// session, one issue type, one company with a crew, and a utility grant map.
type fixture struct {
	tickets     *memTicketRepo
	assignments *memAssignmentRepo
	segments    *memSegmentRepo
	statusLog   *memStatusEventRepo
	audits      *memAuditRepo
	companies   *memCompanyRepo
	crews       *memCrewRepo
	grants      *memGrantRepo
	issueTypes  *memIssueTypeRepo
	sessions    *memSessionRepo
	dispatcher  *captureDispatcher

	ticketSvc     *TicketService
	assignmentSvc *AssignmentService
	tracker       *SegmentTracker
}

func newFixture() *fixture {
	f := &fixture{
		tickets:     newMemTicketRepo(),
		assignments: newMemAssignmentRepo(),
		segments:    &memSegmentRepo{},
		statusLog:   &memStatusEventRepo{},
		audits:      &memAuditRepo{},
		companies:   &memCompanyRepo{companies: make(map[string]domain.Company)},
		crews:       &memCrewRepo{crews: make(map[string]domain.Crew)},
		grants:      newMemGrantRepo(),
		issueTypes:  &memIssueTypeRepo{issueTypes: make(map[string]domain.IssueType)},
		sessions:    &memSessionRepo{sessions: make(map[string]domain.StormSession)},
		dispatcher:  &captureDispatcher{},
	}

	f.sessions.sessions["storm-1"] = domain.StormSession{ID: "storm-1", Name: "Hurricane Ida", Utility: "ConEd", IsActive: true, StartedAt: time.Now()}
	f.issueTypes.issueTypes["downed-line"] = domain.IssueType{ID: "downed-line", Name: "Downed line", IsActive: true}
	f.companies.companies["acme"] = domain.Company{ID: "acme", Name: "Acme Line Services", IsActive: true}
	f.companies.companies["globex"] = domain.Company{ID: "globex", Name: "Globex Power", IsActive: true}
	f.crews.crews["crew-a"] = domain.Crew{ID: "crew-a", CompanyID: "acme", Name: "Alpha", IsActive: true}
	f.crews.crews["crew-b"] = domain.Crew{ID: "crew-b", CompanyID: "globex", Name: "Bravo", IsActive: true}

	engine := policy.NewEngine(f.grants)
	recorder := NewAuditRecorder(f.audits, zap.NewNop())
	f.tracker = NewSegmentTracker(f.segments)

	f.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:      f.tickets,
		StatusEventRepo: f.statusLog,
		AssignmentRepo:  f.assignments,
		SegmentRepo:     f.segments,
		IssueTypeRepo:   f.issueTypes,
		SessionRepo:     f.sessions,
		GrantRepo:       f.grants,
		Tracker:         f.tracker,
		Policy:          engine,
		Audit:           recorder,
		Tx:              passthroughTx{},
		Dispatcher:      f.dispatcher,
	})
	f.assignmentSvc = NewAssignmentService(AssignmentDependencies{
		TicketRepo:      f.tickets,
		AssignmentRepo:  f.assignments,
		CompanyRepo:     f.companies,
		CrewRepo:        f.crews,
		StatusEventRepo: f.statusLog,
		Tracker:         f.tracker,
		Policy:          engine,
		Audit:           recorder,
		Tx:              passthroughTx{},
		Dispatcher:      f.dispatcher,
	})
	return f
}

// assignmentServiceWithTx builds a second assignment service over the same
// fakes but with a custom transaction manager.
func (f *fixture) assignmentServiceWithTx(tx repository.TxManager) *AssignmentService {
	return NewAssignmentService(AssignmentDependencies{
		TicketRepo:      f.tickets,
		AssignmentRepo:  f.assignments,
		CompanyRepo:     f.companies,
		CrewRepo:        f.crews,
		StatusEventRepo: f.statusLog,
		Tracker:         f.tracker,
		Policy:          policy.NewEngine(f.grants),
		Audit:           NewAuditRecorder(f.audits, zap.NewNop()),
		Tx:              tx,
		Dispatcher:      f.dispatcher,
	})
}

var (
	manager    = domain.Actor{ID: "mgr-1", Role: domain.RoleManager}
	admin      = domain.Actor{ID: "adm-1", Role: domain.RoleAdmin}
	acmeCrew   = domain.Actor{ID: "con-1", Role: domain.RoleContractor, CompanyID: ptr("acme")}
	globexCrew = domain.Actor{ID: "con-2", Role: domain.RoleContractor, CompanyID: ptr("globex")}
	utility    = domain.Actor{ID: "utl-1", Role: domain.RoleUtility}
)

func ptr[T any](v T) *T { return &v }
