package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/storm-dispatch/internal/domain"
	"github.com/spec-kit/storm-dispatch/internal/repository"
	apperrors "github.com/spec-kit/storm-dispatch/pkg/util"
)

// SessionService manages storm sessions and the issue type catalog that
// tickets reference. Mutations are manager-only; the catalog itself is
// readable by any authenticated actor.
type SessionService struct {
	sessions   repository.SessionRepository
	issueTypes repository.IssueTypeRepository
	audit      *AuditRecorder
}

// SessionDependencies bundles collaborators.
type SessionDependencies struct {
	SessionRepo   repository.SessionRepository
	IssueTypeRepo repository.IssueTypeRepository
	Audit         *AuditRecorder
}

// NewSessionService creates the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	return &SessionService{
		sessions:   deps.SessionRepo,
		issueTypes: deps.IssueTypeRepo,
		audit:      deps.Audit,
	}
}

// CreateSession opens a storm session for a utility event.
func (s *SessionService) CreateSession(ctx context.Context, actor domain.Actor, name, utility string) (*domain.StormSession, error) {
	if actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("session management requires manager role")
	}
	if name == "" || utility == "" {
		return nil, apperrors.NewValidationError("session name and utility are required", nil)
	}
	session := &domain.StormSession{
		Name:      name,
		Utility:   utility,
		IsActive:  true,
		StartedAt: time.Now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.audit.Record(ctx, actor, "session", session.ID, "create", nil,
		map[string]any{"name": name, "utility": utility})
	return session, nil
}

// EndSession closes a session so no further tickets can be created under it.
// Existing tickets keep progressing through their lifecycle.
func (s *SessionService) EndSession(ctx context.Context, actor domain.Actor, id string) (*domain.StormSession, error) {
	if actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("session management requires manager role")
	}
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("session", map[string]any{"session_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !session.IsActive {
		return nil, apperrors.NewConflict("session already ended", map[string]any{"session_id": id})
	}
	now := time.Now()
	session.IsActive = false
	session.EndedAt = &now
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.audit.Record(ctx, actor, "session", session.ID, "end",
		map[string]any{"is_active": true}, map[string]any{"is_active": false})
	return session, nil
}

// GetSession returns one session.
func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.StormSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("session", map[string]any{"session_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

// ListSessions returns sessions, optionally restricted to active ones.
func (s *SessionService) ListSessions(ctx context.Context, activeOnly bool) ([]domain.StormSession, error) {
	sessions, err := s.sessions.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return sessions, nil
}

// CreateIssueType adds an entry to the issue type catalog.
func (s *SessionService) CreateIssueType(ctx context.Context, actor domain.Actor, name string) (*domain.IssueType, error) {
	if actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("catalog management requires manager role")
	}
	if name == "" {
		return nil, apperrors.NewValidationError("issue type name is required", nil)
	}
	issueType := &domain.IssueType{Name: name, IsActive: true}
	if err := s.issueTypes.Create(ctx, issueType); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.audit.Record(ctx, actor, "issue_type", issueType.ID, "create", nil, map[string]any{"name": name})
	return issueType, nil
}

// ListIssueTypes returns the issue type catalog.
func (s *SessionService) ListIssueTypes(ctx context.Context) ([]domain.IssueType, error) {
	issueTypes, err := s.issueTypes.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return issueTypes, nil
}
