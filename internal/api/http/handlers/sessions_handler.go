package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storm-dispatch/internal/api/dto"
	"github.com/spec-kit/storm-dispatch/internal/auth"
	"github.com/spec-kit/storm-dispatch/internal/domain"
	"github.com/spec-kit/storm-dispatch/internal/service"
	apperrors "github.com/spec-kit/storm-dispatch/pkg/util"
)

// SessionsHandler manages storm session and issue type catalog endpoints.
type SessionsHandler struct {
	service *service.SessionService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(sessionService *service.SessionService) *SessionsHandler {
	return &SessionsHandler{service: sessionService}
}

// CreateSession POST /sessions.
func (h *SessionsHandler) CreateSession(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.service.CreateSession(c.UserContext(), actor, strings.TrimSpace(req.Name), strings.TrimSpace(req.Utility))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionResponse(session)})
}

// EndSession POST /sessions/:id/end.
func (h *SessionsHandler) EndSession(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	session, err := h.service.EndSession(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// GetSession GET /sessions/:id.
func (h *SessionsHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.service.GetSession(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// ListSessions GET /sessions.
func (h *SessionsHandler) ListSessions(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active", false)
	sessions, err := h.service.ListSessions(c.UserContext(), activeOnly)
	if err != nil {
		return err
	}
	items := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, sessionResponse(&sessions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateIssueType POST /issue-types.
func (h *SessionsHandler) CreateIssueType(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateIssueTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	issueType, err := h.service.CreateIssueType(c.UserContext(), actor, strings.TrimSpace(req.Name))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": issueTypeResponse(issueType)})
}

// ListIssueTypes GET /issue-types.
func (h *SessionsHandler) ListIssueTypes(c *fiber.Ctx) error {
	issueTypes, err := h.service.ListIssueTypes(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.IssueTypeResponse, 0, len(issueTypes))
	for i := range issueTypes {
		items = append(items, issueTypeResponse(&issueTypes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func sessionResponse(session *domain.StormSession) dto.SessionResponse {
	return dto.SessionResponse{
		ID:        session.ID,
		Name:      session.Name,
		Utility:   session.Utility,
		IsActive:  session.IsActive,
		StartedAt: session.StartedAt,
		EndedAt:   session.EndedAt,
		CreatedAt: session.CreatedAt,
	}
}

func issueTypeResponse(issueType *domain.IssueType) dto.IssueTypeResponse {
	return dto.IssueTypeResponse{
		ID:        issueType.ID,
		Name:      issueType.Name,
		IsActive:  issueType.IsActive,
		CreatedAt: issueType.CreatedAt,
	}
}
