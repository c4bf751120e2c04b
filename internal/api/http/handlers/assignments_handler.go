package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storm-dispatch/internal/api/dto"
	"github.com/spec-kit/storm-dispatch/internal/auth"
	"github.com/spec-kit/storm-dispatch/internal/domain"
	"github.com/spec-kit/storm-dispatch/internal/service"
	apperrors "github.com/spec-kit/storm-dispatch/pkg/util"
)

// AssignmentsHandler manages crew dispatch endpoints.
type AssignmentsHandler struct {
	service *service.AssignmentService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(assignmentService *service.AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{service: assignmentService}
}

// Assign POST /tickets/:id/assignments.
func (h *AssignmentsHandler) Assign(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CompanyID == "" || req.CrewID == "" {
		return apperrors.NewValidationError("company_id and crew_id required", nil)
	}
	assignment, err := h.service.Assign(c.UserContext(), actor, c.Params("id"), req.CompanyID, req.CrewID, req.Note)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": assignmentResponse(assignment)})
}

// Respond POST /assignments/:id/respond.
func (h *AssignmentsHandler) Respond(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.RespondRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	assignment, err := h.service.Respond(c.UserContext(), actor, c.Params("id"), req.Accept, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(assignment)})
}

// ListByTicket GET /tickets/:id/assignments.
func (h *AssignmentsHandler) ListByTicket(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	assignments, err := h.service.ListByTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		items = append(items, assignmentResponse(&assignments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func assignmentResponse(assignment *domain.Assignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:           assignment.ID,
		TicketID:     assignment.TicketID,
		CompanyID:    assignment.CompanyID,
		CrewID:       assignment.CrewID,
		Status:       assignment.Status,
		AssignedBy:   assignment.AssignedByUserID,
		AssignedAt:   assignment.AssignedAt,
		RespondedAt:  assignment.RespondedAt,
		ResponseNote: assignment.ResponseNote,
		IsActive:     assignment.IsActive,
	}
}
