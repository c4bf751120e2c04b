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

// CompaniesHandler manages the contractor directory endpoints.
type CompaniesHandler struct {
	service *service.DirectoryService
}

// NewCompaniesHandler constructs handler.
func NewCompaniesHandler(directoryService *service.DirectoryService) *CompaniesHandler {
	return &CompaniesHandler{service: directoryService}
}

// CreateCompany POST /companies.
func (h *CompaniesHandler) CreateCompany(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	company, err := h.service.CreateCompany(c.UserContext(), actor, strings.TrimSpace(req.Name))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": companyResponse(company)})
}

// UpdateCompany PATCH /companies/:id.
func (h *CompaniesHandler) UpdateCompany(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	company, err := h.service.UpdateCompany(c.UserContext(), actor, c.Params("id"), req.Name, req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": companyResponse(company)})
}

// GetCompany GET /companies/:id.
func (h *CompaniesHandler) GetCompany(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	company, err := h.service.GetCompany(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": companyResponse(company)})
}

// ListCompanies GET /companies.
func (h *CompaniesHandler) ListCompanies(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	companies, err := h.service.ListCompanies(c.UserContext(), actor, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.CompanyResponse, 0, len(companies))
	for i := range companies {
		items = append(items, companyResponse(&companies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCrew POST /companies/:id/crews.
func (h *CompaniesHandler) CreateCrew(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateCrewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	crew, err := h.service.CreateCrew(c.UserContext(), actor, c.Params("id"), strings.TrimSpace(req.Name))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": crewResponse(crew)})
}

// UpdateCrew PATCH /crews/:id.
func (h *CompaniesHandler) UpdateCrew(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCrewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	crew, err := h.service.UpdateCrew(c.UserContext(), actor, c.Params("id"), req.Name, req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": crewResponse(crew)})
}

// ListCrews GET /companies/:id/crews.
func (h *CompaniesHandler) ListCrews(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	crews, err := h.service.ListCrews(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CrewResponse, 0, len(crews))
	for i := range crews {
		items = append(items, crewResponse(&crews[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GrantAccess POST /grants.
func (h *CompaniesHandler) GrantAccess(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.GrantRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" || req.CompanyID == "" {
		return apperrors.NewValidationError("user_id and company_id required", nil)
	}
	grant, err := h.service.GrantCompanyAccess(c.UserContext(), actor, req.UserID, req.CompanyID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.GrantResponse{
		ID:        grant.ID,
		UserID:    grant.UserID,
		CompanyID: grant.CompanyID,
		GrantedBy: grant.GrantedByUserID,
		CreatedAt: grant.CreatedAt,
	}})
}

// RevokeAccess DELETE /grants.
func (h *CompaniesHandler) RevokeAccess(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.GrantRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" || req.CompanyID == "" {
		return apperrors.NewValidationError("user_id and company_id required", nil)
	}
	if err := h.service.RevokeCompanyAccess(c.UserContext(), actor, req.UserID, req.CompanyID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "revoked"}})
}

// ListGrants GET /users/:id/grants.
func (h *CompaniesHandler) ListGrants(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	companyIDs, err := h.service.ListGrants(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"company_ids": companyIDs}})
}

func companyResponse(company *domain.Company) dto.CompanyResponse {
	return dto.CompanyResponse{
		ID:        company.ID,
		Name:      company.Name,
		IsActive:  company.IsActive,
		CreatedAt: company.CreatedAt,
		UpdatedAt: company.UpdatedAt,
	}
}

func crewResponse(crew *domain.Crew) dto.CrewResponse {
	return dto.CrewResponse{
		ID:        crew.ID,
		CompanyID: crew.CompanyID,
		Name:      crew.Name,
		IsActive:  crew.IsActive,
		CreatedAt: crew.CreatedAt,
		UpdatedAt: crew.UpdatedAt,
	}
}
