package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/storm-dispatch/internal/domain"
	"github.com/spec-kit/storm-dispatch/internal/policy"
	"github.com/spec-kit/storm-dispatch/internal/repository"
	apperrors "github.com/spec-kit/storm-dispatch/pkg/util"
)

// DirectoryService manages the contractor directory: companies, their crew
// rosters and utility access grants. Mutations are manager-only; reads follow
// the same company scoping as every other resource.
type DirectoryService struct {
	companies repository.CompanyRepository
	crews     repository.CrewRepository
	grants    repository.GrantRepository
	users     repository.UserRepository
	policy    *policy.Engine
	audit     *AuditRecorder
}

// DirectoryDependencies bundles collaborators.
type DirectoryDependencies struct {
	CompanyRepo repository.CompanyRepository
	CrewRepo    repository.CrewRepository
	GrantRepo   repository.GrantRepository
	UserRepo    repository.UserRepository
	Policy      *policy.Engine
	Audit       *AuditRecorder
}

// NewDirectoryService creates the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	return &DirectoryService{
		companies: deps.CompanyRepo,
		crews:     deps.CrewRepo,
		grants:    deps.GrantRepo,
		users:     deps.UserRepo,
		policy:    deps.Policy,
		audit:     deps.Audit,
	}
}

// CreateCompany registers a contracting company.
func (s *DirectoryService) CreateCompany(ctx context.Context, actor domain.Actor, name string) (*domain.Company, error) {
	if actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("company management requires manager role")
	}
	if name == "" {
		return nil, apperrors.NewValidationError("company name is required", nil)
	}
	company := &domain.Company{Name: name, IsActive: true}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.audit.Record(ctx, actor, "company", company.ID, "create", nil, map[string]any{"name": name})
	return company, nil
}

// UpdateCompany renames or activates/deactivates a company.
func (s *DirectoryService) UpdateCompany(ctx context.Context, actor domain.Actor, id string, name *string, isActive *bool) (*domain.Company, error) {
	if actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("company management requires manager role")
	}
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("company", map[string]any{"company_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	before := map[string]any{"name": company.Name, "is_active": company.IsActive}
	if name != nil {
		company.Name = *name
	}
	if isActive != nil {
		company.IsActive = *isActive
	}
	if err := s.companies.Update(ctx, company); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.audit.Record(ctx, actor, "company", company.ID, "update", before,
		map[string]any{"name": company.Name, "is_active": company.IsActive})
	return company, nil
}

// GetCompany returns one company, subject to company scoping.
func (s *DirectoryService) GetCompany(ctx context.Context, actor domain.Actor, id string) (*domain.Company, error) {
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("company", map[string]any{"company_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	decision, err := s.policy.Decide(ctx, actor, policy.ResourceCompany, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !decision.Allowed {
		return nil, apperrors.NewForbidden(decision.Reason)
	}
	return company, nil
}

// ListCompanies returns the companies visible to the actor: managers see all,
// contractors only their own, utilities their granted set.
func (s *DirectoryService) ListCompanies(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Company, error) {
	switch actor.Role {
	case domain.RoleManager:
		companies, err := s.companies.List(ctx, limit, offset)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return companies, nil
	case domain.RoleContractor:
		if actor.CompanyID == nil {
			return nil, apperrors.NewForbidden(policy.ReasonCompanyRequired)
		}
		company, err := s.companies.GetByID(ctx, *actor.CompanyID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return []domain.Company{}, nil
			}
			return nil, apperrors.MapError(err)
		}
		return []domain.Company{*company}, nil
	case domain.RoleUtility:
		ids, err := s.grants.ListCompanyIDs(ctx, actor.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		result := make([]domain.Company, 0, len(ids))
		for _, id := range ids {
			company, err := s.companies.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					continue
				}
				return nil, apperrors.MapError(err)
			}
			result = append(result, *company)
		}
		return result, nil
	default:
		return nil, apperrors.NewForbidden(policy.ReasonAdminIdentityOnly)
	}
}

// CreateCrew adds a crew to a company roster.
func (s *DirectoryService) CreateCrew(ctx context.Context, actor domain.Actor, companyID, name string) (*domain.Crew, error) {
	if actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("roster management requires manager role")
	}
	if name == "" {
		return nil, apperrors.NewValidationError("crew name is required", nil)
	}
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("company", map[string]any{"company_id": companyID})
		}
		return nil, apperrors.MapError(err)
	}
	crew := &domain.Crew{CompanyID: companyID, Name: name, IsActive: true}
	if err := s.crews.Create(ctx, crew); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.audit.Record(ctx, actor, "crew", crew.ID, "create", nil,
		map[string]any{"company_id": companyID, "name": name})
	return crew, nil
}

// UpdateCrew renames or activates/deactivates a crew.
func (s *DirectoryService) UpdateCrew(ctx context.Context, actor domain.Actor, id string, name *string, isActive *bool) (*domain.Crew, error) {
	if actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("roster management requires manager role")
	}
	crew, err := s.crews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("crew", map[string]any{"crew_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	before := map[string]any{"name": crew.Name, "is_active": crew.IsActive}
	if name != nil {
		crew.Name = *name
	}
	if isActive != nil {
		crew.IsActive = *isActive
	}
	if err := s.crews.Update(ctx, crew); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.audit.Record(ctx, actor, "crew", crew.ID, "update", before,
		map[string]any{"name": crew.Name, "is_active": crew.IsActive})
	return crew, nil
}

// ListCrews returns a company's roster, subject to company scoping.
func (s *DirectoryService) ListCrews(ctx context.Context, actor domain.Actor, companyID string) ([]domain.Crew, error) {
	decision, err := s.policy.Decide(ctx, actor, policy.ResourceRoster, companyID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !decision.Allowed {
		return nil, apperrors.NewForbidden(decision.Reason)
	}
	crews, err := s.crews.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return crews, nil
}

// GrantCompanyAccess gives a utility user visibility into a company's data.
func (s *DirectoryService) GrantCompanyAccess(ctx context.Context, actor domain.Actor, userID, companyID string) (*domain.CompanyGrant, error) {
	if actor.Role != domain.RoleManager {
		return nil, apperrors.NewForbidden("grant management requires manager role")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	if user.Role != domain.RoleUtility {
		return nil, apperrors.NewValidationError("grants apply to utility accounts only", map[string]any{"role": user.Role})
	}
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("company", map[string]any{"company_id": companyID})
		}
		return nil, apperrors.MapError(err)
	}
	grant := &domain.CompanyGrant{
		UserID:          userID,
		CompanyID:       companyID,
		GrantedByUserID: actor.ID,
	}
	if err := s.grants.Create(ctx, grant); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.audit.Record(ctx, actor, "grant", grant.ID, "grant", nil,
		map[string]any{"user_id": userID, "company_id": companyID})
	return grant, nil
}

// RevokeCompanyAccess removes a utility user's grant for a company.
func (s *DirectoryService) RevokeCompanyAccess(ctx context.Context, actor domain.Actor, userID, companyID string) error {
	if actor.Role != domain.RoleManager {
		return apperrors.NewForbidden("grant management requires manager role")
	}
	if err := s.grants.Delete(ctx, userID, companyID); err != nil {
		return apperrors.MapError(err)
	}
	s.audit.Record(ctx, actor, "grant", userID+":"+companyID, "revoke",
		map[string]any{"user_id": userID, "company_id": companyID}, nil)
	return nil
}

// ListGrants returns the company IDs granted to a utility user.
func (s *DirectoryService) ListGrants(ctx context.Context, actor domain.Actor, userID string) ([]string, error) {
	if actor.Role != domain.RoleManager && actor.ID != userID {
		return nil, apperrors.NewForbidden("cannot view another user's grants")
	}
	ids, err := s.grants.ListCompanyIDs(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ids, nil
}
