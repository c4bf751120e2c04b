package dto

import "time"

// CreateCompanyRequest payload.
type CreateCompanyRequest struct {
	Name string `json:"name"`
}

// UpdateCompanyRequest payload; nil fields are left unchanged.
type UpdateCompanyRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

// CompanyResponse mirrors one company.
type CompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCrewRequest payload.
type CreateCrewRequest struct {
	Name string `json:"name"`
}

// UpdateCrewRequest payload; nil fields are left unchanged.
type UpdateCrewRequest struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

// CrewResponse mirrors one crew.
type CrewResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GrantRequest payload.
type GrantRequest struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
}

// GrantResponse mirrors one utility-to-company grant.
type GrantResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CompanyID string    `json:"company_id"`
	GrantedBy string    `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}
