package domain

import "time"

// Company is a contracting company working restoration tickets.
type Company struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Crew is a field crew belonging to a company.
type Crew struct {
	ID        string
	CompanyID string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CompanyGrant allows a UTILITY user to access one company's data.
type CompanyGrant struct {
	ID              string
	UserID          string
	CompanyID       string
	GrantedByUserID string
	CreatedAt       time.Time
}
