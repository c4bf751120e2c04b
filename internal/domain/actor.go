package domain

// Role enumerates the actor roles known to the dispatch engine.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleContractor Role = "CONTRACTOR"
	RoleUtility    Role = "UTILITY"
)

// Actor is the resolved identity for one request: who is acting, with what
// role, scoped to which company. It is derived from a verified token and
// passed explicitly through every call, never stored in shared state.
type Actor struct {
	ID        string
	Role      Role
	CompanyID *string
}

// SameCompany reports whether the actor is bound to the given company.
func (a Actor) SameCompany(companyID string) bool {
	return a.CompanyID != nil && *a.CompanyID == companyID
}
