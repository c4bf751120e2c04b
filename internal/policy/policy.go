package policy

import (
	"context"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

// ResourceKind identifies a company-scoped resource class.
type ResourceKind string

const (
	ResourceCompany   ResourceKind = "company"
	ResourceRoster    ResourceKind = "roster"
	ResourceTicket    ResourceKind = "ticket"
	ResourceTimesheet ResourceKind = "timesheet"
	ResourceExpense   ResourceKind = "expense"
	ResourceInvoice   ResourceKind = "invoice"
	ResourceUser      ResourceKind = "user"
)

// Canonical denial reasons returned to callers alongside Forbidden.
const (
	ReasonAdminIdentityOnly       = "administrators manage identities only"
	ReasonCompanyRequired         = "company assignment required"
	ReasonCrossCompany            = "cannot access this company's data"
	ReasonNoGrant                 = "no grant for this company"
	ReasonIdentityManagementAdmin = "identity management requires administrator role"
)

// rule is one cell in the role x resource-kind table.
type rule int

const (
	denyAlways rule = iota
	allowAlways
	sameCompany
	grantRequired
)

// GrantChecker resolves the UTILITY many-to-many grant relation. Grants can
// change at any time, so lookups happen on every decision; nothing is cached.
type GrantChecker interface {
	HasGrant(ctx context.Context, userID, companyID string) (bool, error)
}

// Decision is the outcome of one policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// rules is the declarative access table. Every company-scoped kind follows
// the canonical shape; per-kind rows exist so resource-specific variation
// (invoice/expense, user) stays configuration rather than code.
var rules = map[ResourceKind]map[domain.Role]rule{
	ResourceCompany: {
		domain.RoleAdmin:      denyAlways,
		domain.RoleManager:    allowAlways,
		domain.RoleContractor: sameCompany,
		domain.RoleUtility:    grantRequired,
	},
	ResourceRoster: {
		domain.RoleAdmin:      denyAlways,
		domain.RoleManager:    allowAlways,
		domain.RoleContractor: sameCompany,
		domain.RoleUtility:    grantRequired,
	},
	ResourceTicket: {
		domain.RoleAdmin:      denyAlways,
		domain.RoleManager:    allowAlways,
		domain.RoleContractor: sameCompany,
		domain.RoleUtility:    grantRequired,
	},
	ResourceTimesheet: {
		domain.RoleAdmin:      denyAlways,
		domain.RoleManager:    allowAlways,
		domain.RoleContractor: sameCompany,
		domain.RoleUtility:    grantRequired,
	},
	ResourceExpense: {
		domain.RoleAdmin:      denyAlways,
		domain.RoleManager:    allowAlways,
		domain.RoleContractor: sameCompany,
		domain.RoleUtility:    grantRequired,
	},
	ResourceInvoice: {
		domain.RoleAdmin:      denyAlways,
		domain.RoleManager:    allowAlways,
		domain.RoleContractor: sameCompany,
		domain.RoleUtility:    grantRequired,
	},
	ResourceUser: {
		domain.RoleAdmin:      allowAlways,
		domain.RoleManager:    denyAlways,
		domain.RoleContractor: denyAlways,
		domain.RoleUtility:    denyAlways,
	},
}

// Engine is the pure authorization decision function. It performs no side
// effects and holds no per-request state.
type Engine struct {
	grants GrantChecker
}

// NewEngine builds the engine with its grant lookup collaborator.
func NewEngine(grants GrantChecker) *Engine {
	return &Engine{grants: grants}
}

// Decide evaluates the table for one actor, resource kind and owning
// company. Denials always carry a human-readable reason.
func (e *Engine) Decide(ctx context.Context, actor domain.Actor, kind ResourceKind, companyID string) (Decision, error) {
	kindRules, ok := rules[kind]
	if !ok {
		return deny(ReasonCrossCompany), nil
	}

	switch kindRules[actor.Role] {
	case allowAlways:
		return allow(), nil
	case sameCompany:
		if actor.CompanyID == nil {
			return deny(ReasonCompanyRequired), nil
		}
		if *actor.CompanyID != companyID {
			return deny(ReasonCrossCompany), nil
		}
		return allow(), nil
	case grantRequired:
		granted, err := e.grants.HasGrant(ctx, actor.ID, companyID)
		if err != nil {
			return Decision{}, err
		}
		if !granted {
			return deny(ReasonNoGrant), nil
		}
		return allow(), nil
	default:
		if actor.Role == domain.RoleAdmin {
			return deny(ReasonAdminIdentityOnly), nil
		}
		if kind == ResourceUser {
			return deny(ReasonIdentityManagementAdmin), nil
		}
		return deny(ReasonCrossCompany), nil
	}
}
