package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

type stubGrants struct {
	grants map[string]map[string]bool
}

func (s *stubGrants) HasGrant(_ context.Context, userID, companyID string) (bool, error) {
	return s.grants[userID][companyID], nil
}

func strPtr(s string) *string { return &s }

func decide(t *testing.T, engine *Engine, actor domain.Actor, kind ResourceKind, companyID string) Decision {
	t.Helper()
	decision, err := engine.Decide(context.Background(), actor, kind, companyID)
	require.NoError(t, err)
	return decision
}

func TestManagerHasGlobalCompanyScopedAccess(t *testing.T) {
	engine := NewEngine(&stubGrants{})
	actor := domain.Actor{ID: "m1", Role: domain.RoleManager}
	for _, kind := range []ResourceKind{ResourceCompany, ResourceRoster, ResourceTicket, ResourceTimesheet, ResourceExpense, ResourceInvoice} {
		assert.True(t, decide(t, engine, actor, kind, "acme").Allowed, string(kind))
	}
}

func TestAdminDeniedEverythingButIdentity(t *testing.T) {
	engine := NewEngine(&stubGrants{})
	actor := domain.Actor{ID: "a1", Role: domain.RoleAdmin}
	for _, kind := range []ResourceKind{ResourceCompany, ResourceRoster, ResourceTicket, ResourceTimesheet, ResourceExpense, ResourceInvoice} {
		decision := decide(t, engine, actor, kind, "acme")
		assert.False(t, decision.Allowed, string(kind))
		assert.Equal(t, ReasonAdminIdentityOnly, decision.Reason)
	}
	assert.True(t, decide(t, engine, actor, ResourceUser, "").Allowed)
}

func TestOnlyAdminManagesIdentities(t *testing.T) {
	engine := NewEngine(&stubGrants{})
	for _, role := range []domain.Role{domain.RoleManager, domain.RoleContractor, domain.RoleUtility} {
		decision := decide(t, engine, domain.Actor{ID: "x", Role: role, CompanyID: strPtr("acme")}, ResourceUser, "")
		assert.False(t, decision.Allowed, string(role))
		assert.Equal(t, ReasonIdentityManagementAdmin, decision.Reason)
	}
}

func TestContractorScopedToOwnCompany(t *testing.T) {
	engine := NewEngine(&stubGrants{})

	own := domain.Actor{ID: "c1", Role: domain.RoleContractor, CompanyID: strPtr("acme")}
	assert.True(t, decide(t, engine, own, ResourceTicket, "acme").Allowed)

	cross := decide(t, engine, own, ResourceTicket, "globex")
	assert.False(t, cross.Allowed)
	assert.Equal(t, ReasonCrossCompany, cross.Reason)

	unbound := decide(t, engine, domain.Actor{ID: "c2", Role: domain.RoleContractor}, ResourceTicket, "acme")
	assert.False(t, unbound.Allowed)
	assert.Equal(t, ReasonCompanyRequired, unbound.Reason)
}

func TestUtilityNeedsGrantPerCompany(t *testing.T) {
	grants := &stubGrants{grants: map[string]map[string]bool{
		"u1": {"acme": true},
	}}
	engine := NewEngine(grants)
	actor := domain.Actor{ID: "u1", Role: domain.RoleUtility}

	assert.True(t, decide(t, engine, actor, ResourceTicket, "acme").Allowed)

	denied := decide(t, engine, actor, ResourceTicket, "globex")
	assert.False(t, denied.Allowed)
	assert.Equal(t, ReasonNoGrant, denied.Reason)

	// revocation is effective immediately because nothing is cached
	grants.grants["u1"]["acme"] = false
	assert.False(t, decide(t, engine, actor, ResourceTicket, "acme").Allowed)
}
