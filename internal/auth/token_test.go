package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storm-dispatch/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)
	companyID := "acme"

	token, expiresAt, err := tm.GenerateToken("user-1", domain.RoleContractor, &companyID)
	require.NoError(t, err)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, domain.RoleContractor, claims.Role)
	require.NotNil(t, claims.CompanyID)
	assert.Equal(t, "acme", *claims.CompanyID)
}

func TestTokenWithoutCompanyOmitsClaim(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)

	token, _, err := tm.GenerateToken("mgr-1", domain.RoleManager, nil)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Nil(t, claims.CompanyID)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 15).GenerateToken("user-1", domain.RoleManager, nil)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 15).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)
	_, err := tm.ParseToken("not-a-jwt")
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.Error(t, ComparePassword(hash, "hunter23"))
}

func TestPasswordHashClampsBadCost(t *testing.T) {
	hash, err := HashPassword("hunter22", -1)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
}
