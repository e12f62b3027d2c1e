package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseClaims(t *testing.T, raw, secret string) jwt.MapClaims {
	t.Helper()
	tok, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)
	claims, ok := tok.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims
}

func TestNewAccessTokenCarriesTenantClaim(t *testing.T) {
	tok, err := NewAccessToken("secret", 12, 7, "MANAGER", 15)
	require.NoError(t, err)

	claims := parseClaims(t, tok.Token, "secret")
	assert.Equal(t, float64(12), claims["sub"])
	assert.Equal(t, float64(7), claims["tenant_id"])
	assert.Equal(t, "MANAGER", claims["role"])
}

func TestNewAccessTokenOmitsZeroTenant(t *testing.T) {
	tok, err := NewAccessToken("secret", 1, 0, "PLATFORM_ADMIN", 15)
	require.NoError(t, err)

	claims := parseClaims(t, tok.Token, "secret")
	_, present := claims["tenant_id"]
	assert.False(t, present, "admin tokens must not carry a tenant_id claim")
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret!"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}
