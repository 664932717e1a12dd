package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENV", "dev")

	token, err := SignJWT(Claims{
		Email:            "me@example.com",
		Permissions:      []string{PermissionDump, PermissionView},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "idp.example.com:42"},
	})
	require.NoError(t, err)

	claims, err := VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "idp.example.com:42", claims.Subject)
	assert.Equal(t, []string{"dump", "view"}, claims.Permissions)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestVerifyRejectsTamperedAndExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}})
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "other-secret")
	_, err = VerifyJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	t.Setenv("JWT_SECRET", "test-secret")
	expired, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	require.NoError(t, err)
	_, err = VerifyJWT(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignRequiresSecretInProduction(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENV", "production")
	_, err := SignJWT(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}})
	assert.Error(t, err)
}

func TestParsePermissions(t *testing.T) {
	assert.Equal(t, []string{"dump", "view", "delete"}, ParsePermissions("Dump view,delete  dump"))
	assert.True(t, HasPermission([]string{"view"}, PermissionView))
	assert.False(t, HasPermission(nil, PermissionDelete))
}
