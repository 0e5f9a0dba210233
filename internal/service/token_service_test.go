package service

import (
	"testing"
	"time"

	"wallet-pos-bridge/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key-for-unit-tests"

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 24*time.Hour, "test-issuer")

	tokenStr, expiresAt, err := svc.Generate("storefront-1", ports.RoleStorefront)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "storefront-1", claims.Subject)
	assert.Equal(t, ports.RoleStorefront, claims.Role)
}

func TestJWTTokenService_Rejects(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 24*time.Hour, "issuer")

	expired, _, err := NewJWTTokenService(testJWTSecret, -time.Hour, "issuer").Generate("ops", ports.RoleAdmin)
	require.NoError(t, err)

	otherSecret, _, err := NewJWTTokenService("secret-2", time.Hour, "issuer").Generate("ops", ports.RoleAdmin)
	require.NoError(t, err)

	otherIssuer, _, err := NewJWTTokenService(testJWTSecret, time.Hour, "someone-else").Generate("ops", ports.RoleAdmin)
	require.NoError(t, err)

	badRole, _, err := svc.Generate("ops", "superuser")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "ops", "role": "admin", "iss": "issuer"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":        expired,
		"other secret":   otherSecret,
		"other issuer":   otherIssuer,
		"unknown role":   badRole,
		"none algorithm": noneAlg,
		"garbage":        "not.a.valid.jwt",
		"empty":          "",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(token)
			assert.Error(t, err)
		})
	}
}
