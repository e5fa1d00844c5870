package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credvault/pkg/domain"
	dErrors "credvault/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)
var expiresIn = time.Hour

func Test_GenerateSessionToken(t *testing.T) {
	token, err := jwtService.GenerateSessionToken("issuer@credvault.test", domain.RoleIssuer, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "issuer@credvault.test", claims.Subject)
	assert.Equal(t, "issuer", claims.Role)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateSessionToken("issuer@credvault.test", domain.RoleIssuer, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("another-key", "test-issuer", "test-audience")
	token, err := other.GenerateSessionToken("holder@credvault.test", domain.RoleHolder, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func Test_ExtractRole(t *testing.T) {
	token, err := jwtService.GenerateSessionToken("verifier@credvault.test", domain.RoleVerifier, expiresIn)
	require.NoError(t, err)

	subject, role, err := jwtService.ExtractRole(token)
	require.NoError(t, err)
	assert.Equal(t, "verifier@credvault.test", subject)
	assert.Equal(t, domain.RoleVerifier, role)
}
