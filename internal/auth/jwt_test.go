package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewTokenService("test-secret", 1)

	token, err := svc.Generate("m1", "u1", "moderator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "m1", claims.MeetingID)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "moderator", claims.Role)
}

func TestTokenService_ValidateRejectsWrongSecret(t *testing.T) {
	svc := NewTokenService("test-secret", 1)
	other := NewTokenService("other-secret", 1)

	token, err := svc.Generate("m1", "u1", "viewer")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_ValidateRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", 1)

	_, err := svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_ValidateJoinToken(t *testing.T) {
	svc := NewTokenService("test-secret", 1)
	token, err := svc.Generate("m1", "u1", "viewer")
	require.NoError(t, err)

	assert.True(t, svc.ValidateJoinToken(token, "m1", "u1"))
	assert.False(t, svc.ValidateJoinToken(token, "m2", "u1"), "token is bound to its meeting")
	assert.False(t, svc.ValidateJoinToken(token, "m1", "u2"), "token is bound to its user")
	assert.False(t, svc.ValidateJoinToken("junk", "m1", "u1"))
}
