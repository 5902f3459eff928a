package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity() Identity {
	return Identity{
		UserID:   uuid.New(),
		Username: "drchan",
		Role:     "doctor",
		Masking:  true,
	}
}

func TestManager_AccessTokenRoundTrip(t *testing.T) {
	mgr := NewManager(Config{Secret: "test-secret", AccessExpiry: time.Hour})
	id := testIdentity()

	token, err := mgr.GenerateAccessToken(id)
	require.NoError(t, err)

	claims, err := mgr.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.UserID, claims.UserID)
	assert.Equal(t, "drchan", claims.Username)
	assert.Equal(t, "doctor", claims.Role)
	assert.True(t, claims.Masking)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestManager_RefreshTokenCarriesJTI(t *testing.T) {
	mgr := NewManager(Config{Secret: "test-secret"})

	token, jti, err := mgr.GenerateRefreshToken(testIdentity())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, jti)

	claims, err := mgr.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, jti.String(), claims.ID)
}

func TestManager_RejectsWrongTokenType(t *testing.T) {
	mgr := NewManager(Config{Secret: "test-secret"})
	id := testIdentity()

	access, err := mgr.GenerateAccessToken(id)
	require.NoError(t, err)
	refresh, _, err := mgr.GenerateRefreshToken(id)
	require.NoError(t, err)

	_, err = mgr.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = mgr.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestManager_RejectsWrongSecret(t *testing.T) {
	mgr := NewManager(Config{Secret: "test-secret"})
	other := NewManager(Config{Secret: "other-secret"})

	token, err := mgr.GenerateAccessToken(testIdentity())
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_RejectsExpiredToken(t *testing.T) {
	mgr := NewManager(Config{Secret: "test-secret", AccessExpiry: -time.Minute})

	token, err := mgr.GenerateAccessToken(testIdentity())
	require.NoError(t, err)

	_, err = mgr.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_RejectsGarbage(t *testing.T) {
	mgr := NewManager(Config{Secret: "test-secret"})

	_, err := mgr.ValidateAccessToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
