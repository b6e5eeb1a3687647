package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

const testSecret = "test-secret-32-characters-long-for-testing"

func newTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(testSecret, 15*time.Minute, 7*24*time.Hour, 5*time.Minute)
}

func TestTokenManager_AccessToken_RoundTrip(t *testing.T) {
	tm := newTokenManager()

	token, err := tm.GenerateAccessToken("user-123", "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID, "access tokens carry a JTI for revocation")
	assert.Empty(t, claims.ChallengeID)
}

func TestTokenManager_RefreshToken_RoundTrip(t *testing.T) {
	tm := newTokenManager()

	token, err := tm.GenerateRefreshToken("user-123", "user@example.com")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeRefresh, claims.Type)
}

func TestTokenManager_ChallengeToken_CarriesChallengeID(t *testing.T) {
	tm := newTokenManager()

	token, err := tm.GenerateChallengeToken("user-123", "user@example.com", "challenge-abc")
	require.NoError(t, err)

	claims, err := tm.ValidateChallengeToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeTwoFactor, claims.Type)
	assert.Equal(t, "challenge-abc", claims.ChallengeID)
}

func TestTokenManager_ValidateChallengeToken_RejectsAccessToken(t *testing.T) {
	tm := newTokenManager()

	token, err := tm.GenerateAccessToken("user-123", "user@example.com")
	require.NoError(t, err)

	claims, err := tm.ValidateChallengeToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestTokenManager_ValidateToken_WrongSecret(t *testing.T) {
	tm := newTokenManager()
	other := auth.NewTokenManager("another-secret-32-characters-long!!", 15*time.Minute, 7*24*time.Hour, 5*time.Minute)

	token, err := tm.GenerateAccessToken("user-123", "user@example.com")
	require.NoError(t, err)

	claims, err := other.ValidateToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestTokenManager_ValidateToken_Expired(t *testing.T) {
	tm := auth.NewTokenManager(testSecret, -1*time.Minute, 7*24*time.Hour, 5*time.Minute)

	token, err := tm.GenerateAccessToken("user-123", "user@example.com")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestTokenManager_ValidateToken_Garbage(t *testing.T) {
	tm := newTokenManager()

	claims, err := tm.ValidateToken("not-a-jwt")
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestTokenManager_TokensHaveUniqueJTIs(t *testing.T) {
	tm := newTokenManager()

	first, err := tm.GenerateAccessToken("user-123", "user@example.com")
	require.NoError(t, err)
	second, err := tm.GenerateAccessToken("user-123", "user@example.com")
	require.NoError(t, err)

	firstClaims, err := tm.ValidateToken(first)
	require.NoError(t, err)
	secondClaims, err := tm.ValidateToken(second)
	require.NoError(t, err)

	assert.NotEqual(t, firstClaims.ID, secondClaims.ID)
}
