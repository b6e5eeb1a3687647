package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// TokenManager handles JWT token generation and validation. Besides the
// usual access/refresh pair it issues the short-lived challenge token that
// carries the two-factor pending state between requests.
type TokenManager struct {
	secret             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	challengeExpiry    time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, refreshExpiry, challengeExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:             secret,
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		challengeExpiry:    challengeExpiry,
	}
}

// GenerateAccessToken creates a short-lived access token with JTI
func (tm *TokenManager) GenerateAccessToken(userID, email string) (string, error) {
	return tm.generate(models.TokenTypeAccess, userID, email, "", tm.accessTokenExpiry)
}

// GenerateRefreshToken creates a long-lived refresh token with JTI
func (tm *TokenManager) GenerateRefreshToken(userID, email string) (string, error) {
	return tm.generate(models.TokenTypeRefresh, userID, email, "", tm.refreshTokenExpiry)
}

// GenerateChallengeToken creates the token returned when a login requires a
// second factor. It references the pending challenge and expires with it.
func (tm *TokenManager) GenerateChallengeToken(userID, email, challengeID string) (string, error) {
	return tm.generate(models.TokenTypeTwoFactor, userID, email, challengeID, tm.challengeExpiry)
}

func (tm *TokenManager) generate(tokenType, userID, email, challengeID string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		Type:        tokenType,
		UserID:      userID,
		Email:       email,
		ChallengeID: challengeID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type == "" {
		return nil, fmt.Errorf("invalid token: missing type")
	}

	return claims, nil
}

// ValidateChallengeToken verifies a token and ensures it is a two-factor
// challenge token carrying a challenge reference.
func (tm *TokenManager) ValidateChallengeToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := tm.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Type != models.TokenTypeTwoFactor || claims.ChallengeID == "" {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}
