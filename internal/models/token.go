package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token types issued by the gate
const (
	TokenTypeAccess    = "access"
	TokenTypeRefresh   = "refresh"
	TokenTypeTwoFactor = "twofactor" // short-lived challenge token
)

type TokenClaims struct {
	Type        string `json:"type"`
	UserID      string `json:"user_id"`
	Email       string `json:"email,omitempty"`
	ChallengeID string `json:"challenge_id,omitempty"` // set on twofactor tokens only
	jwt.RegisteredClaims
}
