package models

import "time"

// Login flow states. A credential submission starts at PrimaryPending; a
// verified password moves to PrimaryVerified and from there either straight
// to SessionGranted or through the two-factor states. Cancel returns to
// PrimaryPending from any state before grant.
const (
	StatePrimaryPending    = "PRIMARY_PENDING"
	StatePrimaryVerified   = "PRIMARY_VERIFIED"
	StateTwoFactorRequired = "TWO_FACTOR_REQUIRED"
	StateTwoFactorPending  = "TWO_FACTOR_PENDING"
	StateSessionGranted    = "SESSION_GRANTED"
)

// TwoFactorConfig is the per-account second-factor setting.
type TwoFactorConfig struct {
	AccountID       string
	Enabled         bool
	SecretEncrypted []byte // AES-256-GCM encrypted TOTP secret
	SecretNonce     []byte // GCM nonce
	EnrolledAt      *time.Time
	UpdatedAt       time.Time
}

// TwoFactorChallenge is the pending state between primary verification and
// the second factor. It lives in the session cache with a bounded TTL; an
// expired or cancelled challenge grants nothing.
type TwoFactorChallenge struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}
