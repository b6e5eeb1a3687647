package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountDisabled  = errors.New("account is disabled")
	ErrAccountSuspended = errors.New("account is suspended")
	ErrAccountLocked    = errors.New("account is temporarily locked")

	// Security gate errors
	ErrInvalidCodeFormat  = errors.New("verification code must be exactly 6 digits")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrChallengeNotFound  = errors.New("two-factor challenge not found or expired")
	ErrTwoFactorNotSetUp  = errors.New("two-factor authentication is not configured")
	ErrTwoFactorConflict  = errors.New("two-factor authentication is already enabled")
)
