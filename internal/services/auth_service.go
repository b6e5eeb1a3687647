package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	pkgauth "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/auth"
	pkglogger "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	SetTwoFactorEnabled(ctx context.Context, id string, enabled bool, enrolledAt *time.Time) error
}

// TokenRevocationRepository defines the interface for token revocation operations
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthService runs the login gate end to end: lockout check, credential
// verification, the optional second-factor step, and session issuance.
type AuthService struct {
	userRepo    UserRepository
	revokeRepo  TokenRevocationRepository
	lockout     *LockoutService
	twoFactor   *TwoFactorService
	devices     *DeviceTrustService
	tm          *auth.TokenManager
	timing      *auth.TimingDelay
	audit       *AuditService
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo UserRepository,
	revokeRepo TokenRevocationRepository,
	lockout *LockoutService,
	twoFactor *TwoFactorService,
	devices *DeviceTrustService,
	tm *auth.TokenManager,
	timing *auth.TimingDelay,
	audit *AuditService,
	auditLogger *pkglogger.AuditLogger,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		revokeRepo:  revokeRepo,
		lockout:     lockout,
		twoFactor:   twoFactor,
		devices:     devices,
		tm:          tm,
		timing:      timing,
		audit:       audit,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	PreferredLanguage string `json:"preferred_language"`
	TwoFactorEnabled  bool   `json:"two_factor_enabled"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// LoginResult is the outcome of a credential submission. Exactly one of the
// terminal shapes applies: a granted session (State SESSION_GRANTED, tokens
// set), a pending second factor (State TWO_FACTOR_REQUIRED, challenge token
// set), or an error with LockStatus populated when the gate blocked the
// attempt.
type LoginResult struct {
	State          string             `json:"state"`
	AccessToken    string             `json:"access_token,omitempty"`
	RefreshToken   string             `json:"refresh_token,omitempty"`
	ChallengeToken string             `json:"challenge_token,omitempty"`
	TrustToken     string             `json:"-"`
	User           *UserResponse      `json:"user,omitempty"`
	LockStatus     *models.LockStatus `json:"lock_status,omitempty"`
}

// Login verifies credentials behind the lockout gate. The lockout check runs
// before the password is ever compared, so a locked identifier costs no
// bcrypt work and leaks no credential signal. Failures are counted per
// identifier whether or not the account exists.
func (s *AuthService) Login(ctx context.Context, email, password string, client models.ClientContext) (*LoginResult, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.ErrUnauthorized
	}

	status, err := s.lockout.Status(ctx, email, client)
	if err != nil {
		return nil, models.ErrInternalServer
	}
	if status.Locked {
		s.audit.Record(ctx, models.EventTypeLockoutBlocked, email, client, models.EventMetadata{
			"remaining_minutes": status.RemainingMinutes,
		})
		return &LoginResult{LockStatus: status}, models.ErrAccountLocked
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown identifiers are counted like wrong passwords so the
			// response shape never reveals whether the account exists.
			return s.failLogin(ctx, email, "invalid_credentials", client)
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user); err != nil {
		s.logger.Info("login blocked due to account state",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     models.EventTypeLoginFailed,
			Identifier:    pkglogger.SanitizedEmail(email),
			FailureReason: "account_blocked",
			Success:       false,
		})
		return nil, err
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return s.failLogin(ctx, email, "invalid_credentials", client)
	}

	// Password verified; the attempt counter has served its purpose.
	if err := s.lockout.Clear(ctx, email); err != nil {
		s.logger.Error("failed to clear attempt state after login", slog.Any("error", err))
	}

	enabled, err := s.twoFactor.Enabled(ctx, user.ID)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	if enabled && !s.devices.IsTrusted(ctx, user.ID, client) {
		challenge, err := s.twoFactor.CreateChallenge(ctx, user)
		if err != nil {
			return nil, models.ErrInternalServer
		}

		challengeToken, err := s.tm.GenerateChallengeToken(user.ID, user.Email, challenge.ID)
		if err != nil {
			s.logger.Error("failed to generate challenge token", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.logger.Info("second factor required", slog.String("user_id", user.ID))
		return &LoginResult{
			State:          models.StateTwoFactorRequired,
			ChallengeToken: challengeToken,
		}, nil
	}

	return s.grantSession(ctx, user, client)
}

// CompleteTwoFactor resolves a pending challenge with the submitted code and
// grants the session on success. When trustDevice is set the caller also
// receives a trust token so this device skips the step next time.
func (s *AuthService) CompleteTwoFactor(ctx context.Context, challengeToken, code string, trustDevice bool, client models.ClientContext) (*LoginResult, error) {
	claims, err := s.tm.ValidateChallengeToken(challengeToken)
	if err != nil {
		s.logger.Info("challenge token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	challenge, err := s.twoFactor.VerifyChallenge(ctx, claims.ChallengeID, code, client)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCode) {
			s.timing.Wait(false)
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, challenge.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for challenge", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user); err != nil {
		return nil, err
	}

	result, err := s.grantSession(ctx, user, client)
	if err != nil {
		return nil, err
	}

	if trustDevice {
		trustToken, err := s.devices.Trust(ctx, user.ID, client)
		if err != nil {
			// The session is already granted; losing the trust entry only
			// costs one extra prompt next login.
			s.logger.Error("failed to trust device after verification", slog.Any("error", err))
		} else {
			result.TrustToken = trustToken
		}
	}

	return result, nil
}

// CancelTwoFactor abandons a pending challenge, returning the login to the
// password step without granting anything.
func (s *AuthService) CancelTwoFactor(ctx context.Context, challengeToken string, client models.ClientContext) error {
	claims, err := s.tm.ValidateChallengeToken(challengeToken)
	if err != nil {
		return models.ErrUnauthorized
	}

	return s.twoFactor.CancelChallenge(ctx, claims.ChallengeID, client)
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, email, password, name string, client models.ClientContext) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	user := &models.User{
		Email:             email,
		PasswordHash:      hashedPassword,
		Name:              name,
		Role:              "user",
		PreferredLanguage: client.Locale,
		PasswordChangedAt: &now,
	}

	createdUser, err := s.userRepo.Create(ctx, user)
	if err != nil {
		s.logger.Error("failed to create user", slog.Any("error", err))
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))

	return s.grantSession(ctx, createdUser, client)
}

// RefreshToken generates a new token pair from a refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*LoginResult, error) {
	if refreshTokenString = strings.TrimSpace(refreshTokenString); refreshTokenString == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refreshTokenString)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeRefresh {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	revoked, err := s.revokeRepo.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("failed to check token revocation", slog.Any("error", err))
	} else if revoked {
		return nil, models.ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user); err != nil {
		return nil, models.ErrUnauthorized
	}

	// Invalidate tokens issued before a password change
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil {
		if claims.IssuedAt.Time.Before(*user.PasswordChangedAt) {
			s.logger.Info("token refresh blocked: issued before password change",
				slog.String("user_id", user.ID))
			return nil, models.ErrUnauthorized
		}
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	newRefreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &LoginResult{
		State:        models.StateSessionGranted,
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// Logout revokes the current access token
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tm.ValidateToken(accessToken)
	if err != nil {
		return models.ErrUnauthorized
	}

	expiresAt := claims.ExpiresAt.Time
	err = s.revokeRepo.RevokeToken(ctx, claims.ID, claims.UserID, claims.Type, expiresAt, "logout")
	if err != nil {
		s.logger.Error("failed to revoke token", slog.String("jti", claims.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// failLogin records the failed attempt, applies the anti-enumeration delay,
// and maps a just-triggered lockout onto the right error.
func (s *AuthService) failLogin(ctx context.Context, email, reason string, client models.ClientContext) (*LoginResult, error) {
	s.logger.Info("login failed: invalid credentials")
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     models.EventTypeLoginFailed,
		Identifier:    pkglogger.SanitizedEmail(email),
		FailureReason: reason,
		Success:       false,
	})
	s.audit.Record(ctx, models.EventTypeLoginFailed, email, client, models.EventMetadata{
		"reason": reason,
	})

	status, err := s.lockout.RecordFailure(ctx, email, client)
	if err != nil {
		status = &models.LockStatus{}
	}

	s.timing.Wait(false)

	if status.Locked {
		return &LoginResult{LockStatus: status}, models.ErrAccountLocked
	}
	return nil, models.ErrUnauthorized
}

func (s *AuthService) grantSession(ctx context.Context, user *models.User, client models.ClientContext) (*LoginResult, error) {
	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("session granted", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:  models.EventTypeLoginSuccess,
		Identifier: pkglogger.SanitizedEmail(user.Email),
		Success:    true,
	})
	s.audit.Record(ctx, models.EventTypeLoginSuccess, user.Email, client, nil)

	return &LoginResult{
		State:        models.StateSessionGranted,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// validateAccountState checks if user account is in valid state for authentication
func validateAccountState(user *models.User) error {
	switch user.Status {
	case "disabled":
		return models.ErrAccountDisabled
	case "suspended":
		return models.ErrAccountSuspended
	case "active":
		return nil
	default:
		return fmt.Errorf("unknown account status: %s", user.Status)
	}
}

// userModelToResponse converts a user model to response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:                user.ID,
		Email:             user.Email,
		Name:              user.Name,
		Role:              user.Role,
		PreferredLanguage: user.PreferredLanguage,
		TwoFactorEnabled:  user.TwoFactorEnabled,
		CreatedAt:         user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         user.UpdatedAt.Format(time.RFC3339),
	}
}
