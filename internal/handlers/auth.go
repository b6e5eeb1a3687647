package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/services"
	pkghttp "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/http"
)

// trustCookieMaxAge keeps a trusted device recognized for 180 days.
const trustCookieMaxAge = 180 * 24 * 60 * 60

// AuthServiceInterface defines the interface for the login gate
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string, client models.ClientContext) (*services.LoginResult, error)
	CompleteTwoFactor(ctx context.Context, challengeToken, code string, trustDevice bool, client models.ClientContext) (*services.LoginResult, error)
	CancelTwoFactor(ctx context.Context, challengeToken string, client models.ClientContext) error
	Register(ctx context.Context, email, password, name string, client models.ClientContext) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	ipConfig     *pkghttp.IPConfig
	cookieConfig auth.CookieConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, cookieConfig auth.CookieConfig) *AuthHandler {
	return &AuthHandler{
		service:      service,
		ipConfig:     ipConfig,
		cookieConfig: cookieConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Locale     string `json:"locale" validate:"omitempty,max=16"`
	ScreenSize string `json:"screen_size" validate:"omitempty,max=16"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Name       string `json:"name" validate:"required,min=1,max=100"`
	Locale     string `json:"locale" validate:"omitempty,max=16"`
	ScreenSize string `json:"screen_size" validate:"omitempty,max=16"`
}

// TwoFactorVerifyRequest represents the request body for the second-factor step
type TwoFactorVerifyRequest struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
	Code           string `json:"code" validate:"required"`
	TrustDevice    bool   `json:"trust_device"`
	Locale         string `json:"locale" validate:"omitempty,max=16"`
	ScreenSize     string `json:"screen_size" validate:"omitempty,max=16"`
}

// TwoFactorCancelRequest represents the request body for abandoning the step
type TwoFactorCancelRequest struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// clientContext assembles the environment signals a request presents.
func (h *AuthHandler) clientContext(r *http.Request, locale, screenSize string) models.ClientContext {
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
		if i := strings.IndexAny(locale, ",;"); i >= 0 {
			locale = locale[:i]
		}
	}
	return models.ClientContext{
		IPAddress:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:  r.Header.Get("User-Agent"),
		Locale:     locale,
		ScreenSize: screenSize,
		TrustToken: auth.GetTrustTokenCookie(r),
	}
}

// ensureSessionID returns the risk-session id from the sid cookie, minting
// one when the browser session has none yet.
func (h *AuthHandler) ensureSessionID(w http.ResponseWriter, r *http.Request) string {
	if sid := auth.GetSessionIDCookie(r); sid != "" {
		return sid
	}
	sid := uuid.New().String()
	auth.SetSessionIDCookie(w, sid, h.cookieConfig)
	return sid
}

// Login handles a credential submission. The response shape depends on the
// gate's decision: a granted session, a pending second factor, or a lockout
// refusal carrying the remaining wait.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	h.ensureSessionID(w, r)
	client := h.clientContext(r, req.Locale, req.ScreenSize)

	result, err := h.service.Login(r.Context(), req.Email, req.Password, client)
	if err != nil {
		h.writeLoginError(w, result, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// TwoFactorVerify resolves a pending challenge with a submitted code.
func (h *AuthHandler) TwoFactorVerify(w http.ResponseWriter, r *http.Request) {
	var req TwoFactorVerifyRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	client := h.clientContext(r, req.Locale, req.ScreenSize)

	result, err := h.service.CompleteTwoFactor(r.Context(), req.ChallengeToken, req.Code, req.TrustDevice, client)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCodeFormat):
			pkghttp.WriteBadRequest(w, "Code must be exactly 6 digits")
		case errors.Is(err, models.ErrInvalidCode):
			pkghttp.WriteUnauthorized(w, "Invalid verification code")
		case errors.Is(err, models.ErrChallengeNotFound):
			pkghttp.WriteUnauthorized(w, "Verification session expired, please log in again")
		case errors.Is(err, models.ErrUnauthorized),
			errors.Is(err, models.ErrTwoFactorNotSetUp),
			errors.Is(err, models.ErrAccountDisabled),
			errors.Is(err, models.ErrAccountSuspended):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	if result.TrustToken != "" {
		auth.SetTrustTokenCookie(w, result.TrustToken, trustCookieMaxAge, h.cookieConfig)
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// TwoFactorCancel abandons a pending challenge.
func (h *AuthHandler) TwoFactorCancel(w http.ResponseWriter, r *http.Request) {
	var req TwoFactorCancelRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	client := h.clientContext(r, "", "")

	if err := h.service.CancelTwoFactor(r.Context(), req.ChallengeToken, client); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Authentication failed")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"state": models.StatePrimaryPending,
	})
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	client := h.clientContext(r, req.Locale, req.ScreenSize)

	result, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name, client)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		case isValidationError(err):
			pkghttp.WriteBadRequest(w, err.Error())
			return
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, result)
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthorized),
			errors.Is(err, models.ErrAccountDisabled),
			errors.Is(err, models.ErrAccountSuspended):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// Logout revokes the presented access token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	accessToken := extractBearerToken(r)
	if accessToken == "" {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Logout(r.Context(), accessToken); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Authentication failed")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out",
	})
}

// Session reports the authenticated caller's session claims.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"state":   models.StateSessionGranted,
		"user_id": claims.UserID,
		"email":   claims.Email,
	})
}

func (h *AuthHandler) writeLoginError(w http.ResponseWriter, result *services.LoginResult, err error) {
	switch {
	case errors.Is(err, models.ErrAccountLocked):
		if result != nil && result.LockStatus != nil {
			pkghttp.WriteJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"error":       "account_locked",
				"message":     lockedMessage(result.LockStatus),
				"lock_status": result.LockStatus,
			})
			return
		}
		pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
	case errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrAccountDisabled),
		errors.Is(err, models.ErrAccountSuspended):
		// Generic refusal for all account states to prevent enumeration
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// lockedMessage is bilingual like the rest of the user-facing surface.
func lockedMessage(status *models.LockStatus) string {
	return fmt.Sprintf(
		"Compte temporairement bloqué. Réessayez dans %d minutes. / Account temporarily locked. Try again in %d minutes.",
		status.RemainingMinutes, status.RemainingMinutes)
}

func isValidationError(err error) bool {
	return strings.Contains(err.Error(), "invalid password") ||
		strings.Contains(err.Error(), "required")
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
