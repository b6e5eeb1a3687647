package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/services"
	pkghttp "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/http"
)

// TwoFactorServiceInterface defines the interface for second-factor management
type TwoFactorServiceInterface interface {
	InitiateSetup(ctx context.Context, accountID, email string) (*services.SetupResponse, error)
	ConfirmSetup(ctx context.Context, accountID, code string, client models.ClientContext) error
	Disable(ctx context.Context, accountID, code string, client models.ClientContext) error
	Enabled(ctx context.Context, accountID string) (bool, error)
}

// DeviceTrustServiceInterface is the device-trust surface the handlers need
type DeviceTrustServiceInterface interface {
	List(ctx context.Context, accountID string) ([]*models.DeviceTrustEntry, error)
	Revoke(ctx context.Context, accountID, token string, client models.ClientContext) error
	RevokeAll(ctx context.Context, accountID string, client models.ClientContext) error
}

// TwoFactorHandler handles account second-factor management
type TwoFactorHandler struct {
	service  TwoFactorServiceInterface
	devices  DeviceTrustServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewTwoFactorHandler creates a new TwoFactorHandler
func NewTwoFactorHandler(service TwoFactorServiceInterface, devices DeviceTrustServiceInterface, ipConfig *pkghttp.IPConfig) *TwoFactorHandler {
	return &TwoFactorHandler{
		service:  service,
		devices:  devices,
		ipConfig: ipConfig,
	}
}

// TwoFactorCodeRequest carries a TOTP code for confirm/disable
type TwoFactorCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

func (h *TwoFactorHandler) clientContext(r *http.Request) models.ClientContext {
	return models.ClientContext{
		IPAddress:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:  r.Header.Get("User-Agent"),
		TrustToken: auth.GetTrustTokenCookie(r),
	}
}

// Status reports whether the caller has the second factor enabled.
func (h *TwoFactorHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	enabled, err := h.service.Enabled(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// Setup starts the enrollment and returns the provisioning QR code.
func (h *TwoFactorHandler) Setup(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	resp, err := h.service.InitiateSetup(r.Context(), claims.UserID, claims.Email)
	if err != nil {
		if errors.Is(err, models.ErrTwoFactorConflict) {
			pkghttp.WriteConflict(w, "Two-factor authentication is already enabled")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Confirm completes the enrollment with the first valid code.
func (h *TwoFactorHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req TwoFactorCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.ConfirmSetup(r.Context(), claims.UserID, req.Code, h.clientContext(r))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCodeFormat):
			pkghttp.WriteBadRequest(w, "Code must be exactly 6 digits")
		case errors.Is(err, models.ErrInvalidCode):
			pkghttp.WriteUnauthorized(w, "Invalid verification code")
		case errors.Is(err, models.ErrTwoFactorNotSetUp):
			pkghttp.WriteBadRequest(w, "Two-factor setup has not been started")
		case errors.Is(err, models.ErrTwoFactorConflict):
			pkghttp.WriteConflict(w, "Two-factor authentication is already enabled")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

// Disable turns the second factor off and clears the trust list: devices
// trusted to skip a step that no longer exists mean nothing.
func (h *TwoFactorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req TwoFactorCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	client := h.clientContext(r)
	err := h.service.Disable(r.Context(), claims.UserID, req.Code, client)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCodeFormat):
			pkghttp.WriteBadRequest(w, "Code must be exactly 6 digits")
		case errors.Is(err, models.ErrInvalidCode):
			pkghttp.WriteUnauthorized(w, "Invalid verification code")
		case errors.Is(err, models.ErrTwoFactorNotSetUp):
			pkghttp.WriteBadRequest(w, "Two-factor authentication is not enabled")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	// Trust entries for a disabled factor are inert, so a failed sweep does
	// not fail the disable. The service logs it.
	_ = h.devices.RevokeAll(r.Context(), claims.UserID, client)

	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": false})
}
