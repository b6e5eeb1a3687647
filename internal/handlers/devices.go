package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	pkghttp "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/http"
)

// DeviceHandler handles the account's trusted-device list
type DeviceHandler struct {
	devices  DeviceTrustServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(devices DeviceTrustServiceInterface, ipConfig *pkghttp.IPConfig) *DeviceHandler {
	return &DeviceHandler{
		devices:  devices,
		ipConfig: ipConfig,
	}
}

// DeviceResponse represents a trusted device in HTTP responses. The token is
// exposed so the owner can revoke a specific device; it grants nothing
// without the matching fingerprint.
type DeviceResponse struct {
	Token       string `json:"token"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   string `json:"created_at"`
	LastUsedAt  string `json:"last_used_at"`
	Current     bool   `json:"current"`
}

// List returns the caller's trusted devices, newest first.
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	entries, err := h.devices.List(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	presented := auth.GetTrustTokenCookie(r)
	resp := make([]DeviceResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, DeviceResponse{
			Token:       entry.Token,
			Fingerprint: entry.Fingerprint,
			CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
			LastUsedAt:  entry.LastUsedAt.Format(time.RFC3339),
			Current:     entry.Token == presented,
		})
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"devices":  resp,
		"capacity": models.DeviceTrustCapacity,
	})
}

// Revoke removes one trusted device.
func (h *DeviceHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	token := chi.URLParam(r, "token")
	if token == "" {
		pkghttp.WriteBadRequest(w, "Device token is required")
		return
	}

	client := models.ClientContext{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}

	if err := h.devices.Revoke(r.Context(), claims.UserID, token, client); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Device not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device revoked",
	})
}
