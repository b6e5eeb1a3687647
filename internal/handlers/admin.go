package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	pkghttp "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/http"
)

// ContactAdminServiceInterface is the operator-side contact queue surface
type ContactAdminServiceInterface interface {
	ListPending(ctx context.Context, limit, offset int) ([]*models.ContactRequest, error)
	Resolve(ctx context.Context, id string) error
}

// AuditQueryServiceInterface is the read side of the security event log
type AuditQueryServiceInterface interface {
	ListRecent(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityEvent, error)
	ListForIdentifier(ctx context.Context, identifier string, limit, offset int) ([]*models.SecurityEvent, error)
}

// UnlockServiceInterface is the operator unlock path
type UnlockServiceInterface interface {
	Unlock(ctx context.Context, identifier string, client models.ClientContext) error
}

// AdminHandler serves the operator surface: the contact queue, the security
// event log, and manual unlocks.
type AdminHandler struct {
	contacts ContactAdminServiceInterface
	audit    AuditQueryServiceInterface
	lockout  UnlockServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(contacts ContactAdminServiceInterface, audit AuditQueryServiceInterface, lockout UnlockServiceInterface, ipConfig *pkghttp.IPConfig) *AdminHandler {
	return &AdminHandler{
		contacts: contacts,
		audit:    audit,
		lockout:  lockout,
		ipConfig: ipConfig,
	}
}

// ContactRequestResponse represents a queued contact request
type ContactRequestResponse struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Message    string `json:"message"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// SecurityEventResponse represents one audit entry
type SecurityEventResponse struct {
	ID              string                 `json:"id"`
	EventType       string                 `json:"event_type"`
	Identifier      string                 `json:"identifier"`
	ClientSignature string                 `json:"client_signature"`
	IPAddress       *string                `json:"ip_address,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt       string                 `json:"created_at"`
}

// UnlockRequest represents the request body for a manual unlock
type UnlockRequest struct {
	Identifier string `json:"identifier" validate:"required,email"`
}

func paginationParams(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

// ListContactRequests returns the pending operator queue.
func (h *AdminHandler) ListContactRequests(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	requests, err := h.contacts.ListPending(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := make([]ContactRequestResponse, 0, len(requests))
	for _, req := range requests {
		resp = append(resp, ContactRequestResponse{
			ID:         req.ID,
			Identifier: req.Identifier,
			Message:    req.Message,
			Status:     req.Status,
			CreatedAt:  req.CreatedAt.Format(time.RFC3339),
		})
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"requests": resp,
	})
}

// ResolveContactRequest marks one queue entry handled.
func (h *AdminHandler) ResolveContactRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Request ID is required")
		return
	}

	if err := h.contacts.Resolve(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Contact request not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Contact request resolved",
	})
}

// ListSecurityEvents returns the event log, optionally filtered by
// event_type or identifier.
func (h *AdminHandler) ListSecurityEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	var events []*models.SecurityEvent
	var err error
	if identifier := r.URL.Query().Get("identifier"); identifier != "" {
		events, err = h.audit.ListForIdentifier(r.Context(), identifier, limit, offset)
	} else {
		events, err = h.audit.ListRecent(r.Context(), r.URL.Query().Get("event_type"), limit, offset)
	}
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := make([]SecurityEventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, SecurityEventResponse{
			ID:              event.ID,
			EventType:       event.EventType,
			Identifier:      event.Identifier,
			ClientSignature: event.ClientSignature,
			IPAddress:       event.IPAddress,
			Metadata:        event.Metadata,
			CreatedAt:       event.CreatedAt.Format(time.RFC3339),
		})
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": resp,
	})
}

// UnlockAccount clears an identifier's lockout on operator demand.
func (h *AdminHandler) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	client := models.ClientContext{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}

	if err := h.lockout.Unlock(r.Context(), req.Identifier, client); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Account unlocked",
	})
}
