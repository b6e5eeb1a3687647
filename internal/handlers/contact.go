package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	pkghttp "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/http"
)

// ContactServiceInterface defines the interface for the lockout escape hatch
type ContactServiceInterface interface {
	Submit(ctx context.Context, identifier, message string, client models.ClientContext) (*models.ContactRequest, error)
}

// ContactHandler handles the contact-admin escape hatch offered to
// locked-out users.
type ContactHandler struct {
	service  ContactServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(service ContactServiceInterface, ipConfig *pkghttp.IPConfig) *ContactHandler {
	return &ContactHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// ContactRequestBody represents the request body for contacting the operator
type ContactRequestBody struct {
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

// Submit files a contact request. The endpoint is public: it serves exactly
// the users the gate has locked out.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ContactRequestBody

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

	_, err := h.service.Submit(r.Context(), req.Email, req.Message, client)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid contact request")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "A request for this account is already pending")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "Votre demande a été transmise à l'administrateur. / Your request has been forwarded to the administrator.",
	})
}
