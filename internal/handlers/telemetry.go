package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/auth"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	pkghttp "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/http"
)

// RiskServiceInterface defines the interface for the session risk heuristic
type RiskServiceInterface interface {
	ObserveInteraction(ctx context.Context, sessionID string, sinceLast time.Duration, client models.ClientContext) (models.SessionRisk, error)
	ScanEnvironment(ctx context.Context, sessionID string, scan models.EnvironmentScan, client models.ClientContext) (models.SessionRisk, error)
}

// TelemetryHandler ingests the client-side behavior signals that feed the
// suspicious-activity heuristic. The endpoint is advisory: it always answers
// 202 with the current risk state, never an enforcement decision.
type TelemetryHandler struct {
	risk     RiskServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewTelemetryHandler creates a new TelemetryHandler
func NewTelemetryHandler(risk RiskServiceInterface, ipConfig *pkghttp.IPConfig) *TelemetryHandler {
	return &TelemetryHandler{
		risk:     risk,
		ipConfig: ipConfig,
	}
}

// TelemetryRequest carries one batch of client signals. InteractionGapMs is
// the time between the last two user interactions; the environment block is
// sent once per page load.
type TelemetryRequest struct {
	InteractionGapMs *int `json:"interaction_gap_ms" validate:"omitempty,gte=0"`
	Environment      *struct {
		UserAgent         string `json:"user_agent" validate:"max=512"`
		WebDriver         bool   `json:"web_driver"`
		AutomationGlobals bool   `json:"automation_globals"`
	} `json:"environment"`
}

// Ingest scores the submitted signals against the caller's session.
func (h *TelemetryHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.GetSessionIDCookie(r)
	if sessionID == "" {
		// No session cookie means nothing to score against.
		pkghttp.WriteJSON(w, http.StatusAccepted, models.SessionRisk{})
		return
	}

	var req TelemetryRequest
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

	var risk models.SessionRisk
	var err error

	if req.InteractionGapMs != nil {
		gap := time.Duration(*req.InteractionGapMs) * time.Millisecond
		risk, err = h.risk.ObserveInteraction(r.Context(), sessionID, gap, client)
		if err != nil {
			pkghttp.WriteInternalError(w, "Internal server error")
			return
		}
	}

	if req.Environment != nil {
		scan := models.EnvironmentScan{
			UserAgent:         req.Environment.UserAgent,
			WebDriver:         req.Environment.WebDriver,
			AutomationGlobals: req.Environment.AutomationGlobals,
		}
		risk, err = h.risk.ScanEnvironment(r.Context(), sessionID, scan, client)
		if err != nil {
			pkghttp.WriteInternalError(w, "Internal server error")
			return
		}
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, risk)
}
