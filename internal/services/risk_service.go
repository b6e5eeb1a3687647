package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

// RiskStore defines the interface for session-scoped risk state
type RiskStore interface {
	Increment(ctx context.Context, sessionID string, weight int, ttl time.Duration) (int, error)
	RaiseFlag(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	MarkScanned(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, sessionID string) (models.SessionRisk, error)
}

// RapidInteractionThreshold is the gap below which two consecutive
// interactions look machine-driven.
const RapidInteractionThreshold = 100 * time.Millisecond

// automationMarkers are user-agent fragments associated with headless or
// scripted browsers.
var automationMarkers = []string{
	"headlesschrome",
	"phantomjs",
	"selenium",
	"puppeteer",
	"playwright",
}

// RiskService scores a session's behavior and raises a one-shot suspicious
// flag once the accumulated score crosses the threshold. The score only ever
// grows within a session; it resets when the session's TTL lapses.
type RiskService struct {
	store      RiskStore
	audit      *AuditService
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewRiskService creates a new RiskService
func NewRiskService(store RiskStore, audit *AuditService, sessionTTL time.Duration, logger *slog.Logger) *RiskService {
	return &RiskService{
		store:      store,
		audit:      audit,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// ObserveInteraction scores one client interaction given the gap since the
// previous one. Sub-threshold gaps add the rapid-interaction weight.
func (s *RiskService) ObserveInteraction(ctx context.Context, sessionID string, sinceLast time.Duration, client models.ClientContext) (models.SessionRisk, error) {
	if sessionID == "" || sinceLast >= RapidInteractionThreshold {
		return s.current(ctx, sessionID)
	}

	return s.addScore(ctx, sessionID, models.RiskWeightRapidInteraction, "rapid_interaction", client)
}

// ScanEnvironment evaluates the environment signals the client reported.
// The scan contributes to the score at most once per session regardless of
// how many times the client re-reports.
func (s *RiskService) ScanEnvironment(ctx context.Context, sessionID string, scan models.EnvironmentScan, client models.ClientContext) (models.SessionRisk, error) {
	if sessionID == "" || !scanLooksAutomated(scan) {
		return s.current(ctx, sessionID)
	}

	first, err := s.store.MarkScanned(ctx, sessionID, s.sessionTTL)
	if err != nil {
		s.logger.Error("failed to mark session scanned", slog.Any("error", err))
		return models.SessionRisk{}, nil
	}
	if !first {
		return s.current(ctx, sessionID)
	}

	return s.addScore(ctx, sessionID, models.RiskWeightAutomation, "automation_signals", client)
}

// Current returns the session's score and flag state.
func (s *RiskService) Current(ctx context.Context, sessionID string) (models.SessionRisk, error) {
	return s.current(ctx, sessionID)
}

func (s *RiskService) current(ctx context.Context, sessionID string) (models.SessionRisk, error) {
	if sessionID == "" {
		return models.SessionRisk{}, nil
	}

	risk, err := s.store.Get(ctx, sessionID)
	if err != nil {
		s.logger.Error("failed to read session risk", slog.Any("error", err))
		return models.SessionRisk{}, nil
	}
	return risk, nil
}

func (s *RiskService) addScore(ctx context.Context, sessionID string, weight int, reason string, client models.ClientContext) (models.SessionRisk, error) {
	counter, err := s.store.Increment(ctx, sessionID, weight, s.sessionTTL)
	if err != nil {
		// Scoring is advisory; a store outage never blocks the session.
		s.logger.Error("failed to increment risk counter", slog.Any("error", err))
		return models.SessionRisk{}, nil
	}

	risk := models.SessionRisk{Counter: counter}

	if counter < models.RiskFlagThreshold {
		return risk, nil
	}

	raised, err := s.store.RaiseFlag(ctx, sessionID, s.sessionTTL)
	if err != nil {
		s.logger.Error("failed to raise risk flag", slog.Any("error", err))
		return risk, nil
	}

	risk.Flagged = true
	if raised {
		// First crossing only: the flag fires once per session.
		s.logger.Warn("session flagged as suspicious",
			slog.Int("score", counter),
			slog.String("reason", reason))
		s.audit.Record(ctx, models.EventTypeSuspiciousActivity, sessionID, client, models.EventMetadata{
			"score":  counter,
			"reason": reason,
		})
	}

	return risk, nil
}

func scanLooksAutomated(scan models.EnvironmentScan) bool {
	if scan.WebDriver || scan.AutomationGlobals {
		return true
	}

	ua := strings.ToLower(scan.UserAgent)
	for _, marker := range automationMarkers {
		if strings.Contains(ua, marker) {
			return true
		}
	}

	return false
}
