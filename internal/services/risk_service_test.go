package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
)

func newTestRiskService() (*RiskService, *InMemoryRiskStore, *MockSecurityEventRepository) {
	logger := slog.Default()
	eventRepo := &MockSecurityEventRepository{}
	audit := NewAuditService(eventRepo, logger)
	store := NewInMemoryRiskStore()

	return NewRiskService(store, audit, 12*time.Hour, logger), store, eventRepo
}

func TestRiskService_ObserveInteraction_SlowGapScoresNothing(t *testing.T) {
	svc, _, _ := newTestRiskService()

	risk, err := svc.ObserveInteraction(context.Background(), "sess1", 500*time.Millisecond, testClient)

	require.NoError(t, err)
	assert.Equal(t, 0, risk.Counter)
	assert.False(t, risk.Flagged)
}

func TestRiskService_ObserveInteraction_RapidGapScoresOne(t *testing.T) {
	svc, _, _ := newTestRiskService()

	risk, err := svc.ObserveInteraction(context.Background(), "sess1", 50*time.Millisecond, testClient)

	require.NoError(t, err)
	assert.Equal(t, models.RiskWeightRapidInteraction, risk.Counter)
	assert.False(t, risk.Flagged)
}

func TestRiskService_ScanEnvironment_AutomationScoresOnce(t *testing.T) {
	svc, _, _ := newTestRiskService()
	scan := models.EnvironmentScan{UserAgent: "HeadlessChrome/120.0", WebDriver: true}

	risk, err := svc.ScanEnvironment(context.Background(), "sess1", scan, testClient)
	require.NoError(t, err)
	assert.Equal(t, models.RiskWeightAutomation, risk.Counter)

	// Re-reporting the same environment adds nothing.
	risk, err = svc.ScanEnvironment(context.Background(), "sess1", scan, testClient)
	require.NoError(t, err)
	assert.Equal(t, models.RiskWeightAutomation, risk.Counter)
}

func TestRiskService_ScanEnvironment_CleanEnvironmentScoresNothing(t *testing.T) {
	svc, _, _ := newTestRiskService()
	scan := models.EnvironmentScan{UserAgent: "Mozilla/5.0 (X11; Linux x86_64) Firefox/121.0"}

	risk, err := svc.ScanEnvironment(context.Background(), "sess1", scan, testClient)

	require.NoError(t, err)
	assert.Equal(t, 0, risk.Counter)
}

func TestRiskService_FlagRaisesOnceAtThreshold(t *testing.T) {
	svc, _, eventRepo := newTestRiskService()
	ctx := context.Background()

	// Automation scan (3) plus two rapid interactions (1+1) crosses the
	// threshold of 5.
	scan := models.EnvironmentScan{AutomationGlobals: true}
	_, err := svc.ScanEnvironment(ctx, "sess1", scan, testClient)
	require.NoError(t, err)

	risk, err := svc.ObserveInteraction(ctx, "sess1", 10*time.Millisecond, testClient)
	require.NoError(t, err)
	assert.False(t, risk.Flagged)

	risk, err = svc.ObserveInteraction(ctx, "sess1", 10*time.Millisecond, testClient)
	require.NoError(t, err)
	assert.True(t, risk.Flagged)
	assert.Equal(t, 1, eventRepo.CountEvents(models.EventTypeSuspiciousActivity))

	// Further scoring keeps the flag but never re-fires the event.
	risk, err = svc.ObserveInteraction(ctx, "sess1", 10*time.Millisecond, testClient)
	require.NoError(t, err)
	assert.True(t, risk.Flagged)
	assert.Equal(t, 1, eventRepo.CountEvents(models.EventTypeSuspiciousActivity))
}

func TestRiskService_SessionsScoreIndependently(t *testing.T) {
	svc, _, _ := newTestRiskService()
	ctx := context.Background()

	_, err := svc.ObserveInteraction(ctx, "sess1", 10*time.Millisecond, testClient)
	require.NoError(t, err)

	risk, err := svc.Current(ctx, "sess2")
	require.NoError(t, err)
	assert.Equal(t, 0, risk.Counter)
}

func TestRiskService_EmptySessionIDIgnored(t *testing.T) {
	svc, store, _ := newTestRiskService()

	risk, err := svc.ObserveInteraction(context.Background(), "", 10*time.Millisecond, testClient)

	require.NoError(t, err)
	assert.Equal(t, 0, risk.Counter)
	assert.Empty(t, store.Counters)
}
