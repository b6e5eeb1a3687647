package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/repositories"
)

// CleanupManager periodically sweeps the gate's durable state: expired
// revoked tokens, attempt records whose window has long passed, and security
// events past their retention.
type CleanupManager struct {
	revokeRepo       *repositories.TokenRevocationRepository
	attemptRepo      *repositories.AttemptRepository
	eventRepo        *repositories.SecurityEventRepository
	logger           *slog.Logger
	interval         time.Duration
	attemptRetention time.Duration
	eventRetention   time.Duration
	stopCh           chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	revokeRepo *repositories.TokenRevocationRepository,
	attemptRepo *repositories.AttemptRepository,
	eventRepo *repositories.SecurityEventRepository,
	logger *slog.Logger,
	interval time.Duration,
	attemptRetention time.Duration,
	eventRetention time.Duration,
) *CleanupManager {
	return &CleanupManager{
		revokeRepo:       revokeRepo,
		attemptRepo:      attemptRepo,
		eventRepo:        eventRepo,
		logger:           logger,
		interval:         interval,
		attemptRetention: attemptRetention,
		eventRetention:   eventRetention,
		stopCh:           make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if tokens, err := cm.revokeRepo.CleanupExpiredTokens(cleanupCtx); err != nil {
		cm.logger.Error("failed to cleanup expired tokens", slog.Any("error", err))
	} else if tokens > 0 {
		cm.logger.Info("expired token cleanup completed", slog.Int64("rows_deleted", tokens))
	}

	// Stale attempt rows carry no lock anymore; removing them keeps the
	// tracker table small without changing any Status answer.
	if attempts, err := cm.attemptRepo.DeleteStale(cleanupCtx, cm.attemptRetention); err != nil {
		cm.logger.Error("failed to cleanup stale attempt records", slog.Any("error", err))
	} else if attempts > 0 {
		cm.logger.Info("stale attempt cleanup completed", slog.Int64("rows_deleted", attempts))
	}

	retentionDays := int(cm.eventRetention / (24 * time.Hour))
	if retentionDays < 1 {
		retentionDays = 1
	}
	if events, err := cm.eventRepo.Cleanup(cleanupCtx, retentionDays); err != nil {
		cm.logger.Error("failed to cleanup old security events", slog.Any("error", err))
	} else if events > 0 {
		cm.logger.Info("security event cleanup completed", slog.Int64("rows_deleted", events))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
