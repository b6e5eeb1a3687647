package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/yayasalr/shalomjobcenter-27-sub004/internal/models"
	pkglogger "github.com/yayasalr/shalomjobcenter-27-sub004/pkg/logger"
)

// AttemptRepository defines the interface for failed-attempt state access
type AttemptRepository interface {
	Get(ctx context.Context, identifier string) (*models.AttemptRecord, bool, error)
	Increment(ctx context.Context, identifier string, now time.Time) (*models.AttemptRecord, error)
	SetLock(ctx context.Context, identifier string, lockUntil, now time.Time) error
	Reset(ctx context.Context, identifier string) error
}

// LockoutConfig holds the lockout policy knobs
type LockoutConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

// LockoutService enforces the failed-attempt lockout policy. The policy is
// availability-biased: when attempt state cannot be read, the gate treats the
// identifier as unlocked and records the anomaly rather than deny service.
type LockoutService struct {
	repo        AttemptRepository
	audit       *AuditService
	auditLogger *pkglogger.AuditLogger
	config      LockoutConfig
	logger      *slog.Logger
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(repo AttemptRepository, audit *AuditService, auditLogger *pkglogger.AuditLogger, config LockoutConfig, logger *slog.Logger) *LockoutService {
	return &LockoutService{
		repo:        repo,
		audit:       audit,
		auditLogger: auditLogger,
		config:      config,
		logger:      logger,
	}
}

// Status returns the lockout decision for an identifier. A lockout that has
// already expired reads as unlocked; its stale record is cleared on the next
// recorded failure rather than here, so Status stays read-only.
func (s *LockoutService) Status(ctx context.Context, identifier string, client models.ClientContext) (*models.LockStatus, error) {
	record, corrupted, err := s.repo.Get(ctx, identifier)
	if err != nil {
		// Infra failure: treat as unlocked, never deny service over our own state.
		s.logger.Error("failed to read attempt state, treating as unlocked",
			slog.Any("error", err))
		return &models.LockStatus{}, nil
	}
	if corrupted {
		s.logger.Warn("corrupted attempt state, treating as absent")
		s.audit.Record(ctx, models.EventTypeCorruptedState, identifier, client, nil)
		if err := s.repo.Reset(ctx, identifier); err != nil {
			s.logger.Error("failed to clear corrupted attempt state", slog.Any("error", err))
		}
		return &models.LockStatus{}, nil
	}

	now := time.Now()
	if !record.IsLocked(now) {
		return &models.LockStatus{}, nil
	}

	return &models.LockStatus{
		Locked:           true,
		RemainingMinutes: remainingMinutes(*record.LockUntil, now),
	}, nil
}

// RecordFailure counts one failed attempt and returns the resulting lockout
// decision. Crossing the attempt threshold stamps the lockout deadline; a
// failure arriving after an expired lockout resets the window first, so the
// stale record never feeds the new count.
func (s *LockoutService) RecordFailure(ctx context.Context, identifier string, client models.ClientContext) (*models.LockStatus, error) {
	now := time.Now()

	record, corrupted, err := s.repo.Get(ctx, identifier)
	if err != nil {
		s.logger.Error("failed to read attempt state before increment", slog.Any("error", err))
	} else if corrupted {
		s.audit.Record(ctx, models.EventTypeCorruptedState, identifier, client, nil)
		if err := s.repo.Reset(ctx, identifier); err != nil {
			s.logger.Error("failed to clear corrupted attempt state", slog.Any("error", err))
		}
	} else if record.LockUntil != nil && !record.IsLocked(now) {
		// Lockout served out: the new attempt starts a fresh window.
		if err := s.repo.Reset(ctx, identifier); err != nil {
			s.logger.Error("failed to reset expired lockout", slog.Any("error", err))
		}
	}

	updated, err := s.repo.Increment(ctx, identifier, now)
	if err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
		// Fail open: the attempt still counts as a credential failure upstream.
		return &models.LockStatus{}, nil
	}

	if updated.Count < s.config.MaxAttempts {
		return &models.LockStatus{}, nil
	}

	lockUntil := now.Add(s.config.LockoutDuration)
	if err := s.repo.SetLock(ctx, identifier, lockUntil, now); err != nil {
		s.logger.Error("failed to set lockout", slog.Any("error", err))
		return &models.LockStatus{}, nil
	}

	s.logger.Warn("account locked after repeated failures",
		slog.Int("attempts", updated.Count),
		slog.Time("lock_until", lockUntil))
	s.auditLogger.LogSecurityEvent(models.EventTypeAccountLocked,
		pkglogger.SanitizedEmail(identifier),
		map[string]string{"attempts": "max"})
	s.audit.Record(ctx, models.EventTypeAccountLocked, identifier, client, models.EventMetadata{
		"attempts":   updated.Count,
		"lock_until": lockUntil.Format(time.RFC3339),
	})

	return &models.LockStatus{
		Locked:           true,
		RemainingMinutes: remainingMinutes(lockUntil, now),
	}, nil
}

// Clear wipes the identifier's attempt state. Called on successful login and
// by operator unlock.
func (s *LockoutService) Clear(ctx context.Context, identifier string) error {
	if err := s.repo.Reset(ctx, identifier); err != nil {
		s.logger.Error("failed to clear attempt state", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// Unlock is the operator path: clears the state and records who freed the
// account is left to the caller's audit entry.
func (s *LockoutService) Unlock(ctx context.Context, identifier string, client models.ClientContext) error {
	if err := s.Clear(ctx, identifier); err != nil {
		return err
	}

	s.audit.Record(ctx, models.EventTypeAccountUnlocked, identifier, client, nil)
	return nil
}

// remainingMinutes rounds the remaining lockout up to whole minutes so a
// 30-minute lock never reads "0 minutes left" while still active.
func remainingMinutes(lockUntil, now time.Time) int {
	remaining := lockUntil.Sub(now)
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
